package models

import "time"

// UserRole represents the role of a user
type UserRole string

const (
	UserRoleCustomer   UserRole = "customer"
	UserRoleTechnician UserRole = "technician"
	UserRoleAdmin      UserRole = "admin"
)

// IsValid reports whether the role is one of the known roles.
func (r UserRole) IsValid() bool {
	return r == UserRoleCustomer || r == UserRoleTechnician || r == UserRoleAdmin
}

// UserStatus represents the status of a user account
type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusInactive  UserStatus = "inactive"
	UserStatusSuspended UserStatus = "suspended"
	UserStatusDeleted   UserStatus = "deleted"
)

// Equipment is a technician's declared tool ownership. A technician missing
// a tool never sees the service types that require it.
type Equipment struct {
	LockoutKit  bool `json:"lockoutKit" dynamodbav:"lockoutKit"`
	JumpStarter bool `json:"jumpStarter" dynamodbav:"jumpStarter"`
	FuelCan     bool `json:"fuelCan" dynamodbav:"fuelCan"`
}

// VehicleInfo is the technician's service vehicle shown to customers.
type VehicleInfo struct {
	Make  string `json:"make,omitempty" dynamodbav:"make,omitempty"`
	Model string `json:"model,omitempty" dynamodbav:"model,omitempty"`
	Color string `json:"color,omitempty" dynamodbav:"color,omitempty"`
	Plate string `json:"plate,omitempty" dynamodbav:"plate,omitempty"`
}

// User represents a customer or technician account
type User struct {
	ID           string       `json:"id" dynamodbav:"id"`
	Email        string       `json:"email" dynamodbav:"email"`
	Username     string       `json:"username" dynamodbav:"username"`
	PasswordHash string       `json:"-" dynamodbav:"password_hash"`
	Name         string       `json:"name" dynamodbav:"name"`
	Phone        *string      `json:"phone,omitempty" dynamodbav:"phone,omitempty"`
	Role         UserRole     `json:"role" dynamodbav:"role"`
	Status       UserStatus   `json:"status" dynamodbav:"status"`
	Equipment    Equipment    `json:"equipment" dynamodbav:"equipment"`
	Available    bool         `json:"available" dynamodbav:"available"`
	VehicleInfo  *VehicleInfo `json:"vehicleInfo,omitempty" dynamodbav:"vehicleInfo,omitempty"`
	CreatedAt    time.Time    `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at" dynamodbav:"updated_at"`
	LastLoginAt  *time.Time   `json:"last_login_at,omitempty" dynamodbav:"last_login_at,omitempty"`
}

// RegisterUser represents the request structure for user registration
type RegisterUser struct {
	Email    string   `json:"email" binding:"required,email"`
	Username string   `json:"username" binding:"required"`
	Password string   `json:"password" binding:"required,min=8"`
	Name     string   `json:"name" binding:"required"`
	Phone    string   `json:"phone,omitempty"`
	Role     UserRole `json:"role" binding:"required,oneof=customer technician"`
}

// LoginRequest represents the request structure for user login
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// UpdateEquipmentRequest toggles a technician's declared equipment flags.
type UpdateEquipmentRequest struct {
	LockoutKit  *bool `json:"lockoutKit,omitempty"`
	JumpStarter *bool `json:"jumpStarter,omitempty"`
	FuelCan     *bool `json:"fuelCan,omitempty"`
	Available   *bool `json:"available,omitempty"`
}
