package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"roadrescue-backend/dal"
	"roadrescue-backend/models"
	"roadrescue-backend/utils"
	"roadrescue-backend/utils/logger"
)

const userKey = "id"

type UserRepository struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

// NewUserRepository creates a new user repository
func NewUserRepository(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *UserRepository {
	return &UserRepository{
		db:     db,
		config: cfg,
		logger: log,
	}
}

func (r *UserRepository) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	if existing, err := r.GetUserByEmail(ctx, user.Email); err == nil && existing != nil {
		return nil, fmt.Errorf("user with this email already exists")
	}
	if existing, err := r.GetUserByUsername(ctx, user.Username); err == nil && existing != nil {
		return nil, fmt.Errorf("user with this username already exists")
	}

	now := time.Now().UTC()
	user.ID = utils.GenerateUUID()
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Status = models.UserStatusActive

	if err := r.db.PutItem(ctx, r.config.UsersTable(), user); err != nil {
		r.logger.Errorf("Failed to create user: %v", err)
		return nil, err
	}

	r.logger.Infof("User created successfully: %s (%s)", user.ID, user.Role)
	return user, nil
}

func (r *UserRepository) GetUser(ctx context.Context, id string) (*models.User, error) {
	user := &models.User{}
	err := r.db.GetItem(ctx, r.config.UsersTable(), userKey, id, user)
	if err != nil {
		if errors.Is(err, dal.ErrItemNotFound) {
			return nil, fmt.Errorf("user not found: %s", id)
		}
		r.logger.Errorf("Failed to get user %s: %v", id, err)
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getByIndex(ctx, "username-index", "username", username)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getByIndex(ctx, "email-index", "email", email)
}

func (r *UserRepository) getByIndex(ctx context.Context, index, key, value string) (*models.User, error) {
	var users []*models.User
	err := r.db.QueryByIndex(ctx, r.config.UsersTable(), index, key, value, &users)
	if err != nil {
		r.logger.Errorf("Failed to query %s by %s: %v", index, key, err)
		return nil, err
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("user not found: %s", value)
	}
	return users[0], nil
}

// UpdateUser applies the given attribute updates and returns the fresh record.
func (r *UserRepository) UpdateUser(ctx context.Context, id string, updates map[string]interface{}) (*models.User, error) {
	stamped := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		stamped[k] = v
	}
	stamped["updated_at"] = time.Now().UTC()

	err := r.db.ConditionalUpdateItem(ctx, r.config.UsersTable(), userKey, id, stamped, nil)
	if err != nil {
		if errors.Is(err, dal.ErrConditionFailed) {
			return nil, fmt.Errorf("user not found: %s", id)
		}
		r.logger.Errorf("Failed to update user %s: %v", id, err)
		return nil, err
	}
	return r.GetUser(ctx, id)
}

func (r *UserRepository) RecordLogin(ctx context.Context, id string) error {
	_, err := r.UpdateUser(ctx, id, map[string]interface{}{
		"last_login_at": time.Now().UTC(),
	})
	return err
}
