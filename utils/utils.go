package utils

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"roadrescue-backend/models"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// GetConfig read the configuration from environment variables or config files
func GetConfig() (*models.Config, error) {
	config, err := Load()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	return config, nil
}

// Load initializes and returns the application configuration using Viper
func Load() (*models.Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../")
	v.AddConfigPath("../../")

	setDefaults(v)

	// Enable environment variable support
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// Config file not found, continue with defaults and env vars
		fmt.Printf("Config file not found (%v), using defaults and environment variables\n", err)
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	// Handle nested JSON structure from config.json
	if v.IsSet("app") {
		flattenNestedConfig(v)
	}

	var config models.Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Parse JWT expiration if it's a string
	if v.IsSet("jwt.expires_in") {
		expiresStr := v.GetString("jwt.expires_in")
		if expiresStr != "" {
			if expires, err := time.ParseDuration(expiresStr); err != nil {
				return nil, fmt.Errorf("invalid JWT expires_in format: %w", err)
			} else {
				config.JWTExpiresIn = expires
			}
		}
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	defaults := map[string]interface{}{
		"app_name":    "RoadRescue Backend",
		"app_version": "1.0.0",
		"app_env":     "development",
		"app_host":    "0.0.0.0",
		"app_port":    "8081",

		"jwt_secret":     "your-super-secret-jwt-key-change-this-in-production",
		"jwt_expires_in": 30 * time.Minute,

		"aws_region":            "us-east-1",
		"aws_access_key_id":     "",
		"aws_secret_access_key": "",
		"dynamodb_endpoint":     "",
		"dynamodb_table_prefix": "dev",

		"log_level":  "info",
		"log_format": "json",

		"cors_origins":                   []string{"*"},
		"rate_limit_requests_per_minute": 100,
		"basePath":                       "/api/v1",

		// Tables the startup worker ensures exist
		"tables": []string{"users", "service_requests"},
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// validate checks if all required configuration is provided
func validate(c *models.Config) error {
	if c.JWTSecret == "your-super-secret-jwt-key-change-this-in-production" && c.AppEnv == "production" {
		return fmt.Errorf("JWT_SECRET must be set in production environment")
	}

	// In production, we should have AWS credentials set
	if c.AppEnv == "production" && c.AWSAccessKeyID == "" {
		fmt.Println("No AWS credentials provided, assuming IAM role is used")
	}

	return nil
}

// flattenNestedConfig maps the nested config.json sections onto the flat
// keys the Config struct unmarshals from.
func flattenNestedConfig(v *viper.Viper) {
	stringKeys := map[string]string{
		"app.name":                  "app_name",
		"app.version":               "app_version",
		"app.env":                   "app_env",
		"app.host":                  "app_host",
		"app.port":                  "app_port",
		"jwt.secret":                "jwt_secret",
		"aws.region":                "aws_region",
		"aws.access_key_id":         "aws_access_key_id",
		"aws.secret_access_key":     "aws_secret_access_key",
		"aws.dynamodb_endpoint":     "dynamodb_endpoint",
		"aws.dynamodb_table_prefix": "dynamodb_table_prefix",
		"logging.level":             "log_level",
		"logging.format":            "log_format",
	}
	for nested, flat := range stringKeys {
		if v.IsSet(nested) {
			v.Set(flat, v.GetString(nested))
		}
	}

	if v.IsSet("cors.origins") {
		v.Set("cors_origins", v.GetStringSlice("cors.origins"))
	}
	if v.IsSet("rate_limit.requests_per_minute") {
		v.Set("rate_limit_requests_per_minute", v.GetInt("rate_limit.requests_per_minute"))
	}
	if v.IsSet("tables") {
		v.Set("tables", v.GetStringSlice("tables"))
	}
}

// PrintPrettyJSON takes any struct or map and prints it as pretty JSON
func PrintPrettyJSON(data interface{}) string {
	prettyJSON, err := json.MarshalIndent(data, "", "    ")
	if err != nil {
		fmt.Println("Failed to generate JSON:", err)
		return ""
	}
	return string(prettyJSON)
}

// GenerateUUID returns a new UUID string
func GenerateUUID() string {
	return uuid.New().String()
}

// HashPassword hashes a plain text password using bcrypt.
func HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// CheckPassword compares a hashed password with a plain text password.
func CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
