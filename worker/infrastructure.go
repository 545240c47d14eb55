package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"roadrescue-backend/dal"
	"roadrescue-backend/infrastructure"
	"roadrescue-backend/models"
	"roadrescue-backend/utils/logger"

	"github.com/aws/smithy-go"
)

// InfrastructureSetup ensures the configured DynamoDB tables exist with
// their indexes before the application starts serving.
type InfrastructureSetup struct {
	db     dal.DatabaseClientInterface
	config *models.Config
	logger logger.Logger
}

func NewInfrastructureSetup(db dal.DatabaseClientInterface, cfg *models.Config, log logger.Logger) *InfrastructureSetup {
	return &InfrastructureSetup{
		db:     db,
		config: cfg,
		logger: log,
	}
}

// Execute creates every missing table and waits for each to become active.
// Existing tables are verified, not recreated.
func (is *InfrastructureSetup) Execute(ctx context.Context, result *models.ExecutionResult) error {
	for _, base := range is.config.Tables {
		tableName := is.config.DynamoDBTablePrefix + "_" + base

		exists, err := is.tableExists(ctx, tableName)
		if err != nil {
			return fmt.Errorf("failed to check table %s: %w", tableName, err)
		}
		if exists {
			is.logger.Infof("Table %s already exists", tableName)
			result.TablesVerified = append(result.TablesVerified, tableName)
			continue
		}

		input, err := infrastructure.GetTables(tableName)
		if err != nil {
			return fmt.Errorf("failed to resolve schema for %s: %w", tableName, err)
		}

		is.logger.Infof("Creating table %s", tableName)
		if err := is.db.CreateTable(ctx, input); err != nil {
			return fmt.Errorf("failed to create table %s: %w", tableName, err)
		}
		if err := is.waitForTableActive(ctx, tableName); err != nil {
			return err
		}

		result.TablesCreated = append(result.TablesCreated, tableName)
		is.logger.Infof("Table %s is active", tableName)
	}
	return nil
}

func (is *InfrastructureSetup) tableExists(ctx context.Context, tableName string) (bool, error) {
	_, err := is.db.DescribeTable(ctx, tableName)
	if err == nil {
		return true, nil
	}
	if isTableNotFoundError(err) {
		return false, nil
	}
	return false, err
}

func (is *InfrastructureSetup) waitForTableActive(ctx context.Context, tableName string) error {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		out, err := is.db.DescribeTable(ctx, tableName)
		if err == nil && out.Table != nil && out.Table.TableStatus == "ACTIVE" {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timed out waiting for table %s: %w", tableName, ctx.Err())
		case <-ticker.C:
		}
	}
}

func isTableNotFoundError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "ResourceNotFoundException"
	}
	return strings.Contains(err.Error(), "ResourceNotFoundException")
}
