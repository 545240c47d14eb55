package dal

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DatabaseClientInterface defines the contract for database operations
type DatabaseClientInterface interface {
	// Core CRUD operations
	GetItem(ctx context.Context, tableName, key, value string, result interface{}) error
	PutItem(ctx context.Context, tableName string, item interface{}) error
	DeleteItem(ctx context.Context, tableName, key, value string) error

	// ConditionalUpdateItem applies the SET updates only while every
	// expected attribute still holds its expected value. This is the
	// compare-and-swap primitive: two racing callers with the same
	// expectations yield exactly one success and one ErrConditionFailed.
	ConditionalUpdateItem(ctx context.Context, tableName, key, keyValue string, updates map[string]interface{}, expected map[string]interface{}) error

	// AppendToList appends item to the named list attribute (creating it
	// when absent) and atomically adds each increment to its numeric
	// attribute in the same write.
	AppendToList(ctx context.Context, tableName, key, keyValue, listField string, item interface{}, increments map[string]float64) error

	// Query and Scan operations
	QueryByIndex(ctx context.Context, tableName, indexName, keyName, keyValue string, results interface{}) error
	Scan(ctx context.Context, tableName string, results interface{}) error

	// Table management operations
	CreateTable(ctx context.Context, input *dynamodb.CreateTableInput) error
	DescribeTable(ctx context.Context, tableName string) (*dynamodb.DescribeTableOutput, error)
	DeleteTable(ctx context.Context, input *dynamodb.DeleteTableInput) error
}
