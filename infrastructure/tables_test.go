package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// TablesTestSuite defines a test suite for the embedded table schemas
type TablesTestSuite struct {
	suite.Suite
}

// TestGetTablesServiceRequests tests schema resolution with an env prefix
func (suite *TablesTestSuite) TestGetTablesServiceRequests() {
	input, err := GetTables("dev_service_requests")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "dev_service_requests", *input.TableName)
	require.Len(suite.T(), input.KeySchema, 1)
	assert.Equal(suite.T(), "requestID", *input.KeySchema[0].AttributeName)

	indexes := make(map[string]bool)
	for _, gsi := range input.GlobalSecondaryIndexes {
		indexes[*gsi.IndexName] = true
	}
	assert.True(suite.T(), indexes["status-index"])
	assert.True(suite.T(), indexes["customerID-index"])
	assert.True(suite.T(), indexes["technicianID-index"])
}

// TestGetTablesUsers tests the users schema
func (suite *TablesTestSuite) TestGetTablesUsers() {
	input, err := GetTables("prod_users")
	require.NoError(suite.T(), err)

	assert.Equal(suite.T(), "prod_users", *input.TableName)
	assert.Equal(suite.T(), "id", *input.KeySchema[0].AttributeName)
	assert.Len(suite.T(), input.GlobalSecondaryIndexes, 2)
}

// TestGetTablesUnknown tests an unmapped table name errors
func (suite *TablesTestSuite) TestGetTablesUnknown() {
	_, err := GetTables("dev_invoices")
	assert.Error(suite.T(), err)
	assert.Contains(suite.T(), err.Error(), "invoices")
}

// TestExtractBaseTableName tests prefix stripping
func (suite *TablesTestSuite) TestExtractBaseTableName() {
	assert.Equal(suite.T(), "service_requests", extractBaseTableName("dev_service_requests"))
	assert.Equal(suite.T(), "users", extractBaseTableName("staging_users"))
	assert.Equal(suite.T(), "users", extractBaseTableName("users"))
}

func TestTablesTestSuite(t *testing.T) {
	suite.Run(t, new(TablesTestSuite))
}
