package dal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"roadrescue-backend/models"

	"roadrescue-backend/utils/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// ErrConditionFailed is returned by ConditionalUpdateItem when the expected
// attribute values no longer match (someone else won the race).
var ErrConditionFailed = errors.New("conditional update predicate no longer matches")

// ErrItemNotFound is returned by GetItem when the key does not resolve.
var ErrItemNotFound = errors.New("item not found")

type DynamoDBClient struct {
	client *dynamodb.Client
	config *models.Config
	logger logger.Logger
}

// NewDynamoDBClient creates a new DynamoDB client
func NewDynamoDBClient(cfg *models.Config, log logger.Logger) (*DynamoDBClient, error) {
	awsCfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// Override endpoint for local DynamoDB
	if cfg.DynamoDBEndpoint != "" {
		awsCfg.EndpointResolver = aws.EndpointResolverFunc(func(service, region string) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL:           cfg.DynamoDBEndpoint,
				SigningRegion: cfg.AWSRegion,
			}, nil
		})
	}

	// Use static credentials if provided
	if cfg.AWSAccessKeyID != "" && cfg.AWSSecretAccessKey != "" {
		awsCfg.Credentials = aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"", // session token
		))
	}

	client := dynamodb.NewFromConfig(awsCfg)

	dbClient := &DynamoDBClient{
		client: client,
		config: cfg,
		logger: log,
	}

	log.Info("DynamoDB client initialized successfully")
	return dbClient, nil
}

// GetItem retrieves an item from DynamoDB by primary key
func (db *DynamoDBClient) GetItem(ctx context.Context, tableName, key, value string, result interface{}) error {
	input := &dynamodb.GetItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			key: &types.AttributeValueMemberS{Value: value},
		},
	}

	output, err := db.client.GetItem(ctx, input)
	if err != nil {
		db.logger.Errorf("Failed to get item from %s: %v", tableName, err)
		return err
	}

	if output.Item == nil {
		return ErrItemNotFound
	}

	return attributevalue.UnmarshalMap(output.Item, result)
}

// PutItem stores an item in DynamoDB
func (db *DynamoDBClient) PutItem(ctx context.Context, tableName string, item interface{}) error {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      av,
	}

	_, err = db.client.PutItem(ctx, input)
	return err
}

// ConditionalUpdateItem applies the updates as a single UpdateItem guarded by
// a ConditionExpression over the expected attribute values. DynamoDB
// evaluates the condition and the write atomically, so concurrent callers
// racing on the same predicate resolve to exactly one winner.
//
// A nil expected value asserts the attribute is absent; a nil update value
// removes the attribute. Both exist for fields that double as sparse index
// keys, where "unset" must be modeled as a missing attribute rather than an
// empty string.
func (db *DynamoDBClient) ConditionalUpdateItem(ctx context.Context, tableName, key, keyValue string, updates map[string]interface{}, expected map[string]interface{}) error {
	if len(updates) == 0 {
		return fmt.Errorf("no updates provided")
	}

	names := make(map[string]string)
	values := make(map[string]types.AttributeValue)

	var setParts, removeParts []string
	for i, field := range sortedKeys(updates) {
		path := aliasPath(fmt.Sprintf("u%d", i), field, names)
		if updates[field] == nil {
			removeParts = append(removeParts, path)
			continue
		}

		attrValue := fmt.Sprintf(":u%d", i)
		av, err := attributevalue.Marshal(updates[field])
		if err != nil {
			return fmt.Errorf("failed to marshal update %s: %w", field, err)
		}
		values[attrValue] = av
		setParts = append(setParts, path+" = "+attrValue)
	}

	updateExpr := ""
	if len(setParts) > 0 {
		updateExpr = "SET " + strings.Join(setParts, ", ")
	}
	if len(removeParts) > 0 {
		if updateExpr != "" {
			updateExpr += " "
		}
		updateExpr += "REMOVE " + strings.Join(removeParts, ", ")
	}

	// The key must exist; a vanished record fails the condition rather
	// than creating a phantom item.
	conditionExpr := fmt.Sprintf("attribute_exists(%s)", key)
	for i, field := range sortedKeys(expected) {
		path := aliasPath(fmt.Sprintf("c%d", i), field, names)
		if expected[field] == nil {
			conditionExpr += " AND attribute_not_exists(" + path + ")"
			continue
		}

		attrValue := fmt.Sprintf(":c%d", i)
		av, err := attributevalue.Marshal(expected[field])
		if err != nil {
			return fmt.Errorf("failed to marshal condition %s: %w", field, err)
		}
		values[attrValue] = av
		conditionExpr += " AND " + path + " = " + attrValue
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			key: &types.AttributeValueMemberS{Value: keyValue},
		},
		UpdateExpression:          aws.String(updateExpr),
		ConditionExpression:       aws.String(conditionExpr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueNone,
	}

	_, err := db.client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConditionFailed
		}
		db.logger.Errorf("Conditional update failed on %s/%s: %v", tableName, keyValue, err)
		return classifyError(err)
	}
	return nil
}

// AppendToList appends item to the listField attribute with list_append and
// adds the increments to their numeric attributes in the same write.
func (db *DynamoDBClient) AppendToList(ctx context.Context, tableName, key, keyValue, listField string, item interface{}, increments map[string]float64) error {
	av, err := attributevalue.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal list item: %w", err)
	}

	names := map[string]string{}
	values := map[string]types.AttributeValue{
		":item":  &types.AttributeValueMemberL{Value: []types.AttributeValue{av}},
		":empty": &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
	}

	lf := aliasPath("lf", listField, names)
	updateExpr := fmt.Sprintf("SET %s = list_append(if_not_exists(%s, :empty), :item)", lf, lf)
	for i, field := range sortedKeys(increments) {
		attrName := aliasPath(fmt.Sprintf("n%d", i), field, names)
		attrValue := fmt.Sprintf(":n%d", i)
		updateExpr += fmt.Sprintf(", %s = if_not_exists(%s, :zero) + %s", attrName, attrName, attrValue)
		values[attrValue] = &types.AttributeValueMemberN{Value: fmt.Sprintf("%f", increments[field])}
	}
	if len(increments) > 0 {
		values[":zero"] = &types.AttributeValueMemberN{Value: "0"}
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			key: &types.AttributeValueMemberS{Value: keyValue},
		},
		UpdateExpression:          aws.String(updateExpr),
		ConditionExpression:       aws.String(fmt.Sprintf("attribute_exists(%s)", key)),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	}

	_, err = db.client.UpdateItem(ctx, input)
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrItemNotFound
		}
		db.logger.Errorf("List append failed on %s/%s: %v", tableName, keyValue, err)
		return classifyError(err)
	}
	return nil
}

// DeleteItem deletes an item from DynamoDB
func (db *DynamoDBClient) DeleteItem(ctx context.Context, tableName, key, value string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(tableName),
		Key: map[string]types.AttributeValue{
			key: &types.AttributeValueMemberS{Value: value},
		},
	}

	_, err := db.client.DeleteItem(ctx, input)
	return err
}

// QueryByIndex queries items using a global secondary index
func (db *DynamoDBClient) QueryByIndex(ctx context.Context, tableName, indexName, keyName, keyValue string, results interface{}) error {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(tableName),
		IndexName:              aws.String(indexName),
		Limit:                  aws.Int32(100),
		KeyConditionExpression: aws.String("#kn0 = :kv0"),
		ExpressionAttributeNames: map[string]string{
			"#kn0": keyName,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":kv0": &types.AttributeValueMemberS{Value: keyValue},
		},
	}

	output, err := db.client.Query(ctx, input)
	if err != nil {
		return classifyError(err)
	}

	return attributevalue.UnmarshalListOfMaps(output.Items, results)
}

// Scan scans the entire table
func (db *DynamoDBClient) Scan(ctx context.Context, tableName string, results interface{}) error {
	input := &dynamodb.ScanInput{
		TableName: aws.String(tableName),
	}

	output, err := db.client.Scan(ctx, input)
	if err != nil {
		return classifyError(err)
	}

	return attributevalue.UnmarshalListOfMaps(output.Items, results)
}

// CreateTable creates a table
func (db *DynamoDBClient) CreateTable(ctx context.Context, input *dynamodb.CreateTableInput) error {
	_, err := db.client.CreateTable(ctx, input)
	return err
}

// DescribeTable describes a table
func (db *DynamoDBClient) DescribeTable(ctx context.Context, tableName string) (*dynamodb.DescribeTableOutput, error) {
	input := &dynamodb.DescribeTableInput{
		TableName: aws.String(tableName),
	}
	return db.client.DescribeTable(ctx, input)
}

// DeleteTable deletes a table
func (db *DynamoDBClient) DeleteTable(ctx context.Context, input *dynamodb.DeleteTableInput) error {
	_, err := db.client.DeleteTable(ctx, input)
	return err
}

// classifyError folds throttling and fault-class service errors into the
// transient store-unavailable class so callers can decide about retries.
func classifyError(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ProvisionedThroughputExceededException",
			"ThrottlingException",
			"RequestLimitExceeded",
			"InternalServerError",
			"ServiceUnavailable":
			return fmt.Errorf("%w: %s", models.ErrStoreUnavailable, apiErr.ErrorCode())
		}
		if apiErr.ErrorFault() == smithy.FaultServer {
			return fmt.Errorf("%w: %s", models.ErrStoreUnavailable, apiErr.ErrorCode())
		}
	}
	return err
}

// aliasPath registers an expression attribute name alias for every segment
// of a (possibly dotted) document path and returns the aliased path, so
// nested attributes like "tracking.totalDistanceMiles" survive reserved-word
// collisions the same way top-level ones do.
func aliasPath(prefix, path string, names map[string]string) string {
	segments := strings.Split(path, ".")
	aliased := make([]string, len(segments))
	for i, seg := range segments {
		alias := fmt.Sprintf("#%s_%d", prefix, i)
		names[alias] = seg
		aliased[i] = alias
	}
	return strings.Join(aliased, ".")
}

// sortedKeys returns map keys in a stable order so built expressions are
// deterministic (easier to assert in tests and to read in logs).
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
