package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	pkgconfig "github.com/cloud-wave-best-zizon/inventory-service/pkg/config"
)

// DynamoDBAPI is the subset of *dynamodb.Client the gateway uses.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

type DynamoDBGateway struct {
	client    DynamoDBAPI
	tableName string
}

func NewDynamoDBClient(ctx context.Context, cfg *pkgconfig.Config) (*dynamodb.Client, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.AWSRegion),
	}
	// DynamoDB Local 등 endpoint override 시 정적 자격증명 사용
	if cfg.DynamoDBEndpoint != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if cfg.DynamoDBEndpoint != "" {
			o.BaseEndpoint = aws.String(cfg.DynamoDBEndpoint)
		}
	}), nil
}

func NewDynamoDBGateway(client DynamoDBAPI, tableName string) *DynamoDBGateway {
	return &DynamoDBGateway{
		client:    client,
		tableName: tableName,
	}
}

func (g *DynamoDBGateway) key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"item_id": &types.AttributeValueMemberS{Value: id},
	}
}

func (g *DynamoDBGateway) Create(ctx context.Context, record *domain.Record) error {
	av, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal item: %w", err)
	}

	cond, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name("item_id"))).
		Build()
	if err != nil {
		return err
	}

	_, err = g.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                aws.String(g.tableName),
		Item:                     av,
		ConditionExpression:      cond.Condition(),
		ExpressionAttributeNames: cond.Names(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrItemExists
		}
		return fmt.Errorf("failed to put item: %w", err)
	}

	return nil
}

func (g *DynamoDBGateway) FindByID(ctx context.Context, id string) (*domain.Record, error) {
	result, err := g.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(g.tableName),
		Key:            g.key(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", id, err)
	}

	if result.Item == nil {
		return nil, nil
	}

	var record domain.Record
	if err := attributevalue.UnmarshalMap(result.Item, &record); err != nil {
		return nil, fmt.Errorf("failed to unmarshal item %s: %w", id, err)
	}

	return &record, nil
}

// updateExpression writes the full record state, guarded by the version read earlier.
func (g *DynamoDBGateway) updateExpression(record *domain.Record) (expression.Expression, error) {
	update := expression.Set(expression.Name("name"), expression.Value(record.Name)).
		Set(expression.Name("quantity"), expression.Value(record.Quantity)).
		Set(expression.Name("category"), expression.Value(record.Category)).
		Set(expression.Name("unit_price"), expression.Value(record.UnitPrice)).
		Set(expression.Name("updated_at"), expression.Value(record.UpdatedAt)).
		Set(expression.Name("version"), expression.Value(record.Version+1))

	// 읽은 이후 다른 쓰기가 없었던 경우에만 업데이트
	versionMatches := expression.Name("version").Equal(expression.Value(record.Version))
	if record.Version == 0 {
		// version 속성 없이 프로비저닝된 항목
		versionMatches = expression.AttributeNotExists(expression.Name("version")).Or(versionMatches)
	}
	condition := expression.AttributeExists(expression.Name("item_id")).And(versionMatches)

	return expression.NewBuilder().
		WithUpdate(update).
		WithCondition(condition).
		Build()
}

func (g *DynamoDBGateway) Update(ctx context.Context, record *domain.Record) error {
	expr, err := g.updateExpression(record)
	if err != nil {
		return err
	}

	_, err = g.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(g.tableName),
		Key:                       g.key(record.ID),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return ErrConcurrentUpdate
		}
		return fmt.Errorf("failed to update item %s: %w", record.ID, err)
	}

	record.Version++
	return nil
}

func (g *DynamoDBGateway) UpdateAll(ctx context.Context, records []*domain.Record) error {
	switch {
	case len(records) == 0:
		return nil
	case len(records) == 1:
		return g.Update(ctx, records[0])
	case len(records) > MaxBatchItems:
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(records), MaxBatchItems)
	}

	items := make([]types.TransactWriteItem, 0, len(records))
	for _, record := range records {
		expr, err := g.updateExpression(record)
		if err != nil {
			return err
		}
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:                 aws.String(g.tableName),
				Key:                       g.key(record.ID),
				ExpressionAttributeNames:  expr.Names(),
				ExpressionAttributeValues: expr.Values(),
				UpdateExpression:          expr.Update(),
				ConditionExpression:       expr.Condition(),
			},
		})
	}

	_, err := g.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) && hasConditionalCheckFailure(canceled) {
			return ErrConcurrentUpdate
		}
		return fmt.Errorf("failed to update %d items: %w", len(records), err)
	}

	for _, record := range records {
		record.Version++
	}
	return nil
}

func hasConditionalCheckFailure(e *types.TransactionCanceledException) bool {
	for _, reason := range e.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
