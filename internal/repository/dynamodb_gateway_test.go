package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cloud-wave-best-zizon/inventory-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDynamoDB struct {
	getOutput      *dynamodb.GetItemOutput
	getErr         error
	putErr         error
	updateErr      error
	transactErr    error
	updateInputs   []*dynamodb.UpdateItemInput
	transactInputs []*dynamodb.TransactWriteItemsInput
	putInputs      []*dynamodb.PutItemInput
}

func (f *fakeDynamoDB) GetItem(ctx context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	return f.getOutput, f.getErr
}

func (f *fakeDynamoDB) PutItem(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.putInputs = append(f.putInputs, in)
	return &dynamodb.PutItemOutput{}, f.putErr
}

func (f *fakeDynamoDB) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updateInputs = append(f.updateInputs, in)
	return &dynamodb.UpdateItemOutput{}, f.updateErr
}

func (f *fakeDynamoDB) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.transactInputs = append(f.transactInputs, in)
	return &dynamodb.TransactWriteItemsOutput{}, f.transactErr
}

func TestDynamoDBGateway_FindByID(t *testing.T) {
	ctx := context.Background()

	t.Run("absent item is not an error", func(t *testing.T) {
		client := &fakeDynamoDB{getOutput: &dynamodb.GetItemOutput{}}
		g := NewDynamoDBGateway(client, "inventory")

		record, err := g.FindByID(ctx, "item-1")
		require.NoError(t, err)
		assert.Nil(t, record)
	})

	t.Run("unmarshals stored item", func(t *testing.T) {
		stored := newRecord(t, "item-1", 7)
		stored.Version = 3
		av, err := attributevalue.MarshalMap(stored)
		require.NoError(t, err)

		client := &fakeDynamoDB{getOutput: &dynamodb.GetItemOutput{Item: av}}
		g := NewDynamoDBGateway(client, "inventory")

		record, err := g.FindByID(ctx, "item-1")
		require.NoError(t, err)
		require.NotNil(t, record)
		assert.Equal(t, 7, record.Quantity)
		assert.Equal(t, int64(3), record.Version)
		assert.Equal(t, domain.CategoryPart, record.Category)
	})

	t.Run("store failure is wrapped", func(t *testing.T) {
		client := &fakeDynamoDB{getErr: errors.New("connection refused")}
		g := NewDynamoDBGateway(client, "inventory")

		_, err := g.FindByID(ctx, "item-1")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestDynamoDBGateway_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("writes with version condition", func(t *testing.T) {
		client := &fakeDynamoDB{}
		g := NewDynamoDBGateway(client, "inventory")
		record := newRecord(t, "item-1", 5)
		record.Version = 2

		require.NoError(t, g.Update(ctx, record))
		assert.Equal(t, int64(3), record.Version)

		require.Len(t, client.updateInputs, 1)
		in := client.updateInputs[0]
		assert.Equal(t, "inventory", aws.ToString(in.TableName))
		assert.NotEmpty(t, aws.ToString(in.ConditionExpression))
		assert.Contains(t, in.Key, "item_id")
	})

	t.Run("first write accepts items stored without a version", func(t *testing.T) {
		client := &fakeDynamoDB{}
		g := NewDynamoDBGateway(client, "inventory")

		require.NoError(t, g.Update(ctx, newRecord(t, "item-1", 5)))

		versioned := newRecord(t, "item-2", 5)
		versioned.Version = 4
		require.NoError(t, g.Update(ctx, versioned))

		require.Len(t, client.updateInputs, 2)
		assert.Contains(t, aws.ToString(client.updateInputs[0].ConditionExpression), "attribute_not_exists")
		assert.NotContains(t, aws.ToString(client.updateInputs[1].ConditionExpression), "attribute_not_exists")
	})

	t.Run("conditional check failure means concurrent update", func(t *testing.T) {
		client := &fakeDynamoDB{updateErr: &types.ConditionalCheckFailedException{Message: aws.String("failed")}}
		g := NewDynamoDBGateway(client, "inventory")
		record := newRecord(t, "item-1", 5)

		require.ErrorIs(t, g.Update(ctx, record), ErrConcurrentUpdate)
		assert.Equal(t, int64(0), record.Version)
	})

	t.Run("other failures are not conflicts", func(t *testing.T) {
		client := &fakeDynamoDB{updateErr: errors.New("throttled")}
		g := NewDynamoDBGateway(client, "inventory")

		err := g.Update(ctx, newRecord(t, "item-1", 5))
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrConcurrentUpdate)
	})
}

func TestDynamoDBGateway_UpdateAll(t *testing.T) {
	ctx := context.Background()

	t.Run("single record uses UpdateItem", func(t *testing.T) {
		client := &fakeDynamoDB{}
		g := NewDynamoDBGateway(client, "inventory")

		require.NoError(t, g.UpdateAll(ctx, []*domain.Record{newRecord(t, "item-1", 1)}))
		assert.Len(t, client.updateInputs, 1)
		assert.Empty(t, client.transactInputs)
	})

	t.Run("several records use one transaction", func(t *testing.T) {
		client := &fakeDynamoDB{}
		g := NewDynamoDBGateway(client, "inventory")
		records := []*domain.Record{newRecord(t, "item-1", 1), newRecord(t, "item-2", 2)}

		require.NoError(t, g.UpdateAll(ctx, records))
		require.Len(t, client.transactInputs, 1)
		assert.Len(t, client.transactInputs[0].TransactItems, 2)
		assert.Equal(t, int64(1), records[0].Version)
		assert.Equal(t, int64(1), records[1].Version)
	})

	t.Run("cancelled transaction with conditional failure", func(t *testing.T) {
		client := &fakeDynamoDB{transactErr: &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{
				{Code: aws.String("None")},
				{Code: aws.String("ConditionalCheckFailed")},
			},
		}}
		g := NewDynamoDBGateway(client, "inventory")
		records := []*domain.Record{newRecord(t, "item-1", 1), newRecord(t, "item-2", 2)}

		require.ErrorIs(t, g.UpdateAll(ctx, records), ErrConcurrentUpdate)
		assert.Equal(t, int64(0), records[0].Version)
	})

	t.Run("too many records", func(t *testing.T) {
		g := NewDynamoDBGateway(&fakeDynamoDB{}, "inventory")
		records := make([]*domain.Record, MaxBatchItems+1)
		for i := range records {
			records[i] = newRecord(t, "item", 1)
		}

		require.ErrorIs(t, g.UpdateAll(ctx, records), ErrBatchTooLarge)
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		client := &fakeDynamoDB{}
		g := NewDynamoDBGateway(client, "inventory")

		require.NoError(t, g.UpdateAll(ctx, nil))
		assert.Empty(t, client.updateInputs)
		assert.Empty(t, client.transactInputs)
	})
}

func TestDynamoDBGateway_Create(t *testing.T) {
	ctx := context.Background()

	client := &fakeDynamoDB{}
	g := NewDynamoDBGateway(client, "inventory")
	require.NoError(t, g.Create(ctx, newRecord(t, "item-1", 1)))
	require.Len(t, client.putInputs, 1)
	assert.NotEmpty(t, aws.ToString(client.putInputs[0].ConditionExpression))

	client.putErr = &types.ConditionalCheckFailedException{}
	require.ErrorIs(t, g.Create(ctx, newRecord(t, "item-1", 1)), ErrItemExists)
}
