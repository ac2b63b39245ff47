package dynamo

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/gofrs/uuid/v5"

	"github.com/jinukim/inkverse/models"
)

type DynamoCanvasStore struct {
	client    *dynamodb.Client
	tableName string
}

func NewDynamoCanvasStore(ctx context.Context, devMode bool, dynamodbEndpoint string, tableName string) (*DynamoCanvasStore, error) {
	client, err := newDynamoDBClient(context.Background(), devMode, dynamodbEndpoint)
	if err != nil {
		return nil, err
	}

	tables, err := getTables(client, ctx)
	if err != nil {
		return nil, err
	}

	foundTable := false
	for _, table := range tables {
		if table == tableName {
			foundTable = true
			break
		}
	}
	if !foundTable {
		return nil, fmt.Errorf("given table name '%s' not found in dynamodb", tableName)
	}

	return &DynamoCanvasStore{client: client, tableName: tableName}, nil
}

func (dynamoStore *DynamoCanvasStore) GetLedger(ctx context.Context, userId string) (models.UserLedger, error) {
	dl, err := getItem[dynamoLedger](dynamoStore, ctx, ledgerPK(userId), ledgerSK, false)
	if err != nil {
		return models.UserLedger{}, err
	}

	return ledgerFromDynamo(dl), nil
}

func (dynamoStore *DynamoCanvasStore) CreateLedger(ctx context.Context, ledger models.UserLedger) (models.UserLedger, bool, error) {
	dl, created, err := ensureItem(dynamoStore, ctx, ledgerToDynamo(ledger))
	if err != nil {
		return models.UserLedger{}, false, err
	}

	return ledgerFromDynamo(dl), created, nil
}

func (dynamoStore *DynamoCanvasStore) ResetBudget(ctx context.Context, userId string, budget float64, prevReset int64, now int64) (models.UserLedger, error) {
	dl, err := conditionalUpdate[dynamoLedger](
		dynamoStore,
		ctx,
		ledgerPK(userId),
		ledgerSK,
		"SET RemainingBudget = :budget, LastReset = :now",
		"attribute_exists(PK) AND LastReset = :prev",
		map[string]types.AttributeValue{
			":budget": &types.AttributeValueMemberN{Value: strconv.FormatFloat(budget, 'f', -1, 64)},
			":now":    &types.AttributeValueMemberN{Value: strconv.FormatInt(now, 10)},
			":prev":   &types.AttributeValueMemberN{Value: strconv.FormatInt(prevReset, 10)},
		},
	)
	if err != nil {
		return models.UserLedger{}, err
	}

	return ledgerFromDynamo(dl), nil
}

func (dynamoStore *DynamoCanvasStore) DebitBudget(ctx context.Context, userId string, amount float64) (models.UserLedger, error) {
	dl, err := conditionalUpdate[dynamoLedger](
		dynamoStore,
		ctx,
		ledgerPK(userId),
		ledgerSK,
		"SET RemainingBudget = RemainingBudget - :amt",
		"attribute_exists(PK) AND RemainingBudget >= :amt",
		map[string]types.AttributeValue{
			":amt": &types.AttributeValueMemberN{Value: strconv.FormatFloat(amount, 'f', -1, 64)},
		},
	)
	if err != nil {
		return models.UserLedger{}, err
	}

	return ledgerFromDynamo(dl), nil
}

func (dynamoStore *DynamoCanvasStore) InsertStroke(ctx context.Context, stroke models.Stroke) error {
	avMap, err := attributevalue.MarshalMap(strokeToDynamo(stroke))
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	_, err = dynamoStore.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(dynamoStore.tableName),
		Item:      avMap,
	})
	if err != nil {
		return fmt.Errorf("failed to put stroke: %w", err)
	}

	return nil
}

func (dynamoStore *DynamoCanvasStore) GetStrokes(ctx context.Context) ([]models.Stroke, error) {
	// Stroke SKs are UUIDv7, so a forward query is already in creation order
	dynamoStrokes, err := queryAllByPK[dynamoStroke](dynamoStore, ctx, canvasPK, true)
	if err != nil {
		return nil, err
	}

	strokes := make([]models.Stroke, 0, len(dynamoStrokes))
	for _, ds := range dynamoStrokes {
		strokes = append(strokes, strokeFromDynamo(ds))
	}

	return strokes, nil
}

func (dynamoStore *DynamoCanvasStore) DeleteAuthorStrokes(ctx context.Context, userId string) error {
	return batchDeleteByGSIThrottled(dynamoStore, ctx, "GSI_AuthorStrokes", "UserId", userId, 50*time.Millisecond)
}

func (dynamoStore *DynamoCanvasStore) DeleteStrokesBefore(ctx context.Context, beforeMs int64) error {
	// Build a UUIDv7 boundary at the cutoff time; every stroke created before
	// it sorts strictly lower.
	boundary, err := uuid.NewV7AtTime(time.UnixMilli(beforeMs))
	if err != nil {
		return err
	}

	const queryPageSize int32 = 200

	for {
		resp, err := dynamoStore.client.Query(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(dynamoStore.tableName),
			KeyConditionExpression: aws.String("PK = :pk AND SK < :boundary"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk":       &types.AttributeValueMemberS{Value: canvasPK},
				":boundary": &types.AttributeValueMemberS{Value: boundary.String()},
			},
			ProjectionExpression: aws.String("PK, SK"),
			Limit:                aws.Int32(queryPageSize),
		})
		if err != nil {
			return fmt.Errorf("query strokes before cutoff failed: %w", err)
		}

		if len(resp.Items) == 0 {
			return nil
		}

		keys := make([]map[string]types.AttributeValue, 0, len(resp.Items))
		for _, item := range resp.Items {
			keys = append(keys, map[string]types.AttributeValue{
				"PK": item["PK"],
				"SK": item["SK"],
			})
		}

		if err := batchDeleteKeysThrottled(dynamoStore, ctx, keys, 50*time.Millisecond); err != nil {
			return err
		}

		// Deleting shifts the range, so always re-query from the start
		if resp.LastEvaluatedKey == nil && len(resp.Items) < int(queryPageSize) {
			return nil
		}
	}
}
