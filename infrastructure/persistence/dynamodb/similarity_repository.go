package dynamodb

import (
	"context"
	"fmt"
	"time"

	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// SimilarityRepository implements ports.SimilarityRepository. Every edge is
// one item keyed by its canonical pair, so duplicates cannot exist at the
// storage level. GSI2 indexes the first endpoint, GSI3 the second;
// per-category lookups query both.
type SimilarityRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewSimilarityRepository creates a new SimilarityRepository
func NewSimilarityRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *SimilarityRepository {
	return &SimilarityRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// edgeItem is the DynamoDB item shape for one canonical similarity edge
type edgeItem struct {
	PK         string `dynamodbav:"PK"`
	SK         string `dynamodbav:"SK"`
	GSI1PK     string `dynamodbav:"GSI1PK"`
	GSI1SK     string `dynamodbav:"GSI1SK"`
	GSI2PK     string `dynamodbav:"GSI2PK"`
	GSI2SK     string `dynamodbav:"GSI2SK"`
	GSI3PK     string `dynamodbav:"GSI3PK"`
	GSI3SK     string `dynamodbav:"GSI3SK"`
	EntityType string `dynamodbav:"EntityType"`
	FirstID    string `dynamodbav:"FirstID"`
	SecondID   string `dynamodbav:"SecondID"`
	CreatedAt  string `dynamodbav:"CreatedAt"`
}

func edgePK(edge valueobjects.SimilarityEdge) string {
	return edgeKeyPrefix + edge.First().String() + "#" + edge.Second().String()
}

func edgeKey(edge valueobjects.SimilarityEdge) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: edgePK(edge)},
		"SK": &types.AttributeValueMemberS{Value: metadataSortKey},
	}
}

func edgeToItem(edge valueobjects.SimilarityEdge) edgeItem {
	first := edge.First().String()
	second := edge.Second().String()
	pk := edgePK(edge)

	return edgeItem{
		PK:         pk,
		SK:         metadataSortKey,
		GSI1PK:     edgeTypePartition,
		GSI1SK:     pk,
		GSI2PK:     categoryKeyPrefix + first,
		GSI2SK:     edgeKeyPrefix + second,
		GSI3PK:     categoryKeyPrefix + second,
		GSI3SK:     edgeKeyPrefix + first,
		EntityType: "EDGE",
		FirstID:    first,
		SecondID:   second,
		CreatedAt:  time.Now().Format(time.RFC3339Nano),
	}
}

func itemToEdge(item edgeItem) (valueobjects.SimilarityEdge, error) {
	first, err := valueobjects.NewCategoryIDFromString(item.FirstID)
	if err != nil {
		return valueobjects.SimilarityEdge{}, fmt.Errorf("stored edge has invalid first endpoint %q: %w", item.FirstID, err)
	}
	second, err := valueobjects.NewCategoryIDFromString(item.SecondID)
	if err != nil {
		return valueobjects.SimilarityEdge{}, fmt.Errorf("stored edge has invalid second endpoint %q: %w", item.SecondID, err)
	}

	edge, err := valueobjects.NewSimilarityEdge(first, second)
	if err != nil {
		return valueobjects.SimilarityEdge{}, fmt.Errorf("stored edge %s|%s is invalid: %w", item.FirstID, item.SecondID, err)
	}
	return edge, nil
}

// Save persists an edge. Saving an already stored pair is a no-op: the
// conditional put loses and that is the desired outcome.
func (r *SimilarityRepository) Save(ctx context.Context, edge valueobjects.SimilarityEdge) error {
	av, err := attributevalue.MarshalMap(edgeToItem(edge))
	if err != nil {
		return fmt.Errorf("failed to marshal edge: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		if isConditionalCheckFailed(err) {
			r.logger.Debug("Edge already stored",
				zap.String("first", edge.First().String()),
				zap.String("second", edge.Second().String()),
			)
			return nil
		}
		return wrapDynamoError("save edge", err)
	}

	return nil
}

// Exists reports whether the edge is stored
func (r *SimilarityRepository) Exists(ctx context.Context, edge valueobjects.SimilarityEdge) (bool, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:            aws.String(r.tableName),
		Key:                  edgeKey(edge),
		ProjectionExpression: aws.String("PK"),
	})
	if err != nil {
		return false, wrapDynamoError("check edge", err)
	}
	return result.Item != nil, nil
}

// GetAll retrieves every stored edge via the type partition
func (r *SimilarityRepository) GetAll(ctx context.Context) ([]valueobjects.SimilarityEdge, error) {
	return r.queryEdges(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: edgeTypePartition},
		},
	})
}

// GetByCategoryID retrieves all edges touching a category. An edge lands in
// GSI2 under its first endpoint and GSI3 under its second, and endpoints
// are always distinct, so the two queries never overlap.
func (r *SimilarityRepository) GetByCategoryID(ctx context.Context, id valueobjects.CategoryID) ([]valueobjects.SimilarityEdge, error) {
	partition := categoryKeyPrefix + id.String()

	asFirst, err := r.queryEdges(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi2Name),
		KeyConditionExpression: aws.String("GSI2PK = :pk AND begins_with(GSI2SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: partition},
			":prefix": &types.AttributeValueMemberS{Value: edgeKeyPrefix},
		},
	})
	if err != nil {
		return nil, err
	}

	asSecond, err := r.queryEdges(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi3Name),
		KeyConditionExpression: aws.String("GSI3PK = :pk AND begins_with(GSI3SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: partition},
			":prefix": &types.AttributeValueMemberS{Value: edgeKeyPrefix},
		},
	})
	if err != nil {
		return nil, err
	}

	return append(asFirst, asSecond...), nil
}

func (r *SimilarityRepository) queryEdges(ctx context.Context, input *dynamodb.QueryInput) ([]valueobjects.SimilarityEdge, error) {
	var edges []valueobjects.SimilarityEdge

	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, wrapDynamoError("query edges", err)
		}

		for _, raw := range result.Items {
			var item edgeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal edge: %w", err)
			}
			edge, err := itemToEdge(item)
			if err != nil {
				return nil, err
			}
			edges = append(edges, edge)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return edges, nil
}

// Delete removes an edge
func (r *SimilarityRepository) Delete(ctx context.Context, edge valueobjects.SimilarityEdge) error {
	input := &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 edgeKey(edge),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		if isConditionalCheckFailed(err) {
			return pkgerrors.ErrSimilarityNotFound.
				WithDetail("category_a", edge.First().String()).
				WithDetail("category_b", edge.Second().String()).
				WithCause(err)
		}
		return wrapDynamoError("delete edge", err)
	}

	return nil
}

// DeleteByCategoryID removes all edges touching a category and returns how
// many were removed
func (r *SimilarityRepository) DeleteByCategoryID(ctx context.Context, id valueobjects.CategoryID) (int, error) {
	edges, err := r.GetByCategoryID(ctx, id)
	if err != nil {
		return 0, err
	}
	if len(edges) == 0 {
		return 0, nil
	}

	requests := make([]types.WriteRequest, 0, len(edges))
	for _, edge := range edges {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: edgeKey(edge)},
		})
	}

	if err := writeBatches(ctx, r.client, r.tableName, requests); err != nil {
		return 0, wrapDynamoError("delete edges by category", err)
	}

	r.logger.Debug("Deleted edges for category",
		zap.String("categoryID", id.String()),
		zap.Int("count", len(edges)),
	)

	return len(edges), nil
}

// BulkSave saves multiple edges in one round trip. Unlike Save it
// overwrites existing items, which re-stamps CreatedAt on re-imports.
func (r *SimilarityRepository) BulkSave(ctx context.Context, edges []valueobjects.SimilarityEdge) error {
	if len(edges) == 0 {
		return nil
	}

	requests := make([]types.WriteRequest, 0, len(edges))
	for _, edge := range edges {
		av, err := attributevalue.MarshalMap(edgeToItem(edge))
		if err != nil {
			return fmt.Errorf("failed to marshal edge %s: %w", edge.Key(), err)
		}
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}

	if err := writeBatches(ctx, r.client, r.tableName, requests); err != nil {
		return wrapDynamoError("bulk save edges", err)
	}

	r.logger.Debug("Bulk saved edges", zap.Int("count", len(edges)))
	return nil
}

// CountAll returns the number of stored edges without fetching items
func (r *SimilarityRepository) CountAll(ctx context.Context) (int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: edgeTypePartition},
		},
		Select: types.SelectCount,
	}

	total := 0
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return 0, wrapDynamoError("count edges", err)
		}
		total += int(result.Count)

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return total, nil
}
