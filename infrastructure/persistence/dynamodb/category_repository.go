package dynamodb

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"catgraph/application/ports"
	"catgraph/domain/core/entities"
	"catgraph/domain/core/valueobjects"
	pkgerrors "catgraph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// CategoryRepository implements ports.CategoryRepository on the single
// table described in the package comment.
type CategoryRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewCategoryRepository creates a new CategoryRepository
func NewCategoryRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) *CategoryRepository {
	return &CategoryRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// categoryItem is the DynamoDB item shape for one category. NameLower
// backs case-insensitive substring search without touching the display name.
type categoryItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	GSI1PK      string `dynamodbav:"GSI1PK"`
	GSI1SK      string `dynamodbav:"GSI1SK"`
	GSI2PK      string `dynamodbav:"GSI2PK"`
	GSI2SK      string `dynamodbav:"GSI2SK"`
	EntityType  string `dynamodbav:"EntityType"`
	CategoryID  string `dynamodbav:"CategoryID"`
	Name        string `dynamodbav:"Name"`
	NameLower   string `dynamodbav:"NameLower"`
	Description string `dynamodbav:"Description,omitempty"`
	ParentID    string `dynamodbav:"ParentID,omitempty"`
	ImageURL    string `dynamodbav:"ImageURL,omitempty"`
	CreatedAt   string `dynamodbav:"CreatedAt"`
	UpdatedAt   string `dynamodbav:"UpdatedAt"`
	Version     int    `dynamodbav:"Version"`
}

func categoryKey(id valueobjects.CategoryID) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: categoryKeyPrefix + id.String()},
		"SK": &types.AttributeValueMemberS{Value: metadataSortKey},
	}
}

func categoryToItem(category *entities.Category) categoryItem {
	parentPartition := rootParentPartition
	parentID := ""
	if !category.IsRoot() {
		parentID = category.ParentID().String()
		parentPartition = parentKeyPrefix + parentID
	}

	id := category.ID().String()
	return categoryItem{
		PK:          categoryKeyPrefix + id,
		SK:          metadataSortKey,
		GSI1PK:      categoryTypePartition,
		GSI1SK:      categoryKeyPrefix + id,
		GSI2PK:      parentPartition,
		GSI2SK:      categoryKeyPrefix + id,
		EntityType:  "CATEGORY",
		CategoryID:  id,
		Name:        category.Name(),
		NameLower:   strings.ToLower(category.Name()),
		Description: category.Label().Description(),
		ParentID:    parentID,
		ImageURL:    category.ImageURL(),
		CreatedAt:   category.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:   category.UpdatedAt().Format(time.RFC3339Nano),
		Version:     category.Version(),
	}
}

func itemToCategory(item categoryItem) (*entities.Category, error) {
	id, err := valueobjects.NewCategoryIDFromString(item.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("stored category has invalid ID %q: %w", item.CategoryID, err)
	}

	label, err := valueobjects.NewCategoryLabel(item.Name, item.Description)
	if err != nil {
		return nil, fmt.Errorf("stored category %s has invalid label: %w", item.CategoryID, err)
	}

	var parentID valueobjects.CategoryID
	if item.ParentID != "" {
		parentID, err = valueobjects.NewCategoryIDFromString(item.ParentID)
		if err != nil {
			return nil, fmt.Errorf("stored category %s has invalid parent %q: %w", item.CategoryID, item.ParentID, err)
		}
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("stored category %s has invalid CreatedAt: %w", item.CategoryID, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("stored category %s has invalid UpdatedAt: %w", item.CategoryID, err)
	}

	return entities.ReconstructCategory(id, label, parentID, item.ImageURL, createdAt, updatedAt, item.Version)
}

// Save persists a category. The condition keeps stale writers out: the put
// only lands when the item is new or the stored version is older.
func (r *CategoryRepository) Save(ctx context.Context, category *entities.Category) error {
	av, err := attributevalue.MarshalMap(categoryToItem(category))
	if err != nil {
		return fmt.Errorf("failed to marshal category: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(r.tableName),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR Version < :version"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":version": &types.AttributeValueMemberN{Value: strconv.Itoa(category.Version())},
		},
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		if isConditionalCheckFailed(err) {
			return pkgerrors.ErrConcurrentModification.
				WithDetail("category_id", category.ID().String()).
				WithCause(err)
		}
		return wrapDynamoError("save category", err)
	}

	r.logger.Debug("Saved category",
		zap.String("categoryID", category.ID().String()),
		zap.Int("version", category.Version()),
	)

	return nil
}

// GetByID retrieves a category by its ID
func (r *CategoryRepository) GetByID(ctx context.Context, id valueobjects.CategoryID) (*entities.Category, error) {
	result, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       categoryKey(id),
	})
	if err != nil {
		return nil, wrapDynamoError("get category", err)
	}
	if result.Item == nil {
		return nil, pkgerrors.ErrCategoryNotFound.WithDetail("category_id", id.String())
	}

	var item categoryItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal category: %w", err)
	}

	return itemToCategory(item)
}

// GetAll retrieves the full category snapshot via the type partition
func (r *CategoryRepository) GetAll(ctx context.Context) ([]*entities.Category, error) {
	return r.queryCategories(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: categoryTypePartition},
		},
	})
}

// GetByParentID retrieves the direct children of a category
func (r *CategoryRepository) GetByParentID(ctx context.Context, parentID valueobjects.CategoryID) ([]*entities.Category, error) {
	return r.queryParentPartition(ctx, parentKeyPrefix+parentID.String())
}

// GetRoots retrieves all categories without a parent
func (r *CategoryRepository) GetRoots(ctx context.Context) ([]*entities.Category, error) {
	return r.queryParentPartition(ctx, rootParentPartition)
}

func (r *CategoryRepository) queryParentPartition(ctx context.Context, partition string) ([]*entities.Category, error) {
	return r.queryCategories(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi2Name),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: partition},
		},
	})
}

func (r *CategoryRepository) queryCategories(ctx context.Context, input *dynamodb.QueryInput) ([]*entities.Category, error) {
	var categories []*entities.Category

	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, wrapDynamoError("query categories", err)
		}

		for _, raw := range result.Items {
			var item categoryItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				return nil, fmt.Errorf("failed to unmarshal category: %w", err)
			}
			category, err := itemToCategory(item)
			if err != nil {
				return nil, err
			}
			categories = append(categories, category)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return categories, nil
}

// Search finds categories matching the criteria. The parent and name
// filters run server-side; ordering and windowing happen here because the
// table cannot sort on arbitrary attributes.
func (r *CategoryRepository) Search(ctx context.Context, criteria ports.ListCriteria) ([]*entities.Category, int, error) {
	indexName := gsi1Name
	keyEx := expression.Key("GSI1PK").Equal(expression.Value(categoryTypePartition))
	switch {
	case criteria.RootsOnly:
		indexName = gsi2Name
		keyEx = expression.Key("GSI2PK").Equal(expression.Value(rootParentPartition))
	case !criteria.ParentID.IsZero():
		indexName = gsi2Name
		keyEx = expression.Key("GSI2PK").Equal(expression.Value(parentKeyPrefix + criteria.ParentID.String()))
	}

	builder := expression.NewBuilder().WithKeyCondition(keyEx)
	if criteria.Search != "" {
		builder = builder.WithFilter(expression.Name("NameLower").Contains(strings.ToLower(criteria.Search)))
	}
	expr, err := builder.Build()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build search expression: %w", err)
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(indexName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	matches, err := r.queryCategories(ctx, input)
	if err != nil {
		return nil, 0, err
	}

	sortCategories(matches, criteria.OrderBy, criteria.OrderDesc)

	total := len(matches)
	window := matches
	if criteria.Offset > 0 {
		if criteria.Offset >= len(window) {
			window = nil
		} else {
			window = window[criteria.Offset:]
		}
	}
	if criteria.Limit > 0 && criteria.Limit < len(window) {
		window = window[:criteria.Limit]
	}

	return window, total, nil
}

func sortCategories(categories []*entities.Category, orderBy string, desc bool) {
	less := func(a, b *entities.Category) bool {
		switch orderBy {
		case "created_at":
			if !a.CreatedAt().Equal(b.CreatedAt()) {
				return a.CreatedAt().Before(b.CreatedAt())
			}
		case "updated_at":
			if !a.UpdatedAt().Equal(b.UpdatedAt()) {
				return a.UpdatedAt().Before(b.UpdatedAt())
			}
		default:
			an, bn := strings.ToLower(a.Name()), strings.ToLower(b.Name())
			if an != bn {
				return an < bn
			}
		}
		// Ties break on ID so pagination never reshuffles.
		return a.ID().Less(b.ID())
	}

	sort.SliceStable(categories, func(i, j int) bool {
		if desc {
			return less(categories[j], categories[i])
		}
		return less(categories[i], categories[j])
	})
}

// Delete removes a category
func (r *CategoryRepository) Delete(ctx context.Context, id valueobjects.CategoryID) error {
	input := &dynamodb.DeleteItemInput{
		TableName:           aws.String(r.tableName),
		Key:                 categoryKey(id),
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		if isConditionalCheckFailed(err) {
			return pkgerrors.ErrCategoryNotFound.
				WithDetail("category_id", id.String()).
				WithCause(err)
		}
		return wrapDynamoError("delete category", err)
	}

	r.logger.Debug("Deleted category", zap.String("categoryID", id.String()))
	return nil
}

// BulkSave saves multiple categories in one round trip. Batch writes carry
// no condition expressions, so optimistic locking does not apply here;
// callers own the versions they hand in.
func (r *CategoryRepository) BulkSave(ctx context.Context, categories []*entities.Category) error {
	if len(categories) == 0 {
		return nil
	}

	requests := make([]types.WriteRequest, 0, len(categories))
	for _, category := range categories {
		av, err := attributevalue.MarshalMap(categoryToItem(category))
		if err != nil {
			return fmt.Errorf("failed to marshal category %s: %w", category.ID().String(), err)
		}
		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}

	if err := writeBatches(ctx, r.client, r.tableName, requests); err != nil {
		return wrapDynamoError("bulk save categories", err)
	}

	r.logger.Debug("Bulk saved categories", zap.Int("count", len(categories)))
	return nil
}

// DeleteBatch removes multiple categories in a batch operation
func (r *CategoryRepository) DeleteBatch(ctx context.Context, ids []valueobjects.CategoryID) error {
	if len(ids) == 0 {
		return nil
	}

	requests := make([]types.WriteRequest, 0, len(ids))
	for _, id := range ids {
		requests = append(requests, types.WriteRequest{
			DeleteRequest: &types.DeleteRequest{Key: categoryKey(id)},
		})
	}

	if err := writeBatches(ctx, r.client, r.tableName, requests); err != nil {
		return wrapDynamoError("batch delete categories", err)
	}

	r.logger.Debug("Batch deleted categories", zap.Int("count", len(ids)))
	return nil
}

// CountAll returns the number of stored categories without fetching items
func (r *CategoryRepository) CountAll(ctx context.Context) (int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: categoryTypePartition},
		},
		Select: types.SelectCount,
	}

	total := 0
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return 0, wrapDynamoError("count categories", err)
		}
		total += int(result.Count)

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return total, nil
}
