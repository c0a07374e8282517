package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"catgraph/domain/events"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
)

// EventStore persists domain events and doubles as the outbox: every row
// starts pending and sits in a sparse GSI partition until the processor
// relays it to the external bus.
type EventStore struct {
	client    *dynamodb.Client
	tableName string
}

// PublishStatus represents the publishing status of an event
type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "pending"
	PublishStatusPublished PublishStatus = "published"
	PublishStatusFailed    PublishStatus = "failed"
)

const (
	eventKeyPrefix     = "EVENTS#"
	eventSortPrefix    = "EVENT#"
	eventTypePrefix    = "EVENTTYPE#"
	outboxPendingKey   = "OUTBOX#PENDING"
	maxPublishAttempts = 3

	// Rows age out of the table a year after the event happened.
	eventRetention = 365 * 24 * time.Hour
)

// EventRecord is the DynamoDB item shape for one stored event. GSI1 is
// sparse: the attributes are present only while the event awaits publishing,
// so the pending partition stays small no matter how much history exists.
type EventRecord struct {
	PK          string                 `dynamodbav:"PK"` // EVENTS#<aggregate_id>
	SK          string                 `dynamodbav:"SK"` // EVENT#<timestamp>#<event_id>
	EventID     string                 `dynamodbav:"EventID"`
	EventType   string                 `dynamodbav:"EventType"`
	AggregateID string                 `dynamodbav:"AggregateID"`
	EventData   map[string]interface{} `dynamodbav:"EventData"`
	Timestamp   string                 `dynamodbav:"Timestamp"`
	Version     int                    `dynamodbav:"Version"`

	PublishStatus   string `dynamodbav:"PublishStatus"`
	PublishAttempts int    `dynamodbav:"PublishAttempts"`
	LastPublishTry  string `dynamodbav:"LastPublishTry,omitempty"`
	PublishedAt     string `dynamodbav:"PublishedAt,omitempty"`
	ErrorMessage    string `dynamodbav:"ErrorMessage,omitempty"`

	GSI1PK string `dynamodbav:"GSI1PK,omitempty"` // OUTBOX#PENDING while unpublished
	GSI1SK string `dynamodbav:"GSI1SK,omitempty"` // EVENT#<timestamp>
	GSI2PK string `dynamodbav:"GSI2PK"`           // EVENTTYPE#<type>
	GSI2SK string `dynamodbav:"GSI2SK"`           // EVENT#<timestamp>

	TTL int64 `dynamodbav:"TTL,omitempty"`
}

// NewEventStore creates a new DynamoDB event store
func NewEventStore(client *dynamodb.Client, tableName string) *EventStore {
	return &EventStore{
		client:    client,
		tableName: tableName,
	}
}

// SaveEvents persists domain events to the event store
func (es *EventStore) SaveEvents(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	requests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := es.eventToRecord(event)
		if err != nil {
			return fmt.Errorf("failed to convert event to record: %w", err)
		}

		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}

		requests = append(requests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	if err := writeBatches(ctx, es.client, es.tableName, requests); err != nil {
		return wrapDynamoError("save events", err)
	}

	return nil
}

// GetEvents retrieves all events for an aggregate, oldest first
func (es *EventStore) GetEvents(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	records, err := es.queryRecords(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: eventKeyPrefix + aggregateID},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}
	return es.recordsToEvents(records)
}

// GetEventsByType retrieves the most recent events of a specific type
func (es *EventStore) GetEventsByType(ctx context.Context, eventType string, limit int) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String(gsi2Name),
		KeyConditionExpression: aws.String("GSI2PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: eventTypePrefix + eventType},
		},
		ScanIndexForward: aws.Bool(false),
	}
	if limit > 0 {
		input.Limit = aws.Int32(int32(limit))
	}

	result, err := es.client.Query(ctx, input)
	if err != nil {
		return nil, wrapDynamoError("query events by type", err)
	}

	records, err := unmarshalRecords(result.Items)
	if err != nil {
		return nil, err
	}
	return es.recordsToEvents(records)
}

// GetEventsAfter retrieves events for an aggregate past a version
func (es *EventStore) GetEventsAfter(ctx context.Context, aggregateID string, version int) ([]events.DomainEvent, error) {
	all, err := es.GetEvents(ctx, aggregateID)
	if err != nil {
		return nil, err
	}

	var filtered []events.DomainEvent
	for _, event := range all {
		if event.GetVersion() > version {
			filtered = append(filtered, event)
		}
	}
	return filtered, nil
}

// DeleteEvents removes all events for an aggregate
func (es *EventStore) DeleteEvents(ctx context.Context, aggregateID string) error {
	return es.DeleteEventsBatch(ctx, []string{aggregateID})
}

// DeleteEventsBatch removes all events for multiple aggregates
func (es *EventStore) DeleteEventsBatch(ctx context.Context, aggregateIDs []string) error {
	var requests []types.WriteRequest

	for _, aggregateID := range aggregateIDs {
		records, err := es.queryRecords(ctx, &dynamodb.QueryInput{
			TableName:              aws.String(es.tableName),
			KeyConditionExpression: aws.String("PK = :pk"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":pk": &types.AttributeValueMemberS{Value: eventKeyPrefix + aggregateID},
			},
			ProjectionExpression: aws.String("PK, SK"),
		})
		if err != nil {
			return err
		}

		for _, record := range records {
			requests = append(requests, types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{
					Key: map[string]types.AttributeValue{
						"PK": &types.AttributeValueMemberS{Value: record.PK},
						"SK": &types.AttributeValueMemberS{Value: record.SK},
					},
				},
			})
		}
	}

	if len(requests) == 0 {
		return nil
	}
	if err := writeBatches(ctx, es.client, es.tableName, requests); err != nil {
		return wrapDynamoError("delete events", err)
	}
	return nil
}

// PrepareEventItems converts events into transactional writes so the unit
// of work can commit them with the entity items they belong to.
func (es *EventStore) PrepareEventItems(domainEvents ...events.DomainEvent) ([]types.TransactWriteItem, error) {
	items := make([]types.TransactWriteItem, 0, len(domainEvents))

	for _, event := range domainEvents {
		record, err := es.eventToRecord(event)
		if err != nil {
			return nil, err
		}

		av, err := attributevalue.MarshalMap(record)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event record: %w", err)
		}

		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(es.tableName),
				Item:      av,
			},
		})
	}

	return items, nil
}

// Outbox methods, used by the OutboxProcessor.

// GetPendingEvents retrieves unpublished events, oldest first. The sparse
// GSI1 partition holds only pending rows, so this is a cheap query.
func (es *EventStore) GetPendingEvents(ctx context.Context, limit int32) ([]*EventRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	result, err := es.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: outboxPendingKey},
		},
		ScanIndexForward: aws.Bool(true),
		Limit:            aws.Int32(limit),
	})
	if err != nil {
		return nil, wrapDynamoError("query pending events", err)
	}

	records := make([]*EventRecord, 0, len(result.Items))
	for _, item := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			continue // Skip malformed records rather than stall the outbox.
		}
		records = append(records, &record)
	}

	return records, nil
}

// MarkEventAsPublished records a successful publish and drops the row out
// of the pending partition.
func (es *EventStore) MarkEventAsPublished(ctx context.Context, eventPK, eventSK string) error {
	now := time.Now().Format(time.RFC3339)

	_, err := es.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: eventPK},
			"SK": &types.AttributeValueMemberS{Value: eventSK},
		},
		UpdateExpression: aws.String("SET PublishStatus = :published, PublishedAt = :publishedAt REMOVE GSI1PK, GSI1SK"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":published":   &types.AttributeValueMemberS{Value: string(PublishStatusPublished)},
			":publishedAt": &types.AttributeValueMemberS{Value: now},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return wrapDynamoError("mark event published", err)
	}

	return nil
}

// MarkEventAsFailed records a publish failure. The row stays pending until
// the attempt budget is spent, then leaves the pending partition for good.
func (es *EventStore) MarkEventAsFailed(ctx context.Context, eventPK, eventSK, errorMsg string, attempts int) error {
	now := time.Now().Format(time.RFC3339)

	update := "SET PublishStatus = :status, PublishAttempts = :attempts, LastPublishTry = :lastTry, ErrorMessage = :error"
	status := string(PublishStatusPending)
	if attempts >= maxPublishAttempts {
		status = string(PublishStatusFailed)
		update += " REMOVE GSI1PK, GSI1SK"
	}

	_, err := es.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: eventPK},
			"SK": &types.AttributeValueMemberS{Value: eventSK},
		},
		UpdateExpression: aws.String(update),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: status},
			":attempts": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", attempts)},
			":lastTry":  &types.AttributeValueMemberS{Value: now},
			":error":    &types.AttributeValueMemberS{Value: errorMsg},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	})
	if err != nil {
		return wrapDynamoError("mark event failed", err)
	}

	return nil
}

func (es *EventStore) queryRecords(ctx context.Context, input *dynamodb.QueryInput) ([]EventRecord, error) {
	var records []EventRecord

	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, wrapDynamoError("query events", err)
		}

		batch, err := unmarshalRecords(result.Items)
		if err != nil {
			return nil, err
		}
		records = append(records, batch...)

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return records, nil
}

func unmarshalRecords(items []map[string]types.AttributeValue) ([]EventRecord, error) {
	records := make([]EventRecord, 0, len(items))
	for _, item := range items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(item, &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (es *EventStore) recordsToEvents(records []EventRecord) ([]events.DomainEvent, error) {
	domainEvents := make([]events.DomainEvent, 0, len(records))
	for _, record := range records {
		event, err := recordToEvent(record)
		if err != nil {
			return nil, fmt.Errorf("failed to convert record to event: %w", err)
		}
		domainEvents = append(domainEvents, event)
	}
	return domainEvents, nil
}

// eventToRecord converts a domain event to a DynamoDB record. The event is
// round-tripped through JSON so the stored data uses the same field names
// the API emits.
func (es *EventStore) eventToRecord(event events.DomainEvent) (*EventRecord, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	eventData := make(map[string]interface{})
	if err := json.Unmarshal(raw, &eventData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event to map: %w", err)
	}

	eventID := uuid.New().String()
	timestamp := event.GetTimestamp()
	sortStamp := timestamp.Format(time.RFC3339Nano)

	return &EventRecord{
		PK:          eventKeyPrefix + event.GetAggregateID(),
		SK:          eventSortPrefix + sortStamp + "#" + eventID,
		EventID:     eventID,
		EventType:   event.GetEventType(),
		AggregateID: event.GetAggregateID(),
		EventData:   eventData,
		Timestamp:   timestamp.Format(time.RFC3339),
		Version:     event.GetVersion(),

		PublishStatus:   string(PublishStatusPending),
		PublishAttempts: 0,

		GSI1PK: outboxPendingKey,
		GSI1SK: eventSortPrefix + sortStamp,
		GSI2PK: eventTypePrefix + event.GetEventType(),
		GSI2SK: eventSortPrefix + sortStamp,

		TTL: timestamp.Add(eventRetention).Unix(),
	}, nil
}

// recordToEvent rebuilds the concrete event from its stored data. Unknown
// event types come back as bare base events instead of failing the read.
func recordToEvent(record EventRecord) (events.DomainEvent, error) {
	switch record.EventType {
	case "category.created":
		return decodeEvent[events.CategoryCreated](record)
	case "category.relabeled":
		return decodeEvent[events.CategoryRelabeled](record)
	case "category.moved":
		return decodeEvent[events.CategoryMoved](record)
	case "category.deleted":
		return decodeEvent[events.CategoryDeleted](record)
	case "categories.linked":
		return decodeEvent[events.CategoriesLinked](record)
	case "categories.unlinked":
		return decodeEvent[events.CategoriesUnlinked](record)
	case "analysis.completed":
		return decodeEvent[events.AnalysisCompleted](record)
	default:
		timestamp, err := time.Parse(time.RFC3339, record.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("failed to parse timestamp: %w", err)
		}
		return events.BaseEvent{
			AggregateID: record.AggregateID,
			EventType:   record.EventType,
			Timestamp:   timestamp,
			Version:     record.Version,
		}, nil
	}
}

// decodeEvent round-trips the stored data map back through JSON into the
// concrete event type, restoring the embedded base fields along the way.
func decodeEvent[T events.DomainEvent](record EventRecord) (events.DomainEvent, error) {
	raw, err := json.Marshal(record.EventData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal stored event data: %w", err)
	}

	var event T
	if err := json.Unmarshal(raw, &event); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", record.EventType, err)
	}

	return event, nil
}
