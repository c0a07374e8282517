package dynamodb

import (
	"context"
	"fmt"
	"time"

	"catgraph/application/ports"

	"go.uber.org/zap"
)

// OutboxProcessor relays stored events to the external event bus. Events
// stay in the pending partition until publishing succeeds or the attempt
// budget runs out, so a crash between commit and publish loses nothing.
type OutboxProcessor struct {
	eventStore     *EventStore
	eventPublisher ports.EventPublisher
	logger         *zap.Logger

	batchSize          int32
	processingInterval time.Duration

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	eventStore *EventStore,
	eventPublisher ports.EventPublisher,
	logger *zap.Logger,
) *OutboxProcessor {
	return &OutboxProcessor{
		eventStore:         eventStore,
		eventPublisher:     eventPublisher,
		logger:             logger,
		batchSize:          50,
		processingInterval: 5 * time.Second,
		stopChan:           make(chan struct{}),
		stoppedChan:        make(chan struct{}),
	}
}

// Start begins the background processing of outbox events
func (op *OutboxProcessor) Start(ctx context.Context) {
	op.logger.Info("Starting outbox processor",
		zap.Int32("batchSize", op.batchSize),
		zap.Duration("interval", op.processingInterval),
	)

	go op.processLoop(ctx)
}

// Stop gracefully stops the outbox processor
func (op *OutboxProcessor) Stop() {
	op.logger.Info("Stopping outbox processor")
	close(op.stopChan)
	<-op.stoppedChan
	op.logger.Info("Outbox processor stopped")
}

func (op *OutboxProcessor) processLoop(ctx context.Context) {
	defer close(op.stoppedChan)

	ticker := time.NewTicker(op.processingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			op.logger.Info("Context cancelled, stopping outbox processor")
			return
		case <-op.stopChan:
			return
		case <-ticker.C:
			if err := op.processBatch(ctx); err != nil {
				op.logger.Error("Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

// ProcessPending drains one batch immediately. Lambda handlers call this
// after each invocation because tickers do not fire while the execution
// environment is frozen.
func (op *OutboxProcessor) ProcessPending(ctx context.Context) error {
	return op.processBatch(ctx)
}

// processBatch drains one batch of pending events, oldest first.
func (op *OutboxProcessor) processBatch(ctx context.Context) error {
	pending, err := op.eventStore.GetPendingEvents(ctx, op.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}

	if len(pending) == 0 {
		return nil
	}

	successCount := 0
	failureCount := 0

	for _, record := range pending {
		if err := op.processEvent(ctx, record); err != nil {
			op.logger.Error("Failed to process event",
				zap.String("eventID", record.EventID),
				zap.String("eventType", record.EventType),
				zap.Error(err),
			)
			failureCount++
		} else {
			successCount++
		}
	}

	op.logger.Debug("Completed outbox batch",
		zap.Int("published", successCount),
		zap.Int("failed", failureCount),
	)

	return nil
}

func (op *OutboxProcessor) processEvent(ctx context.Context, record *EventRecord) error {
	domainEvent, err := recordToEvent(*record)
	if err != nil {
		return op.markEventFailed(ctx, record, fmt.Sprintf("failed to decode event: %v", err))
	}

	if err := op.eventPublisher.Publish(ctx, domainEvent); err != nil {
		return op.markEventFailed(ctx, record, fmt.Sprintf("publish failed: %v", err))
	}

	return op.markEventPublished(ctx, record)
}

func (op *OutboxProcessor) markEventPublished(ctx context.Context, record *EventRecord) error {
	if err := op.eventStore.MarkEventAsPublished(ctx, record.PK, record.SK); err != nil {
		op.logger.Error("Failed to mark event as published",
			zap.String("eventID", record.EventID),
			zap.Error(err),
		)
		return err
	}

	op.logger.Debug("Event published",
		zap.String("eventID", record.EventID),
		zap.String("eventType", record.EventType),
	)

	return nil
}

func (op *OutboxProcessor) markEventFailed(ctx context.Context, record *EventRecord, errorMsg string) error {
	attempts := record.PublishAttempts + 1

	if err := op.eventStore.MarkEventAsFailed(ctx, record.PK, record.SK, errorMsg, attempts); err != nil {
		op.logger.Error("Failed to record publish failure",
			zap.String("eventID", record.EventID),
			zap.Error(err),
		)
		return err
	}

	if attempts >= maxPublishAttempts {
		op.logger.Warn("Event permanently failed after max attempts",
			zap.String("eventID", record.EventID),
			zap.String("eventType", record.EventType),
			zap.Int("attempts", attempts),
			zap.String("error", errorMsg),
		)
	} else {
		op.logger.Debug("Event marked for retry",
			zap.String("eventID", record.EventID),
			zap.String("eventType", record.EventType),
			zap.Int("attempts", attempts),
		)
	}

	return fmt.Errorf("event processing failed: %s", errorMsg)
}

// Stats reports whether the outbox currently holds pending events together
// with the processor's configuration. The health endpoint surfaces this.
func (op *OutboxProcessor) Stats(ctx context.Context) (map[string]interface{}, error) {
	pending, err := op.eventStore.GetPendingEvents(ctx, 1)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"hasPendingEvents":   len(pending) > 0,
		"batchSize":          op.batchSize,
		"processingInterval": op.processingInterval.String(),
		"maxAttempts":        maxPublishAttempts,
	}, nil
}
