package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"catgraph/application/ports"
	pkgerrors "catgraph/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"
)

// DistributedLock implements ports.LockManager with DynamoDB conditional
// writes. Hierarchy mutations and bulk imports across API instances and
// Lambda invocations serialize on these locks.
type DistributedLock struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// lockRecord is the DynamoDB item shape for a held lock. The TTL attribute
// lets the table reap leases from crashed owners.
type lockRecord struct {
	PK         string `dynamodbav:"PK"` // LOCK#<resource>
	SK         string `dynamodbav:"SK"` // LOCK
	LockID     string `dynamodbav:"LockID"`
	Owner      string `dynamodbav:"Owner"`
	AcquiredAt string `dynamodbav:"AcquiredAt"`
	ExpiresAt  string `dynamodbav:"ExpiresAt"`
	TTL        int64  `dynamodbav:"TTL"`
}

const (
	lockKeyPrefix = "LOCK#"
	lockSortKey   = "LOCK"
)

// NewDistributedLock creates a new distributed lock manager
func NewDistributedLock(client *dynamodb.Client, tableName string, logger *zap.Logger) *DistributedLock {
	return &DistributedLock{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// AcquireLock obtains the named lock or fails immediately with
// ErrLockNotAcquired. An expired lease counts as free, so a crashed owner
// cannot block the resource past the TTL.
func (dl *DistributedLock) AcquireLock(ctx context.Context, resource, owner string, ttl time.Duration) (ports.Lock, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	lockID := fmt.Sprintf("%s_%d", owner, now.UnixNano())

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: lockKeyPrefix + resource},
		"SK":         &types.AttributeValueMemberS{Value: lockSortKey},
		"LockID":     &types.AttributeValueMemberS{Value: lockID},
		"Owner":      &types.AttributeValueMemberS{Value: owner},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(dl.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	}

	if _, err := dl.client.PutItem(ctx, input); err != nil {
		if isConditionalCheckFailed(err) {
			dl.logger.Debug("Lock already held",
				zap.String("resource", resource),
				zap.String("owner", owner),
			)
			return nil, pkgerrors.ErrLockNotAcquired.
				WithDetail("resource", resource).
				WithCause(err)
		}
		return nil, wrapDynamoError("acquire lock", err)
	}

	dl.logger.Debug("Lock acquired",
		zap.String("resource", resource),
		zap.String("lockID", lockID),
		zap.String("owner", owner),
		zap.Duration("ttl", ttl),
	)

	return &Lock{
		manager:   dl,
		resource:  resource,
		lockID:    lockID,
		owner:     owner,
		expiresAt: expiresAt,
	}, nil
}

// TryAcquireLock polls for the named lock until timeout elapses, backing
// off between attempts.
func (dl *DistributedLock) TryAcquireLock(ctx context.Context, resource, owner string, ttl, timeout time.Duration) (ports.Lock, error) {
	deadline := time.Now().Add(timeout)
	retryInterval := 100 * time.Millisecond

	for {
		lock, err := dl.AcquireLock(ctx, resource, owner, ttl)
		if err == nil {
			return lock, nil
		}
		if !errors.Is(err, pkgerrors.ErrLockNotAcquired) {
			return nil, err
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, pkgerrors.ErrLockNotAcquired.
				WithDetail("resource", resource).
				WithDetail("timeout", timeout.String())
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
			if retryInterval < time.Second {
				retryInterval = time.Duration(float64(retryInterval) * 1.5)
			}
		}
	}
}

// releaseLock deletes the lease only while this holder still owns it, so a
// late release cannot drop a lock someone else re-acquired.
func (dl *DistributedLock) releaseLock(ctx context.Context, resource, lockID, owner string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(dl.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: lockKeyPrefix + resource},
			"SK": &types.AttributeValueMemberS{Value: lockSortKey},
		},
		ConditionExpression: aws.String("LockID = :lockId AND #owner = :owner"),
		ExpressionAttributeNames: map[string]string{
			"#owner": "Owner",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: lockID},
			":owner":  &types.AttributeValueMemberS{Value: owner},
		},
	}

	if _, err := dl.client.DeleteItem(ctx, input); err != nil {
		if isConditionalCheckFailed(err) {
			dl.logger.Warn("Lock expired or re-acquired before release",
				zap.String("resource", resource),
				zap.String("lockID", lockID),
			)
			return nil
		}
		return wrapDynamoError("release lock", err)
	}

	dl.logger.Debug("Lock released",
		zap.String("resource", resource),
		zap.String("lockID", lockID),
	)

	return nil
}

// Lock is a held lease on a named resource
type Lock struct {
	manager   *DistributedLock
	resource  string
	lockID    string
	owner     string
	expiresAt time.Time
}

// Release gives the lock up before its TTL expires
func (l *Lock) Release(ctx context.Context) error {
	return l.manager.releaseLock(ctx, l.resource, l.lockID, l.owner)
}

// IsExpired reports whether the lease has outlived its TTL
func (l *Lock) IsExpired() bool {
	return time.Now().After(l.expiresAt)
}
