package dynamodb

import (
	"errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	pkgerrors "catgraph/pkg/errors"
)

// isConditionalCheckFailed reports whether err is a failed condition
// expression, either on a single-item write or on any member of a
// transaction. The typed checks avoid matching on error strings.
func isConditionalCheckFailed(err error) bool {
	var conditionFailed *types.ConditionalCheckFailedException
	if errors.As(err, &conditionFailed) {
		return true
	}

	var txCanceled *types.TransactionCanceledException
	if errors.As(err, &txCanceled) {
		for _, reason := range txCanceled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
				return true
			}
		}
	}

	return false
}

// isThrottled reports whether err is a capacity rejection that is safe to
// retry after backoff.
func isThrottled(err error) bool {
	var throughputExceeded *types.ProvisionedThroughputExceededException
	if errors.As(err, &throughputExceeded) {
		return true
	}

	var requestLimit *types.RequestLimitExceeded
	if errors.As(err, &requestLimit) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "ThrottlingException", "LimitExceededException":
			return true
		}
	}

	return false
}

// wrapDynamoError translates an SDK failure into the domain error taxonomy.
// Throttles become retryable infrastructure errors so callers and middleware
// can distinguish them from permanent failures.
func wrapDynamoError(operation string, err error) error {
	if err == nil {
		return nil
	}

	if isThrottled(err) {
		return pkgerrors.NewDomainError(
			pkgerrors.DomainInfrastructureError,
			"DYNAMODB_THROTTLED",
			"DynamoDB throttled the request",
		).WithRetryable(true).
			WithDetail("operation", operation).
			WithCause(err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
		return pkgerrors.NewDomainError(
			pkgerrors.DomainInfrastructureError,
			"DYNAMODB_TABLE_MISSING",
			"DynamoDB table or index does not exist",
		).WithDetail("operation", operation).WithCause(err)
	}

	return pkgerrors.NewDatabaseError(operation, err)
}
