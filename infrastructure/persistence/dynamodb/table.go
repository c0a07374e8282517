// Package dynamodb persists the category catalog in a single table.
//
// Item layout:
//
//	Category   PK=CATEGORY#<id>            SK=METADATA
//	           GSI1PK=TYPE#CATEGORY        GSI1SK=CATEGORY#<id>
//	           GSI2PK=PARENT#<id|ROOT>     GSI2SK=CATEGORY#<id>
//	Edge       PK=EDGE#<first>#<second>    SK=METADATA
//	           GSI1PK=TYPE#EDGE            GSI1SK=EDGE#<first>#<second>
//	           GSI2PK=CATEGORY#<first>     GSI2SK=EDGE#<second>
//	           GSI3PK=CATEGORY#<second>    GSI3SK=EDGE#<first>
//	Event      PK=EVENTS#<aggregate_id>    SK=EVENT#<timestamp>#<event_id>
//	           GSI2PK=EVENTTYPE#<type>     GSI2SK=EVENT#<timestamp>
//	Lock       PK=LOCK#<resource>          SK=LOCK
//
// GSI1 partitions items by entity type, so full-snapshot reads are Query
// calls instead of Scans. GSI2 serves parent lookups for categories and
// first-endpoint lookups for edges; GSI3 covers the second endpoint.
package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	metadataSortKey = "METADATA"

	categoryKeyPrefix     = "CATEGORY#"
	categoryTypePartition = "TYPE#CATEGORY"
	parentKeyPrefix       = "PARENT#"
	rootParentPartition   = "PARENT#ROOT"

	edgeKeyPrefix     = "EDGE#"
	edgeTypePartition = "TYPE#EDGE"

	gsi1Name = "GSI1"
	gsi2Name = "GSI2"
	gsi3Name = "GSI3"

	// DynamoDB caps BatchWriteItem at 25 requests per call.
	maxBatchWriteSize = 25

	// Bounded resubmission of unprocessed batch items before giving up.
	maxBatchWriteAttempts = 3
)

// writeBatches sends write requests in chunks of 25, resubmitting any
// unprocessed items a bounded number of times.
func writeBatches(ctx context.Context, client *dynamodb.Client, tableName string, requests []types.WriteRequest) error {
	for start := 0; start < len(requests); start += maxBatchWriteSize {
		end := start + maxBatchWriteSize
		if end > len(requests) {
			end = len(requests)
		}

		pending := requests[start:end]
		for attempt := 1; len(pending) > 0; attempt++ {
			result, err := client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: map[string][]types.WriteRequest{
					tableName: pending,
				},
			})
			if err != nil {
				return err
			}

			pending = result.UnprocessedItems[tableName]
			if len(pending) > 0 && attempt >= maxBatchWriteAttempts {
				return fmt.Errorf("%d batch items unprocessed after %d attempts", len(pending), attempt)
			}
		}
	}

	return nil
}
