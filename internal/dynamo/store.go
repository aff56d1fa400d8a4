// Package dynamo implements the importer's storage backend on DynamoDB.
//
// Records are written with BatchWriteItem, the API the whole pipeline's
// batch size is tuned to: it accepts at most 25 put requests per call and
// may persist only a subset, returning the rest as UnprocessedItems under
// throughput throttling. This package translates opaque records to
// attribute values on the way in and maps UnprocessedItems back to records
// on the way out, so the importer's retry loop never sees an SDK type.
package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ming0627/bellyfed-new-sub010/internal/importer"
)

// Client is the slice of the DynamoDB API the store needs.
// Satisfied by *dynamodb.Client and by test fakes.
type Client interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// Store writes import records to DynamoDB tables.
type Store struct {
	client Client
}

// NewStore creates a store around the given client.
func NewStore(client Client) *Store {
	return &Store{client: client}
}

// BatchWrite submits one batch of records as put requests against table.
// Records the backend reports as unprocessed are returned for retry;
// a nil-length Unprocessed slice means the whole batch was persisted.
func (s *Store) BatchWrite(ctx context.Context, table string, records []importer.Record) (*importer.BatchWriteResult, error) {
	writes := make([]types.WriteRequest, 0, len(records))
	for i, rec := range records {
		item, err := attributevalue.MarshalMap(map[string]any(rec))
		if err != nil {
			return nil, fmt.Errorf("marshal record %d: %w", i, err)
		}
		writes = append(writes, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	out, err := s.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{table: writes},
	})
	if err != nil {
		return nil, fmt.Errorf("batch write %s: %w", table, err)
	}

	result := &importer.BatchWriteResult{}
	for _, wr := range out.UnprocessedItems[table] {
		if wr.PutRequest == nil {
			continue
		}
		var rec importer.Record
		if err := attributevalue.UnmarshalMap(wr.PutRequest.Item, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal unprocessed item: %w", err)
		}
		result.Unprocessed = append(result.Unprocessed, rec)
	}
	return result, nil
}
