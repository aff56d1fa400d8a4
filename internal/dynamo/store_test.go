package dynamo

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ming0627/bellyfed-new-sub010/internal/importer"
)

// fakeClient captures the BatchWriteItem input and replays a scripted output.
type fakeClient struct {
	input  *dynamodb.BatchWriteItemInput
	output *dynamodb.BatchWriteItemOutput
	err    error
}

func (f *fakeClient) BatchWriteItem(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	if f.output != nil {
		return f.output, nil
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func TestBatchWrite_BuildsPutRequests(t *testing.T) {
	client := &fakeClient{}
	store := NewStore(client)

	records := []importer.Record{
		{"id": "a", "name": "Nasi Lemak House", "rating": 4.5},
		{"id": "b", "name": "Laksa Corner"},
	}

	res, err := store.BatchWrite(context.Background(), "restaurants-dev", records)
	if err != nil {
		t.Fatalf("BatchWrite() error = %v", err)
	}
	if len(res.Unprocessed) != 0 {
		t.Errorf("Unprocessed = %d, want 0", len(res.Unprocessed))
	}

	writes := client.input.RequestItems["restaurants-dev"]
	if len(writes) != 2 {
		t.Fatalf("write requests = %d, want 2", len(writes))
	}
	for i, wr := range writes {
		if wr.PutRequest == nil {
			t.Fatalf("write request %d has no put request", i)
		}
	}

	id, ok := writes[0].PutRequest.Item["id"].(*types.AttributeValueMemberS)
	if !ok || id.Value != "a" {
		t.Errorf(`first item id attribute = %#v, want string "a"`, writes[0].PutRequest.Item["id"])
	}
}

func TestBatchWrite_MapsUnprocessedItemsBack(t *testing.T) {
	client := &fakeClient{
		output: &dynamodb.BatchWriteItemOutput{
			UnprocessedItems: map[string][]types.WriteRequest{
				"restaurants-dev": {
					{PutRequest: &types.PutRequest{Item: map[string]types.AttributeValue{
						"id":   &types.AttributeValueMemberS{Value: "b"},
						"name": &types.AttributeValueMemberS{Value: "Laksa Corner"},
					}}},
					// The store only issues put requests; anything else is skipped
					{DeleteRequest: &types.DeleteRequest{}},
				},
			},
		},
	}
	store := NewStore(client)

	res, err := store.BatchWrite(context.Background(), "restaurants-dev", []importer.Record{
		{"id": "a"}, {"id": "b"},
	})
	if err != nil {
		t.Fatalf("BatchWrite() error = %v", err)
	}
	if len(res.Unprocessed) != 1 {
		t.Fatalf("Unprocessed = %d, want 1", len(res.Unprocessed))
	}
	if res.Unprocessed[0]["id"] != "b" {
		t.Errorf("unprocessed record id = %v, want b", res.Unprocessed[0]["id"])
	}
}

func TestBatchWrite_PropagatesClientError(t *testing.T) {
	client := &fakeClient{err: errors.New("throughput exceeded")}
	store := NewStore(client)

	_, err := store.BatchWrite(context.Background(), "restaurants-dev", []importer.Record{{"id": "a"}})
	if err == nil {
		t.Fatal("BatchWrite() error = nil, want wrapped client error")
	}
}

func TestBatchWrite_MarshalFailure(t *testing.T) {
	store := NewStore(&fakeClient{})

	_, err := store.BatchWrite(context.Background(), "restaurants-dev", []importer.Record{
		{"id": "a", "bad": make(chan int)},
	})
	if err == nil {
		t.Fatal("BatchWrite() error = nil, want marshal error")
	}
}
