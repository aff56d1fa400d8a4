// Package events delivers import status events to EventBridge.
//
// Delivery is best-effort by contract: every failure mode, from marshalling
// to per-entry rejection, is logged and swallowed. The import pipeline's
// outcome must never depend on whether an observer heard about it.
package events

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"

	"github.com/ming0627/bellyfed-new-sub010/internal/importer"
)

// Client is the slice of the EventBridge API the publisher needs.
type Client interface {
	PutEvents(ctx context.Context, params *eventbridge.PutEventsInput, optFns ...func(*eventbridge.Options)) (*eventbridge.PutEventsOutput, error)
}

// Publisher sends status events to a configured event bus.
type Publisher struct {
	client Client
	bus    string
	source string
}

// NewPublisher creates a publisher for the given bus and source.
// An empty bus name targets the account's default bus.
func NewPublisher(client Client, bus, source string) *Publisher {
	return &Publisher{client: client, bus: bus, source: source}
}

// Publish delivers one status event. The event type becomes the
// detail-type and the whole event (trace and correlation IDs, timestamp,
// payload) is serialized as the JSON detail. Never returns an error.
func (p *Publisher) Publish(ctx context.Context, event importer.StatusEvent) {
	logger := slog.Default().With(
		"event_type", string(event.Type),
		"trace_id", event.TraceID,
		"correlation_id", event.CorrelationID,
	)

	detail, err := json.Marshal(event)
	if err != nil {
		logger.Error("event publish: marshal failed", "error", err)
		return
	}

	entry := types.PutEventsRequestEntry{
		Source:     aws.String(p.source),
		DetailType: aws.String(string(event.Type)),
		Detail:     aws.String(string(detail)),
		Time:       aws.Time(event.Timestamp),
	}
	if p.bus != "" {
		entry.EventBusName = aws.String(p.bus)
	}

	out, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{entry},
	})
	if err != nil {
		logger.Error("event publish failed", "error", err)
		return
	}
	if out.FailedEntryCount > 0 {
		for _, e := range out.Entries {
			if e.ErrorCode != nil {
				logger.Error("event entry rejected",
					"error_code", aws.ToString(e.ErrorCode),
					"error_message", aws.ToString(e.ErrorMessage),
				)
			}
		}
		return
	}

	logger.Debug("event published")
}
