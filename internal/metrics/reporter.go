// Package metrics emits import count metrics to CloudWatch.
//
// Like event publishing, reporting is best-effort: failures are logged and
// swallowed, never surfaced to the pipeline.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// dimensionTable is the dimension name carrying the destination table.
const dimensionTable = "Table"

// Client is the slice of the CloudWatch API the reporter needs.
type Client interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// Reporter emits count metrics into an environment-scoped namespace.
type Reporter struct {
	client    Client
	namespace string

	// now is swappable for deterministic timestamps in tests.
	now func() time.Time
}

// NewReporter creates a reporter publishing into namespace.
func NewReporter(client Client, namespace string) *Reporter {
	return &Reporter{client: client, namespace: namespace, now: time.Now}
}

// Count emits one count metric dimensioned by table. Never returns an
// error; failures are logged and absorbed.
func (r *Reporter) Count(ctx context.Context, name string, value float64, table string) {
	_, err := r.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(r.namespace),
		MetricData: []types.MetricDatum{
			{
				MetricName: aws.String(name),
				Value:      aws.Float64(value),
				Unit:       types.StandardUnitCount,
				Timestamp:  aws.Time(r.now().UTC()),
				Dimensions: []types.Dimension{
					{Name: aws.String(dimensionTable), Value: aws.String(table)},
				},
			},
		},
	})
	if err != nil {
		slog.Warn("metric report failed",
			"metric", name,
			"table", table,
			"error", err,
		)
		return
	}

	slog.Debug("metric reported", "metric", name, "value", value, "table", table)
}
