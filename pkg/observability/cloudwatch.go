package observability

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// CloudWatchMetrics publishes operational metrics to CloudWatch. The
// Prometheus collector covers scrape-based deployments; this publisher
// covers Lambda, where nothing is around long enough to be scraped.
type CloudWatchMetrics struct {
	namespace string
	client    *cloudwatch.Client
	logger    *zap.Logger
}

// NewCloudWatchMetrics creates a publisher. A nil client disables
// publishing, which is the local development configuration.
func NewCloudWatchMetrics(namespace string, client *cloudwatch.Client, logger *zap.Logger) *CloudWatchMetrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CloudWatchMetrics{
		namespace: namespace,
		client:    client,
		logger:    logger,
	}
}

// RecordCommandExecution records duration and outcome for one command
// dispatched through the command bus.
func (m *CloudWatchMetrics) RecordCommandExecution(ctx context.Context, commandName string, duration time.Duration, err error) {
	if m.client == nil {
		return
	}

	status := "success"
	if err != nil {
		status = "failure"
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("CommandExecution"),
			Dimensions: []types.Dimension{
				{
					Name:  aws.String("CommandName"),
					Value: aws.String(commandName),
				},
				{
					Name:  aws.String("Status"),
					Value: aws.String(status),
				},
			},
			Value:     aws.Float64(float64(duration.Milliseconds())),
			Unit:      types.StandardUnitMilliseconds,
			Timestamp: aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("CommandCount"),
			Dimensions: []types.Dimension{
				{
					Name:  aws.String("CommandName"),
					Value: aws.String(commandName),
				},
				{
					Name:  aws.String("Status"),
					Value: aws.String(status),
				},
			},
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
	}

	m.publish(ctx, metricData)
}

// RecordAnalysisRun records duration and graph size for one analysis
// operation such as islands or diameter.
func (m *CloudWatchMetrics) RecordAnalysisRun(ctx context.Context, operation string, duration time.Duration, categoryCount int) {
	if m.client == nil {
		return
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("AnalysisLatency"),
			Dimensions: []types.Dimension{
				{
					Name:  aws.String("Operation"),
					Value: aws.String(operation),
				},
			},
			Value:     aws.Float64(float64(duration.Milliseconds())),
			Unit:      types.StandardUnitMilliseconds,
			Timestamp: aws.Time(time.Now()),
		},
		{
			MetricName: aws.String("AnalysisCatalogSize"),
			Dimensions: []types.Dimension{
				{
					Name:  aws.String("Operation"),
					Value: aws.String(operation),
				},
			},
			Value:     aws.Float64(float64(categoryCount)),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
	}

	m.publish(ctx, metricData)
}

// RecordError records error occurrences by type and code.
func (m *CloudWatchMetrics) RecordError(ctx context.Context, errorType string, errorCode string) {
	if m.client == nil {
		return
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String("Errors"),
			Dimensions: []types.Dimension{
				{
					Name:  aws.String("ErrorType"),
					Value: aws.String(errorType),
				},
				{
					Name:  aws.String("ErrorCode"),
					Value: aws.String(errorCode),
				},
			},
			Value:     aws.Float64(1),
			Unit:      types.StandardUnitCount,
			Timestamp: aws.Time(time.Now()),
		},
	}

	m.publish(ctx, metricData)
}

// RecordBusinessMetric records a custom metric with arbitrary dimensions.
func (m *CloudWatchMetrics) RecordBusinessMetric(ctx context.Context, metricName string, value float64, unit types.StandardUnit, dimensions map[string]string) {
	if m.client == nil {
		return
	}

	var cwDimensions []types.Dimension
	for name, val := range dimensions {
		cwDimensions = append(cwDimensions, types.Dimension{
			Name:  aws.String(name),
			Value: aws.String(val),
		})
	}

	metricData := []types.MetricDatum{
		{
			MetricName: aws.String(metricName),
			Dimensions: cwDimensions,
			Value:      aws.Float64(value),
			Unit:       unit,
			Timestamp:  aws.Time(time.Now()),
		},
	}

	m.publish(ctx, metricData)
}

// publish sends the batch, logging failures without surfacing them. Losing
// a datapoint must never fail the operation being measured.
func (m *CloudWatchMetrics) publish(ctx context.Context, data []types.MetricDatum) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Warn("failed to publish CloudWatch metrics", zap.Error(err))
	}
}
