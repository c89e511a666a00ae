package metrics

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// PutMetricData accepts at most 1000 data points per call; our runs produce
// a handful, but chunk anyway so the publisher never has to care.
const putBatchSize = 1000

// CloudWatch publishes run measurements as custom CloudWatch metrics.
type CloudWatch struct {
	client    *cloudwatch.Client
	namespace string
}

func NewCloudWatch(awsCfg aws.Config, namespace string) *CloudWatch {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &CloudWatch{
		client:    cloudwatch.NewFromConfig(awsCfg),
		namespace: namespace,
	}
}

func (c *CloudWatch) Publish(ctx context.Context, data []Datum) error {
	for len(data) > 0 {
		n := len(data)
		if n > putBatchSize {
			n = putBatchSize
		}
		batch := make([]cwtypes.MetricDatum, 0, n)
		for _, d := range data[:n] {
			batch = append(batch, toMetricDatum(d))
		}
		_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(c.namespace),
			MetricData: batch,
		})
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func toMetricDatum(d Datum) cwtypes.MetricDatum {
	md := cwtypes.MetricDatum{
		MetricName: aws.String(d.Name),
		Value:      aws.Float64(d.Value),
		Unit:       cwtypes.StandardUnitNone,
	}
	if !d.At.IsZero() {
		md.Timestamp = aws.Time(d.At)
	}
	for _, k := range sortedDimensionKeys(d.Dimensions) {
		md.Dimensions = append(md.Dimensions, cwtypes.Dimension{
			Name:  aws.String(k),
			Value: aws.String(d.Dimensions[k]),
		})
	}
	return md
}
