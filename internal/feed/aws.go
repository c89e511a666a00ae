package feed

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/health"
	healthtypes "github.com/aws/aws-sdk-go-v2/service/health/types"
)

// AWSAPI implements API against the AWS Health service.
//
// The Health API is served from a global endpoint; callers should construct
// the aws.Config with the region the endpoint lives in (us-east-1 unless the
// account is set up for the fallback region).
type AWSAPI struct {
	client *health.Client
}

func NewAWSAPI(cfg aws.Config) *AWSAPI {
	return &AWSAPI{client: health.NewFromConfig(cfg)}
}

func (a *AWSAPI) EventsPage(ctx context.Context, f Filter, nextToken string) ([]Event, string, error) {
	in := &health.DescribeEventsInput{
		Filter: &healthtypes.EventFilter{
			Regions:             f.Regions,
			EventStatusCodes:    toStatusCodes(f.Statuses),
			EventTypeCategories: toCategories(f.Categories),
			Tags:                f.Tags,
			StartTimes:          toDateTimeRanges(f.StartTimes),
			EndTimes:            toDateTimeRanges(f.EndTimes),
		},
	}
	if nextToken != "" {
		in.NextToken = aws.String(nextToken)
	}

	out, err := a.client.DescribeEvents(ctx, in)
	if err != nil {
		return nil, "", err
	}

	events := make([]Event, 0, len(out.Events))
	for _, e := range out.Events {
		events = append(events, fromSDKEvent(e))
	}
	return events, aws.ToString(out.NextToken), nil
}

func (a *AWSAPI) DetailsBatch(ctx context.Context, arns []string) ([]EventDetail, error) {
	out, err := a.client.DescribeEventDetails(ctx, &health.DescribeEventDetailsInput{
		EventArns: arns,
	})
	if err != nil {
		return nil, err
	}

	details := make([]EventDetail, 0, len(out.SuccessfulSet))
	for _, d := range out.SuccessfulSet {
		detail := EventDetail{}
		if d.Event != nil {
			detail.Event = fromSDKEvent(*d.Event)
		}
		if d.EventDescription != nil {
			detail.LatestDescription = aws.ToString(d.EventDescription.LatestDescription)
		}
		details = append(details, detail)
	}
	return details, nil
}

func (a *AWSAPI) EntitiesPage(ctx context.Context, arns []string, nextToken string) ([]AffectedEntity, string, error) {
	in := &health.DescribeAffectedEntitiesInput{
		Filter: &healthtypes.EntityFilter{EventArns: arns},
	}
	if nextToken != "" {
		in.NextToken = aws.String(nextToken)
	}

	out, err := a.client.DescribeAffectedEntities(ctx, in)
	if err != nil {
		return nil, "", err
	}

	entities := make([]AffectedEntity, 0, len(out.Entities))
	for _, e := range out.Entities {
		entities = append(entities, AffectedEntity{
			EntityArn:       aws.ToString(e.EntityArn),
			EntityURL:       aws.ToString(e.EntityUrl),
			EntityValue:     aws.ToString(e.EntityValue),
			EventArn:        aws.ToString(e.EventArn),
			StatusCode:      string(e.StatusCode),
			LastUpdatedTime: aws.ToTime(e.LastUpdatedTime),
			Tags:            e.Tags,
		})
	}
	return entities, aws.ToString(out.NextToken), nil
}

func fromSDKEvent(e healthtypes.Event) Event {
	return Event{
		Arn:              aws.ToString(e.Arn),
		AvailabilityZone: aws.ToString(e.AvailabilityZone),
		Region:           aws.ToString(e.Region),
		Service:          aws.ToString(e.Service),
		TypeCode:         aws.ToString(e.EventTypeCode),
		Category:         string(e.EventTypeCategory),
		Status:           string(e.StatusCode),
		StartTime:        aws.ToTime(e.StartTime),
		EndTime:          aws.ToTime(e.EndTime),
		LastUpdatedTime:  aws.ToTime(e.LastUpdatedTime),
	}
}

func toStatusCodes(statuses []string) []healthtypes.EventStatusCode {
	out := make([]healthtypes.EventStatusCode, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, healthtypes.EventStatusCode(s))
	}
	return out
}

func toCategories(categories []string) []healthtypes.EventTypeCategory {
	out := make([]healthtypes.EventTypeCategory, 0, len(categories))
	for _, c := range categories {
		out = append(out, healthtypes.EventTypeCategory(c))
	}
	return out
}

func toDateTimeRanges(ranges []TimeRange) []healthtypes.DateTimeRange {
	if len(ranges) == 0 {
		return nil
	}
	out := make([]healthtypes.DateTimeRange, 0, len(ranges))
	for _, r := range ranges {
		dtr := healthtypes.DateTimeRange{}
		if !r.From.IsZero() {
			from := r.From
			dtr.From = &from
		}
		if !r.To.IsZero() {
			to := r.To
			dtr.To = &to
		}
		out = append(out, dtr)
	}
	return out
}
