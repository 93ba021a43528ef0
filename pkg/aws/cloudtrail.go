package aws

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail/types"
	"github.com/inconshreveable/log15"

	"github.com/calgore/snapaudit/internal/models"
	"github.com/calgore/snapaudit/pkg/utils"
)

// TrailClient fetches snapshot lifecycle events from the CloudTrail event
// history for one region.
type TrailClient struct {
	client CloudTrailAPI
	region string
	log    log15.Logger
}

// NewTrailClient creates a TrailClient using the default credential chain.
func NewTrailClient(region string, logger log15.Logger) (*TrailClient, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return NewTrailClientFromAPI(cloudtrail.NewFromConfig(cfg), region, logger), nil
}

// NewTrailClientFromAPI creates a TrailClient over an explicit API
// implementation, real or fake.
func NewTrailClientFromAPI(api CloudTrailAPI, region string, logger log15.Logger) *TrailClient {
	return &TrailClient{
		client: api,
		region: region,
		log:    logger,
	}
}

// LookupSnapshotEvents returns every audit event for the given operation
// name inside [start, end], following pagination. A nil end means "now".
func (c *TrailClient) LookupSnapshotEvents(ctx context.Context, kind models.EventKind, start time.Time, end *time.Time) ([]models.SnapshotEvent, error) {
	input := &cloudtrail.LookupEventsInput{
		LookupAttributes: []types.LookupAttribute{
			{
				AttributeKey:   types.LookupAttributeKeyEventName,
				AttributeValue: aws.String(string(kind)),
			},
		},
		StartTime: aws.Time(start),
		EndTime:   end,
	}

	var events []models.SnapshotEvent
	paginator := cloudtrail.NewLookupEventsPaginator(c.client, input)
	page := 0
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error querying CloudTrail events for %s: %w", kind, err)
		}
		page++
		c.log.Debug("fetched CloudTrail page", "operation", string(kind), "page", page, "events", len(output.Events))
		for _, raw := range output.Events {
			event, err := parseEvent(raw, kind)
			if err != nil {
				return nil, err
			}
			events = append(events, event)
		}
	}
	c.log.Info("fetched audit events", "operation", string(kind), "region", c.region, "count", len(events))
	return events, nil
}

// parseEvent projects one CloudTrail record onto the event model. The
// interesting fields live in the CloudTrailEvent JSON blob; absent fields
// stay empty and degrade to sentinels at render time.
func parseEvent(raw types.Event, kind models.EventKind) (models.SnapshotEvent, error) {
	event := models.SnapshotEvent{
		Kind: kind,
	}
	if raw.EventId != nil {
		event.EventID = *raw.EventId
	}
	if raw.EventTime != nil {
		event.Time = raw.EventTime.UTC()
	}
	if raw.Username != nil {
		event.Actor = *raw.Username
	}

	if raw.CloudTrailEvent == nil {
		return event, nil
	}
	blob, err := utils.ParseJSON(*raw.CloudTrailEvent)
	if err != nil {
		return event, fmt.Errorf("error parsing CloudTrail record %s: %w", event.EventID, err)
	}

	event.ErrorCode = utils.GetNestedString(blob, "errorCode")
	event.VolumeID = utils.GetNestedString(blob, "requestParameters", "volumeId")
	switch kind {
	case models.KindCreate:
		// The snapshot id only exists when the provider allocated one,
		// i.e. on success.
		event.SnapshotID = utils.GetNestedString(blob, "responseElements", "snapshotId")
	case models.KindDelete:
		// Delete requests carry the target id regardless of outcome.
		event.SnapshotID = utils.GetNestedString(blob, "requestParameters", "snapshotId")
	}

	if arn := utils.GetNestedString(blob, "userIdentity", "arn"); arn != "" {
		event.Actor = arnTail(arn)
	}
	return event, nil
}

// arnTail returns the resource portion of an IAM ARN, the part operators
// actually recognize.
func arnTail(arn string) string {
	if idx := strings.LastIndex(arn, "/"); idx >= 0 && idx+1 < len(arn) {
		return arn[idx+1:]
	}
	return arn
}
