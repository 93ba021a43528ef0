package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/inconshreveable/log15"

	"github.com/calgore/snapaudit/internal/models"
	"github.com/calgore/snapaudit/pkg/utils"
)

// InventoryClient resolves current volume attachment state and instance
// names for one region. The provider has no fetch-by-id-list primitive
// cheaper than full enumeration, so both resolvers describe everything and
// filter locally to the referenced ids.
type InventoryClient struct {
	client EC2API
	region string
	log    log15.Logger
}

// NewInventoryClient creates an InventoryClient using the default
// credential chain.
func NewInventoryClient(region string, logger log15.Logger) (*InventoryClient, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("error loading AWS config: %w", err)
	}
	return NewInventoryClientFromAPI(ec2.NewFromConfig(cfg), region, logger), nil
}

// NewInventoryClientFromAPI creates an InventoryClient over an explicit API
// implementation, real or fake.
func NewInventoryClientFromAPI(api EC2API, region string, logger log15.Logger) *InventoryClient {
	return &InventoryClient{
		client: api,
		region: region,
		log:    logger,
	}
}

// VolumeAttachments enumerates the region's volumes and returns the current
// attachment state of each referenced volume. Volumes that no longer exist
// produce no entry; the correlator treats the gap as unknown.
func (c *InventoryClient) VolumeAttachments(ctx context.Context, referenced map[string]struct{}) (models.VolumeLookup, error) {
	lookup := models.VolumeLookup{}
	if len(referenced) == 0 {
		return lookup, nil
	}

	total := 0
	paginator := ec2.NewDescribeVolumesPaginator(c.client, &ec2.DescribeVolumesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error querying EBS volumes: %w", err)
		}
		for _, volume := range output.Volumes {
			total++
			if volume.VolumeId == nil {
				continue
			}
			if _, ok := referenced[*volume.VolumeId]; !ok {
				continue
			}
			att := models.VolumeAttachment{VolumeID: *volume.VolumeId}
			if len(volume.Attachments) > 0 && volume.Attachments[0].InstanceId != nil {
				att.InstanceID = *volume.Attachments[0].InstanceId
			}
			lookup[att.VolumeID] = att
		}
	}
	c.log.Info("resolved volume attachments", "region", c.region, "enumerated", total, "referenced", len(referenced), "resolved", len(lookup))
	return lookup, nil
}

// InstanceNames enumerates the region's instances and returns the Name tag
// of each referenced instance. Instances that no longer exist produce no
// entry.
func (c *InventoryClient) InstanceNames(ctx context.Context, referenced map[string]struct{}) (models.InstanceLookup, error) {
	lookup := models.InstanceLookup{}
	if len(referenced) == 0 {
		return lookup, nil
	}

	total := 0
	paginator := ec2.NewDescribeInstancesPaginator(c.client, &ec2.DescribeInstancesInput{})
	for paginator.HasMorePages() {
		output, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("error querying EC2 instances: %w", err)
		}
		for _, reservation := range output.Reservations {
			for _, instance := range reservation.Instances {
				total++
				if instance.InstanceId == nil {
					continue
				}
				if _, ok := referenced[*instance.InstanceId]; !ok {
					continue
				}
				lookup[*instance.InstanceId] = models.InstanceInfo{
					InstanceID: *instance.InstanceId,
					Name:       utils.GetName(instance.Tags),
				}
			}
		}
	}
	c.log.Info("resolved instance names", "region", c.region, "enumerated", total, "referenced", len(referenced), "resolved", len(lookup))
	return lookup, nil
}
