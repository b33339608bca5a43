// Package ec2 discovers the regions enabled for an account.
package ec2

import (
	"context"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
)

// EC2ClientInterface defines the interface for EC2 operations we use
type EC2ClientInterface interface {
	DescribeRegions(ctx context.Context, params *ec2.DescribeRegionsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeRegionsOutput, error)
}

// RegionClient lists regions through the EC2 API
type RegionClient struct {
	client  EC2ClientInterface
	limiter *common.RateLimiter
}

// NewRegionClient creates a region client from an AWS config
func NewRegionClient(cfg aws.Config) *RegionClient {
	return NewRegionClientWithAPI(ec2.NewFromConfig(cfg))
}

// NewRegionClientWithAPI creates a region client around an existing EC2 API implementation
func NewRegionClientWithAPI(api EC2ClientInterface) *RegionClient {
	return &RegionClient{
		client:  api,
		limiter: common.NewRateLimiter(),
	}
}

// EnabledRegions returns the sorted codes of regions the account can use.
// Opt-in regions that are not enabled are left out.
func (c *RegionClient) EnabledRegions(ctx context.Context) ([]string, error) {
	input := &ec2.DescribeRegionsInput{
		AllRegions: aws.Bool(false),
		Filters: []types.Filter{
			{Name: aws.String("opt-in-status"), Values: []string{"opt-in-not-required", "opted-in"}},
		},
	}

	var out *ec2.DescribeRegionsOutput
	err := c.limiter.Do(ctx, func() error {
		var err error
		out, err = c.client.DescribeRegions(ctx, input)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe regions: %w", err)
	}

	regions := make([]string, 0, len(out.Regions))
	for _, r := range out.Regions {
		if name := aws.ToString(r.RegionName); name != "" {
			regions = append(regions, name)
		}
	}
	sort.Strings(regions)
	return regions, nil
}
