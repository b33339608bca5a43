// Package rds lists the database instances and clusters of one account and region.
package rds

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
	"github.com/LeanerCloud/rds-extended-support/internal/lifecycle"
)

// trackedEngines limits the describe calls to engines that can be billed for extended support
var trackedEngines = []string{
	lifecycle.EngineMySQL,
	lifecycle.EnginePostgres,
	lifecycle.EngineAuroraMySQL,
	lifecycle.EngineAuroraPostgreSQL,
}

var auroraEngines = []string{
	lifecycle.EngineAuroraMySQL,
	lifecycle.EngineAuroraPostgreSQL,
}

// Client wraps the AWS RDS client for one account and region
type Client struct {
	client    RDSClientInterface
	limiter   *common.RateLimiter
	accountID string
	region    string
}

// NewClient creates a new RDS client. The limiter is owned by this client and must not be shared.
func NewClient(cfg aws.Config, accountID string, limiter *common.RateLimiter) *Client {
	return NewClientWithAPI(rds.NewFromConfig(cfg), accountID, cfg.Region, limiter)
}

// NewClientWithAPI creates a client around an existing RDS API implementation (for testing)
func NewClientWithAPI(api RDSClientInterface, accountID, region string, limiter *common.RateLimiter) *Client {
	if limiter == nil {
		limiter = common.NewRateLimiter()
	}
	return &Client{
		client:    api,
		limiter:   limiter,
		accountID: accountID,
		region:    region,
	}
}

// ListInstances returns every instance running a tracked engine family, plus one
// descriptor per Aurora cluster without member instances.
func (c *Client) ListInstances(ctx context.Context) ([]common.InstanceDescriptor, error) {
	instances, err := c.describeInstances(ctx)
	if err != nil {
		return nil, err
	}
	clusters, err := c.describeMemberlessClusters(ctx)
	if err != nil {
		return instances, err
	}
	return append(instances, clusters...), nil
}

func (c *Client) describeInstances(ctx context.Context) ([]common.InstanceDescriptor, error) {
	input := &rds.DescribeDBInstancesInput{
		Filters:    []types.Filter{{Name: aws.String("engine"), Values: trackedEngines}},
		MaxRecords: aws.Int32(100),
	}

	var result []common.InstanceDescriptor
	paginator := rds.NewDescribeDBInstancesPaginator(c.client, input)
	for paginator.HasMorePages() {
		var page *rds.DescribeDBInstancesOutput
		err := c.limiter.Do(ctx, func() error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return result, fmt.Errorf("failed to describe DB instances: %w", err)
		}
		for _, inst := range page.DBInstances {
			result = append(result, c.instanceDescriptor(inst))
		}
	}
	return result, nil
}

func (c *Client) describeMemberlessClusters(ctx context.Context) ([]common.InstanceDescriptor, error) {
	input := &rds.DescribeDBClustersInput{
		Filters:    []types.Filter{{Name: aws.String("engine"), Values: auroraEngines}},
		MaxRecords: aws.Int32(100),
	}

	var result []common.InstanceDescriptor
	paginator := rds.NewDescribeDBClustersPaginator(c.client, input)
	for paginator.HasMorePages() {
		var page *rds.DescribeDBClustersOutput
		err := c.limiter.Do(ctx, func() error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return result, fmt.Errorf("failed to describe DB clusters: %w", err)
		}
		for _, cluster := range page.DBClusters {
			if len(cluster.DBClusterMembers) > 0 {
				// members are reported as instances
				continue
			}
			result = append(result, c.clusterDescriptor(cluster))
		}
	}
	return result, nil
}

func (c *Client) instanceDescriptor(inst types.DBInstance) common.InstanceDescriptor {
	return common.InstanceDescriptor{
		Identifier:        aws.ToString(inst.DBInstanceIdentifier),
		ClusterIdentifier: aws.ToString(inst.DBClusterIdentifier),
		InstanceClass:     aws.ToString(inst.DBInstanceClass),
		Engine:            aws.ToString(inst.Engine),
		EngineVersion:     aws.ToString(inst.EngineVersion),
		Status:            aws.ToString(inst.DBInstanceStatus),
		MultiAZ:           aws.ToBool(inst.MultiAZ),
		ARN:               aws.ToString(inst.DBInstanceArn),
		AccountID:         c.accountID,
		Region:            c.region,
	}
}

func (c *Client) clusterDescriptor(cluster types.DBCluster) common.InstanceDescriptor {
	class := aws.ToString(cluster.DBClusterInstanceClass)
	if class == "" {
		class = common.InstanceClassServerless
	}
	return common.InstanceDescriptor{
		Identifier:        aws.ToString(cluster.DBClusterIdentifier),
		ClusterIdentifier: aws.ToString(cluster.DBClusterIdentifier),
		InstanceClass:     class,
		Engine:            aws.ToString(cluster.Engine),
		EngineVersion:     aws.ToString(cluster.EngineVersion),
		Status:            aws.ToString(cluster.Status),
		MultiAZ:           aws.ToBool(cluster.MultiAZ),
		ARN:               aws.ToString(cluster.DBClusterArn),
		AccountID:         c.accountID,
		Region:            c.region,
	}
}
