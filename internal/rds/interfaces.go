package rds

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/rds"
)

// RDSClientInterface defines the interface for RDS operations we use
type RDSClientInterface interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
	DescribeDBClusters(ctx context.Context, params *rds.DescribeDBClustersInput, optFns ...func(*rds.Options)) (*rds.DescribeDBClustersOutput, error)
}
