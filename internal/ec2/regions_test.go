package ec2

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LeanerCloud/rds-extended-support/internal/mocks"
)

func TestRegionClient_EnabledRegions(t *testing.T) {
	mockEC2 := &mocks.MockEC2Client{}
	mockEC2.On("DescribeRegions", mock.Anything, mock.MatchedBy(func(in *ec2.DescribeRegionsInput) bool {
		return !aws.ToBool(in.AllRegions) && len(in.Filters) == 1 &&
			aws.ToString(in.Filters[0].Name) == "opt-in-status"
	})).Return(&ec2.DescribeRegionsOutput{
		Regions: []types.Region{
			{RegionName: aws.String("us-east-1")},
			{RegionName: aws.String("eu-west-1")},
			{RegionName: nil},
			{RegionName: aws.String("ap-south-1")},
		},
	}, nil)

	regions, err := NewRegionClientWithAPI(mockEC2).EnabledRegions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"ap-south-1", "eu-west-1", "us-east-1"}, regions)
	mockEC2.AssertExpectations(t)
}

func TestRegionClient_EnabledRegionsError(t *testing.T) {
	mockEC2 := &mocks.MockEC2Client{}
	mockEC2.On("DescribeRegions", mock.Anything, mock.Anything).Return(nil, errors.New("UnauthorizedOperation"))

	_, err := NewRegionClientWithAPI(mockEC2).EnabledRegions(context.Background())
	assert.ErrorContains(t, err, "failed to describe regions")
}
