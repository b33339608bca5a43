package inventory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/aws-sdk-go-v2/service/sts/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
	"github.com/LeanerCloud/rds-extended-support/internal/mocks"
)

func baseConfig() aws.Config {
	return aws.Config{
		Region:      "us-east-1",
		Credentials: credentials.NewStaticCredentialsProvider("AKIDBASE", "secret", ""),
	}
}

func TestGetCallerIdentity(t *testing.T) {
	m := &mocks.MockSTSClient{}
	m.On("GetCallerIdentity", mock.Anything, mock.Anything).Return(&sts.GetCallerIdentityOutput{
		Account: aws.String(managementAccount),
		Arn:     aws.String("arn:aws-us-gov:iam::111111111111:user/admin"),
	}, nil)

	id, err := GetCallerIdentity(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, managementAccount, id.AccountID)
	assert.Equal(t, "aws-us-gov", id.Partition)
}

func TestGetCallerIdentity_Error(t *testing.T) {
	m := &mocks.MockSTSClient{}
	m.On("GetCallerIdentity", mock.Anything, mock.Anything).Return(nil, errors.New("ExpiredToken"))

	_, err := GetCallerIdentity(context.Background(), m)
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrAuthentication))
}

func TestAssumeRoleProvider_RoleARN(t *testing.T) {
	p := NewAssumeRoleProvider(baseConfig(), nil, CallerIdentity{AccountID: managementAccount, Partition: "aws-cn"}, "")
	assert.Equal(t, "arn:aws-cn:iam::222222222222:role/"+DefaultRoleName, p.RoleARN(memberA))

	p = NewAssumeRoleProvider(baseConfig(), nil, CallerIdentity{AccountID: managementAccount, Partition: "aws"}, "Custom")
	assert.Equal(t, "arn:aws:iam::222222222222:role/Custom", p.RoleARN(memberA))
}

func TestAssumeRoleProvider_CallerAccountUsesBaseConfig(t *testing.T) {
	m := &mocks.MockSTSClient{}
	p := NewAssumeRoleProvider(baseConfig(), m, CallerIdentity{AccountID: managementAccount, Partition: "aws"}, "")

	cfg, err := p.ConfigFor(context.Background(), managementAccount)
	require.NoError(t, err)
	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDBASE", creds.AccessKeyID)
	m.AssertNotCalled(t, "AssumeRole", mock.Anything, mock.Anything)
}

func TestAssumeRoleProvider_MemberAccount(t *testing.T) {
	m := &mocks.MockSTSClient{}
	m.On("AssumeRole", mock.Anything, mock.MatchedBy(func(in *sts.AssumeRoleInput) bool {
		return aws.ToString(in.RoleArn) == "arn:aws:iam::222222222222:role/"+DefaultRoleName &&
			strings.HasPrefix(aws.ToString(in.RoleSessionName), sessionNamePrefix)
	})).Return(&sts.AssumeRoleOutput{
		Credentials: &types.Credentials{
			AccessKeyId:     aws.String("AKIDMEMBER"),
			SecretAccessKey: aws.String("member-secret"),
			SessionToken:    aws.String("token"),
			Expiration:      aws.Time(time.Now().Add(time.Hour)),
		},
	}, nil).Once()

	p := NewAssumeRoleProvider(baseConfig(), m, CallerIdentity{AccountID: managementAccount, Partition: "aws"}, "")
	cfg, err := p.ConfigFor(context.Background(), memberA)
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", cfg.Region)

	// cached, no second AssumeRole call
	creds, err := cfg.Credentials.Retrieve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AKIDMEMBER", creds.AccessKeyID)
	m.AssertExpectations(t)
}

func TestAssumeRoleProvider_MemberAccountDenied(t *testing.T) {
	m := &mocks.MockSTSClient{}
	m.On("AssumeRole", mock.Anything, mock.Anything).Return(nil, errors.New("AccessDenied"))

	p := NewAssumeRoleProvider(baseConfig(), m, CallerIdentity{AccountID: managementAccount, Partition: "aws"}, "")
	_, err := p.ConfigFor(context.Background(), memberA)
	assert.ErrorContains(t, err, "failed to assume role arn:aws:iam::222222222222:role/"+DefaultRoleName)
}
