package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/google/uuid"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
)

// DefaultRoleName is the role assumed in member accounts
const DefaultRoleName = "RDSExtendedSupportCrossAccountRole"

const sessionNamePrefix = "RDSExtendedSupport-"

// STSAPI defines the STS operations used (enables mocking)
type STSAPI interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// CallerIdentity is the principal behind the base credentials
type CallerIdentity struct {
	AccountID string
	ARN       string
	Partition string
}

// GetCallerIdentity validates the base credentials.
// Failures wrap common.ErrAuthentication.
func GetCallerIdentity(ctx context.Context, api STSAPI) (CallerIdentity, error) {
	out, err := api.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return CallerIdentity{}, fmt.Errorf("%w: %v", common.ErrAuthentication, err)
	}

	id := CallerIdentity{
		AccountID: aws.ToString(out.Account),
		ARN:       aws.ToString(out.Arn),
		Partition: "aws",
	}
	if parsed, err := arn.Parse(id.ARN); err == nil {
		id.Partition = parsed.Partition
	}
	return id, nil
}

// CredentialProvider returns an AWS config scoped to one account
type CredentialProvider interface {
	ConfigFor(ctx context.Context, accountID string) (aws.Config, error)
}

// AssumeRoleProvider reuses the base config for the caller's own account and
// assumes a named role in every other account
type AssumeRoleProvider struct {
	base     aws.Config
	sts      STSAPI
	caller   CallerIdentity
	roleName string
}

// NewAssumeRoleProvider creates a provider that assumes roleName in member accounts
func NewAssumeRoleProvider(base aws.Config, api STSAPI, caller CallerIdentity, roleName string) *AssumeRoleProvider {
	if roleName == "" {
		roleName = DefaultRoleName
	}
	return &AssumeRoleProvider{
		base:     base,
		sts:      api,
		caller:   caller,
		roleName: roleName,
	}
}

// RoleARN returns the role ARN assumed in accountID
func (p *AssumeRoleProvider) RoleARN(accountID string) string {
	return arn.ARN{
		Partition: p.caller.Partition,
		Service:   "iam",
		AccountID: accountID,
		Resource:  "role/" + strings.TrimPrefix(p.roleName, "/"),
	}.String()
}

// ConfigFor returns a config for accountID. Member account credentials are
// retrieved eagerly so a missing role fails here rather than on the first API call.
func (p *AssumeRoleProvider) ConfigFor(ctx context.Context, accountID string) (aws.Config, error) {
	cfg := p.base.Copy()
	if accountID == p.caller.AccountID {
		return cfg, nil
	}

	roleARN := p.RoleARN(accountID)
	provider := stscreds.NewAssumeRoleProvider(p.sts, roleARN, func(o *stscreds.AssumeRoleOptions) {
		o.RoleSessionName = sessionNamePrefix + uuid.NewString()
	})
	cfg.Credentials = aws.NewCredentialsCache(provider)

	if _, err := cfg.Credentials.Retrieve(ctx); err != nil {
		return aws.Config{}, fmt.Errorf("failed to assume role %s: %w", roleARN, err)
	}
	return cfg, nil
}
