package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/organizations/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
	"github.com/LeanerCloud/rds-extended-support/internal/mocks"
)

const (
	managementAccount = "111111111111"
	memberA           = "222222222222"
	memberB           = "333333333333"
	suspended         = "444444444444"
)

func orgMock() *mocks.MockOrganizationsClient {
	m := &mocks.MockOrganizationsClient{}
	m.On("DescribeOrganization", mock.Anything, mock.Anything).Return(&organizations.DescribeOrganizationOutput{
		Organization: &types.Organization{MasterAccountId: aws.String(managementAccount)},
	}, nil)
	m.On("ListAccounts", mock.Anything, mock.MatchedBy(func(in *organizations.ListAccountsInput) bool {
		return in.NextToken == nil
	})).Return(&organizations.ListAccountsOutput{
		Accounts: []types.Account{
			{Id: aws.String(managementAccount), Name: aws.String("management"), Status: types.AccountStatusActive},
			{Id: aws.String(memberA), Name: aws.String("prod"), Status: types.AccountStatusActive},
		},
		NextToken: aws.String("next"),
	}, nil)
	m.On("ListAccounts", mock.Anything, mock.MatchedBy(func(in *organizations.ListAccountsInput) bool {
		return aws.ToString(in.NextToken) == "next"
	})).Return(&organizations.ListAccountsOutput{
		Accounts: []types.Account{
			{Id: aws.String(memberB), Name: aws.String("staging"), Status: types.AccountStatusActive},
			{Id: aws.String(suspended), Name: aws.String("old"), Status: types.AccountStatusSuspended},
		},
	}, nil)
	return m
}

func ids(accounts []common.Account) []string {
	result := make([]string, len(accounts))
	for i, a := range accounts {
		result[i] = a.ID
	}
	return result
}

func TestSelection_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sel     Selection
		wantErr bool
	}{
		{"caller only", Selection{}, false},
		{"explicit", Selection{AccountIDs: []string{memberA}}, false},
		{"all with exclusions", Selection{AllAccounts: true, Exclude: []string{memberA}}, false},
		{"all and explicit", Selection{AllAccounts: true, AccountIDs: []string{memberA}}, true},
		{"exclusions without all", Selection{AccountIDs: []string{memberA}, Exclude: []string{memberB}}, true},
		{"invalid account id", Selection{AccountIDs: []string{"1234"}}, true},
		{"invalid excluded id", Selection{AllAccounts: true, Exclude: []string{"abc"}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sel.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, common.IsValidationError(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSelector_CallerOnly(t *testing.T) {
	m := &mocks.MockOrganizationsClient{}
	accounts, err := NewSelectorWithAPI(m, memberA).Select(context.Background(), Selection{})
	require.NoError(t, err)
	assert.Equal(t, []string{memberA}, ids(accounts))
	m.AssertNotCalled(t, "DescribeOrganization", mock.Anything, mock.Anything)
}

func TestSelector_AllAccounts(t *testing.T) {
	common.DisableLoggingForTesting()
	defer common.EnableLogging()

	m := orgMock()
	accounts, err := NewSelectorWithAPI(m, managementAccount).Select(context.Background(), Selection{AllAccounts: true})
	require.NoError(t, err)
	assert.Equal(t, []string{managementAccount, memberA, memberB}, ids(accounts))
	assert.Equal(t, "prod", accounts[1].Name)
}

func TestSelector_AllAccountsWithExclusions(t *testing.T) {
	common.DisableLoggingForTesting()
	defer common.EnableLogging()

	before := common.AppLogger.WarningCount()
	m := orgMock()
	accounts, err := NewSelectorWithAPI(m, managementAccount).Select(context.Background(), Selection{
		AllAccounts: true,
		Exclude:     []string{memberA, "999999999999"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{managementAccount, memberB}, ids(accounts))
	assert.Equal(t, before+1, common.AppLogger.WarningCount())
}

func TestSelector_ExplicitAccounts(t *testing.T) {
	m := orgMock()
	s := NewSelectorWithAPI(m, managementAccount)

	accounts, err := s.Select(context.Background(), Selection{AccountIDs: []string{memberB, memberA, memberB}})
	require.NoError(t, err)
	assert.Equal(t, []string{memberB, memberA}, ids(accounts))

	_, err = s.Select(context.Background(), Selection{AccountIDs: []string{memberA, suspended}})
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
	assert.Contains(t, err.Error(), suspended)
}

func TestSelector_NotManagementAccount(t *testing.T) {
	m := orgMock()
	_, err := NewSelectorWithAPI(m, memberA).Select(context.Background(), Selection{AllAccounts: true})
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
	m.AssertNotCalled(t, "ListAccounts", mock.Anything, mock.Anything)
}

func TestSelector_NotInOrganization(t *testing.T) {
	m := &mocks.MockOrganizationsClient{}
	m.On("DescribeOrganization", mock.Anything, mock.Anything).
		Return(nil, &smithy.GenericAPIError{Code: "AWSOrganizationsNotInUseException", Message: "not in use"})

	_, err := NewSelectorWithAPI(m, memberA).Select(context.Background(), Selection{AllAccounts: true})
	require.Error(t, err)
	assert.True(t, common.IsValidationError(err))
}

func TestSelector_DescribeOrganizationError(t *testing.T) {
	m := &mocks.MockOrganizationsClient{}
	m.On("DescribeOrganization", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))

	_, err := NewSelectorWithAPI(m, memberA).OrganizationAccounts(context.Background())
	require.Error(t, err)
	assert.False(t, common.IsValidationError(err))
	assert.ErrorContains(t, err, "failed to describe organization")
}
