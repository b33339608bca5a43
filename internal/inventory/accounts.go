// Package inventory selects target accounts and enumerates their database instances.
package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/organizations"
	"github.com/aws/aws-sdk-go-v2/service/organizations/types"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
)

// OrganizationsAPI defines the Organizations operations used (enables mocking)
type OrganizationsAPI interface {
	ListAccounts(ctx context.Context, params *organizations.ListAccountsInput, optFns ...func(*organizations.Options)) (*organizations.ListAccountsOutput, error)
	DescribeOrganization(ctx context.Context, params *organizations.DescribeOrganizationInput, optFns ...func(*organizations.Options)) (*organizations.DescribeOrganizationOutput, error)
}

// Selection describes which accounts to scan.
// With neither AllAccounts nor AccountIDs set, only the caller's account is scanned.
type Selection struct {
	AllAccounts bool
	AccountIDs  []string
	Exclude     []string
}

// Validate checks the selection without calling AWS
func (s Selection) Validate() error {
	if s.AllAccounts && len(s.AccountIDs) > 0 {
		return common.NewValidationError("--all cannot be combined with an explicit account list")
	}
	if len(s.Exclude) > 0 && !s.AllAccounts {
		return common.NewValidationError("--exclude-accounts can only be used with --all")
	}
	if bad := invalidAccountIDs(s.AccountIDs); len(bad) > 0 {
		return common.NewValidationError("invalid account IDs (must be %d digits): %s", common.AccountIDLength, strings.Join(bad, ", "))
	}
	if bad := invalidAccountIDs(s.Exclude); len(bad) > 0 {
		return common.NewValidationError("invalid excluded account IDs (must be %d digits): %s", common.AccountIDLength, strings.Join(bad, ", "))
	}
	return nil
}

func invalidAccountIDs(ids []string) []string {
	var bad []string
	for _, id := range ids {
		if !common.IsValidAccountID(id) {
			bad = append(bad, id)
		}
	}
	return bad
}

// Selector resolves a Selection into target accounts
type Selector struct {
	org             OrganizationsAPI
	callerAccountID string
	limiter         *common.RateLimiter
}

// NewSelector creates a selector for the given caller account
func NewSelector(cfg aws.Config, callerAccountID string) *Selector {
	return NewSelectorWithAPI(organizations.NewFromConfig(cfg), callerAccountID)
}

// NewSelectorWithAPI creates a selector around an existing Organizations API implementation
func NewSelectorWithAPI(api OrganizationsAPI, callerAccountID string) *Selector {
	return &Selector{
		org:             api,
		callerAccountID: callerAccountID,
		limiter:         common.NewRateLimiter(),
	}
}

// Select returns the accounts to scan, with exclusions already removed
func (s *Selector) Select(ctx context.Context, sel Selection) ([]common.Account, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}

	if !sel.AllAccounts && len(sel.AccountIDs) == 0 {
		return []common.Account{{ID: s.callerAccountID}}, nil
	}

	active, err := s.OrganizationAccounts(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]common.Account, len(active))
	for _, a := range active {
		byID[a.ID] = a
	}

	if !sel.AllAccounts {
		var accounts []common.Account
		var missing []string
		for _, id := range common.Dedupe(sel.AccountIDs) {
			a, ok := byID[id]
			if !ok {
				missing = append(missing, id)
				continue
			}
			accounts = append(accounts, a)
		}
		if len(missing) > 0 {
			return nil, common.NewValidationError("accounts are not active members of the organization: %s", strings.Join(missing, ", "))
		}
		return accounts, nil
	}

	excluded := make(map[string]bool, len(sel.Exclude))
	for _, id := range sel.Exclude {
		excluded[id] = true
		if _, ok := byID[id]; !ok {
			common.AppLogger.Warnf("Excluded account %s is not an active member of the organization", id)
		}
	}
	accounts := make([]common.Account, 0, len(active))
	for _, a := range active {
		if !excluded[a.ID] {
			accounts = append(accounts, a)
		}
	}
	return accounts, nil
}

// OrganizationAccounts returns the ACTIVE accounts of the organization.
// The caller must be the organization's management account.
func (s *Selector) OrganizationAccounts(ctx context.Context) ([]common.Account, error) {
	if err := s.verifyManagementAccount(ctx); err != nil {
		return nil, err
	}

	var accounts []common.Account
	paginator := organizations.NewListAccountsPaginator(s.org, &organizations.ListAccountsInput{})
	for paginator.HasMorePages() {
		var page *organizations.ListAccountsOutput
		err := s.limiter.Do(ctx, func() error {
			var err error
			page, err = paginator.NextPage(ctx)
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list organization accounts: %w", err)
		}
		for _, a := range page.Accounts {
			if a.Status != types.AccountStatusActive {
				common.AppLogger.Debugf("skipping account %s with status %s", aws.ToString(a.Id), a.Status)
				continue
			}
			accounts = append(accounts, common.Account{ID: aws.ToString(a.Id), Name: aws.ToString(a.Name)})
		}
	}
	return accounts, nil
}

func (s *Selector) verifyManagementAccount(ctx context.Context) error {
	var out *organizations.DescribeOrganizationOutput
	err := s.limiter.Do(ctx, func() error {
		var err error
		out, err = s.org.DescribeOrganization(ctx, &organizations.DescribeOrganizationInput{})
		return err
	})
	if err != nil {
		if common.ErrorCode(err) == "AWSOrganizationsNotInUseException" {
			return common.NewValidationError("account %s is not a member of an AWS Organization", s.callerAccountID)
		}
		return fmt.Errorf("failed to describe organization: %w", err)
	}

	var master string
	if out.Organization != nil {
		master = aws.ToString(out.Organization.MasterAccountId)
	}
	if master != s.callerAccountID {
		return common.NewValidationError("account %s is not the organization management account (%s); run from the management account or scan a single account", s.callerAccountID, master)
	}
	return nil
}
