package inventory

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"golang.org/x/sync/errgroup"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
	"github.com/LeanerCloud/rds-extended-support/internal/ec2"
	"github.com/LeanerCloud/rds-extended-support/internal/rds"
)

// DefaultWorkers bounds concurrent account and region scans
const DefaultWorkers = 10

// InstanceLister lists the instances of one scope
type InstanceLister interface {
	ListInstances(ctx context.Context) ([]common.InstanceDescriptor, error)
}

// RegionLister lists the enabled regions of one account
type RegionLister interface {
	EnabledRegions(ctx context.Context) ([]string, error)
}

// Options configures an Enumerator
type Options struct {
	// Regions restricts the scan; empty means every enabled region of each account
	Regions    []string
	Workers    int
	MaxRetries int
}

// Enumerator scans accounts and regions in parallel
type Enumerator struct {
	credentials CredentialProvider
	opts        Options

	newInstanceLister func(cfg aws.Config, accountID string) InstanceLister
	newRegionLister   func(cfg aws.Config) RegionLister
}

// NewEnumerator creates an enumerator backed by the RDS and EC2 APIs
func NewEnumerator(credentials CredentialProvider, opts Options) *Enumerator {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	e := &Enumerator{
		credentials: credentials,
		opts:        opts,
	}
	e.newInstanceLister = func(cfg aws.Config, accountID string) InstanceLister {
		limiter := common.NewRateLimiterWithOptions(time.Second, 30*time.Second, e.opts.MaxRetries)
		return rds.NewClient(cfg, accountID, limiter)
	}
	e.newRegionLister = func(cfg aws.Config) RegionLister {
		return ec2.NewRegionClient(cfg)
	}
	return e
}

// SetInstanceListerFactory replaces the RDS lister (for testing)
func (e *Enumerator) SetInstanceListerFactory(f func(cfg aws.Config, accountID string) InstanceLister) {
	e.newInstanceLister = f
}

// SetRegionListerFactory replaces the region lister (for testing)
func (e *Enumerator) SetRegionListerFactory(f func(cfg aws.Config) RegionLister) {
	e.newRegionLister = f
}

type scopeJob struct {
	scope common.Scope
	cfg   aws.Config
}

// Run scans every account and sends one result per scope to out, closing out when done.
// Scope failures are sent as results and never stop the scan; only context
// cancellation makes Run return an error.
func (e *Enumerator) Run(ctx context.Context, accounts []common.Account, out chan<- common.ScopeResult) error {
	defer close(out)

	send := func(r common.ScopeResult) error {
		select {
		case out <- r:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	jobs, err := e.resolveScopes(ctx, accounts, send)
	if err != nil {
		return err
	}

	common.AppLogger.Printf("🔍 Scanning %d account/region scopes with %d workers\n", len(jobs), e.opts.Workers)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			instances, err := e.newInstanceLister(job.cfg, job.scope.AccountID).ListInstances(gctx)
			result := common.ScopeResult{Scope: job.scope, Instances: instances}
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				result.Err = &common.ScopeError{AccountID: job.scope.AccountID, Region: job.scope.Region, Err: err}
				if common.IsAccessError(err) {
					common.AppLogger.Warnf("Skipping %s: scope not accessible with the assumed role: %v", job.scope, err)
				} else {
					common.AppLogger.Warnf("Skipping %s: %v", job.scope, err)
				}
			} else {
				common.AppLogger.Debugf("%s: %d instances", job.scope, len(instances))
			}
			return send(result)
		})
	}
	return g.Wait()
}

// resolveScopes acquires per-account credentials and regions. Accounts that
// cannot be accessed are reported through send with an empty region.
func (e *Enumerator) resolveScopes(ctx context.Context, accounts []common.Account, send func(common.ScopeResult) error) ([]scopeJob, error) {
	var (
		mu   sync.Mutex
		jobs []scopeJob
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, account := range accounts {
		account := account
		g.Go(func() error {
			fail := func(err error) error {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				common.AppLogger.Warnf("Skipping account %s: %v", account, err)
				return send(common.ScopeResult{
					Scope: common.Scope{AccountID: account.ID},
					Err:   &common.ScopeError{AccountID: account.ID, Err: err},
				})
			}

			cfg, err := e.credentials.ConfigFor(gctx, account.ID)
			if err != nil {
				return fail(err)
			}

			regions := e.opts.Regions
			if len(regions) == 0 {
				regions, err = e.newRegionLister(cfg).EnabledRegions(gctx)
				if err != nil {
					return fail(err)
				}
			}

			common.AppLogger.Printf("  📍 %s: %d regions\n", account, len(regions))
			mu.Lock()
			defer mu.Unlock()
			for _, region := range regions {
				regional := cfg.Copy()
				regional.Region = region
				jobs = append(jobs, scopeJob{
					scope: common.Scope{AccountID: account.ID, Region: region},
					cfg:   regional,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return jobs, nil
}
