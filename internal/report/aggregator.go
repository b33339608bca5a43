// Package report prices enumerated instances and summarizes the run.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
	"github.com/LeanerCloud/rds-extended-support/internal/estimate"
)

// Calculator prices one instance
type Calculator interface {
	Calculate(d common.InstanceDescriptor, now time.Time) (estimate.Record, estimate.Outcome, error)
}

// Sink receives priced records in arrival order
type Sink interface {
	Write(rec estimate.Record) error
}

// Aggregator is the single consumer of scope results
type Aggregator struct {
	calc     Calculator
	sink     Sink
	now      time.Time
	accounts map[string]common.Account
}

// NewAggregator creates an aggregator pricing instances as of now
func NewAggregator(calc Calculator, sink Sink, now time.Time) *Aggregator {
	return &Aggregator{
		calc:     calc,
		sink:     sink,
		now:      now,
		accounts: make(map[string]common.Account),
	}
}

// SetAccounts registers account names for the summary
func (a *Aggregator) SetAccounts(accounts []common.Account) {
	for _, acct := range accounts {
		a.accounts[acct.ID] = acct
	}
}

// Consume reads results until in is closed. It returns early only on a fatal
// error: an internal consistency fault, a sink failure or context cancellation.
// The summary covers everything consumed so far in every case.
func (a *Aggregator) Consume(ctx context.Context, in <-chan common.ScopeResult) (*Summary, error) {
	s := newSummary(a.now)
	for {
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case result, ok := <-in:
			if !ok {
				return s, nil
			}
			if err := a.consumeScope(s, result); err != nil {
				return s, err
			}
		}
	}
}

func (a *Aggregator) consumeScope(s *Summary, result common.ScopeResult) error {
	if result.Err != nil {
		s.Skipped = append(s.Skipped, SkippedScope{Scope: result.Scope, Err: result.Err})
	} else {
		s.ScannedScopes++
	}

	for _, d := range result.Instances {
		s.Instances++
		rec, outcome, err := a.calc.Calculate(d, a.now)
		if err != nil {
			return err
		}
		switch outcome {
		case estimate.NotApplicable:
			s.NotApplicable++
		case estimate.Unpriced:
			s.Unpriced = append(s.Unpriced, d)
		case estimate.Priced:
			if err := a.sink.Write(rec); err != nil {
				return fmt.Errorf("failed to write report row for %s: %w", d.Identifier, err)
			}
			s.add(rec, a.accountName(d.AccountID))
		}
	}
	return nil
}

func (a *Aggregator) accountName(id string) string {
	if acct, ok := a.accounts[id]; ok {
		return acct.String()
	}
	return id
}
