// Package estimate prices database instances for RDS Extended Support.
package estimate

import (
	"fmt"
	"time"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
	"github.com/LeanerCloud/rds-extended-support/internal/instanceclass"
	"github.com/LeanerCloud/rds-extended-support/internal/lifecycle"
	"github.com/LeanerCloud/rds-extended-support/internal/pricing"
)

// Outcome classifies what happened to an instance during pricing
type Outcome int

const (
	// Priced instances run an engine version billed for extended support
	Priced Outcome = iota
	// NotApplicable instances run an engine version that is not tracked
	NotApplicable
	// Unpriced instances match a tracked engine version but their class has no known vCPU count
	Unpriced
)

func (o Outcome) String() string {
	switch o {
	case Priced:
		return "priced"
	case NotApplicable:
		return "not applicable"
	case Unpriced:
		return "unpriced"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Record is a priced instance
type Record struct {
	common.InstanceDescriptor

	RegionName string
	VCPUs      int
	// TotalVCPUs doubles VCPUs for Multi-AZ deployments
	TotalVCPUs int

	Year1Price float64
	Year2Price float64
	Year3Price float64

	ProfileKey string
	Year       int
	PreBilling bool
}

// Calculator combines the applicability rules, pricing table and instance classifier
type Calculator struct {
	rules      *lifecycle.Rules
	table      *pricing.Table
	classifier *instanceclass.Classifier
}

// NewCalculator creates a calculator
func NewCalculator(rules *lifecycle.Rules, table *pricing.Table, classifier *instanceclass.Classifier) *Calculator {
	return &Calculator{
		rules:      rules,
		table:      table,
		classifier: classifier,
	}
}

// NewDefaultCalculator creates a calculator over the built-in tables
func NewDefaultCalculator() *Calculator {
	return NewCalculator(lifecycle.NewDefaultRules(), pricing.NewDefaultTable(), instanceclass.NewDefaultClassifier())
}

// Calculate prices one instance as of now.
// The returned error is always common.ErrInternalConsistency and means the tables disagree.
func (c *Calculator) Calculate(d common.InstanceDescriptor, now time.Time) (Record, Outcome, error) {
	match, ok := c.rules.Evaluate(d.Engine, d.EngineVersion, now)
	if !ok {
		return Record{}, NotApplicable, nil
	}

	vcpus, ok := c.classifier.VCPUs(d.InstanceClass)
	if !ok {
		common.AppLogger.Warnf("Unknown instance class %s for %s (%s %s) in %s/%s, not priced",
			d.InstanceClass, d.Identifier, d.Engine, d.EngineVersion, d.AccountID, d.Region)
		return Record{}, Unpriced, nil
	}

	schedule, ok := c.table.Lookup(match.Profile.Key, d.Region)
	if !ok {
		return Record{}, NotApplicable, fmt.Errorf("%w: no pricing schedule for %s", common.ErrInternalConsistency, match.Profile.Key)
	}

	total := vcpus
	if d.MultiAZ {
		total *= 2
	}
	prices := schedule.Scale(total)

	return Record{
		InstanceDescriptor: d,
		RegionName:         common.RegionDisplayName(d.Region),
		VCPUs:              vcpus,
		TotalVCPUs:         total,
		Year1Price:         prices.Year1,
		Year2Price:         prices.Year2,
		Year3Price:         prices.Year3,
		ProfileKey:         match.Profile.Key,
		Year:               match.Year,
		PreBilling:         match.PreBilling,
	}, Priced, nil
}

// CurrentYearPrice returns the price for the extended support year the instance is in
func (r Record) CurrentYearPrice() float64 {
	switch r.Year {
	case 2:
		return r.Year2Price
	case 3:
		return r.Year3Price
	}
	return r.Year1Price
}
