// Package pricing holds the RDS Extended Support price schedules.
package pricing

import (
	"fmt"
	"math"
	"sort"

	"github.com/LeanerCloud/rds-extended-support/internal/lifecycle"
)

// HoursPerYear converts per vCPU-hour rates to per vCPU-year rates
const HoursPerYear = 24 * 365

// DefaultRegion is the region the built-in schedules are published for
const DefaultRegion = "us-east-1"

// Schedule is a per-vCPU, per-year USD rate for each extended support year
type Schedule struct {
	Year1 float64 `yaml:"year1" json:"year1" toml:"year1"`
	Year2 float64 `yaml:"year2" json:"year2" toml:"year2"`
	Year3 float64 `yaml:"year3" json:"year3" toml:"year3"`
}

// Rate returns the rate for an extended support year (1..3); later years use year 3
func (s Schedule) Rate(year int) float64 {
	switch {
	case year <= 1:
		return s.Year1
	case year == 2:
		return s.Year2
	default:
		return s.Year3
	}
}

// Scale multiplies every year by vCPUs
func (s Schedule) Scale(vcpus int) Schedule {
	n := float64(vcpus)
	return Schedule{Year1: s.Year1 * n, Year2: s.Year2 * n, Year3: s.Year3 * n}
}

// FromHourly builds a yearly schedule from per vCPU-hour rates, rounded to cents
func FromHourly(year12, year3 float64) Schedule {
	y12 := roundCents(year12 * HoursPerYear)
	return Schedule{Year1: y12, Year2: y12, Year3: roundCents(year3 * HoursPerYear)}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Aurora MySQL has no year 3 tier and is billed at the year 1 rate for the
// whole extended support period, so its Year3 is the Year1 rate here.
var defaultSchedules = map[string]Schedule{
	lifecycle.KeyMySQL57:            {Year1: 876, Year2: 876, Year3: 1752},
	lifecycle.KeyPostgres11:         {Year1: 876, Year2: 876, Year3: 1752},
	lifecycle.KeyPostgres12:         {Year1: 876, Year2: 876, Year3: 1752},
	lifecycle.KeyAuroraMySQL2:       {Year1: 876, Year2: 876, Year3: 876},
	lifecycle.KeyAuroraPostgreSQL11: {Year1: 876, Year2: 876, Year3: 1752},
	lifecycle.KeyAuroraPostgreSQL12: {Year1: 876, Year2: 876, Year3: 1752},
}

// Table maps profile keys to schedules, with optional per-region schedules
type Table struct {
	defaults map[string]Schedule
	regional map[string]map[string]Schedule
}

// NewTable creates a table from default schedules
func NewTable(defaults map[string]Schedule) *Table {
	t := &Table{
		defaults: make(map[string]Schedule, len(defaults)),
		regional: make(map[string]map[string]Schedule),
	}
	for k, s := range defaults {
		t.defaults[k] = s
	}
	return t
}

// NewDefaultTable creates a table with the built-in schedules
func NewDefaultTable() *Table {
	return NewTable(DefaultSchedules())
}

// DefaultSchedules returns a copy of the built-in schedules
func DefaultSchedules() map[string]Schedule {
	out := make(map[string]Schedule, len(defaultSchedules))
	for k, s := range defaultSchedules {
		out[k] = s
	}
	return out
}

// Keys returns the sorted keys with a default schedule
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.defaults))
	for k := range t.defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SetRegional sets the schedule for one key in one region
func (t *Table) SetRegional(key, region string, s Schedule) error {
	if _, ok := t.defaults[key]; !ok {
		return fmt.Errorf("unknown pricing key %q", key)
	}
	if t.regional[key] == nil {
		t.regional[key] = make(map[string]Schedule)
	}
	t.regional[key][region] = s
	return nil
}

// Lookup returns the schedule for key in region, falling back to the default schedule
func (t *Table) Lookup(key, region string) (Schedule, bool) {
	if byRegion, ok := t.regional[key]; ok {
		if s, ok := byRegion[region]; ok {
			return s, true
		}
	}
	s, ok := t.defaults[key]
	return s, ok
}

// RegionalCount returns the number of region specific schedules
func (t *Table) RegionalCount() int {
	n := 0
	for _, byRegion := range t.regional {
		n += len(byRegion)
	}
	return n
}
