package pricing

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"gopkg.in/yaml.v3"

	"github.com/LeanerCloud/rds-extended-support/internal/lifecycle"
)

// OverrideFile holds per-region schedules, keyed by profile key then region code
type OverrideFile struct {
	GeneratedAt time.Time                      `yaml:"generated_at" toml:"generated_at"`
	Source      string                         `yaml:"source" toml:"source"`
	Schedules   map[string]map[string]Schedule `yaml:"schedules" toml:"schedules"`
}

// LoadOverrides reads a YAML or TOML pricing override file
func LoadOverrides(path string) (*OverrideFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file: %w", err)
	}

	var o OverrideFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &o); err != nil {
			return nil, fmt.Errorf("error parsing YAML pricing file: %w", err)
		}
	case ".toml":
		tree, err := toml.LoadBytes(data)
		if err != nil {
			return nil, fmt.Errorf("error parsing TOML pricing file: %w", err)
		}
		if err := o.fromTOML(tree); err != nil {
			return nil, fmt.Errorf("error parsing TOML pricing file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported pricing file format: %s", filepath.Ext(path))
	}
	return &o, nil
}

// fromTOML reads the document tree directly so whole-dollar rates written as
// TOML integers decode into the float64 schedule fields.
func (o *OverrideFile) fromTOML(tree *toml.Tree) error {
	if v := tree.GetPath([]string{"source"}); v != nil {
		source, ok := v.(string)
		if !ok {
			return fmt.Errorf("source must be a string")
		}
		o.Source = source
	}
	if v := tree.GetPath([]string{"generated_at"}); v != nil {
		generatedAt, ok := v.(time.Time)
		if !ok {
			return fmt.Errorf("generated_at must be a date-time with offset")
		}
		o.GeneratedAt = generatedAt
	}

	v := tree.GetPath([]string{"schedules"})
	if v == nil {
		return nil
	}
	schedules, ok := v.(*toml.Tree)
	if !ok {
		return fmt.Errorf("schedules must be a table")
	}
	o.Schedules = make(map[string]map[string]Schedule)
	for _, key := range schedules.Keys() {
		byRegion, ok := schedules.GetPath([]string{key}).(*toml.Tree)
		if !ok {
			return fmt.Errorf("schedules.%s must be a table", key)
		}
		o.Schedules[key] = make(map[string]Schedule)
		for _, region := range byRegion.Keys() {
			entry, ok := byRegion.GetPath([]string{region}).(*toml.Tree)
			if !ok {
				return fmt.Errorf("schedules.%s.%s must be a table", key, region)
			}
			var sched Schedule
			for field, dst := range map[string]*float64{"year1": &sched.Year1, "year2": &sched.Year2, "year3": &sched.Year3} {
				rate, err := tomlNumber(entry.GetPath([]string{field}))
				if err != nil {
					return fmt.Errorf("schedules.%s.%s.%s: %w", key, region, field, err)
				}
				*dst = rate
			}
			o.Schedules[key][region] = sched
		}
	}
	return nil
}

// tomlNumber accepts TOML integers and floats; a missing value is zero
func tomlNumber(v interface{}) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return float64(n), nil
	case float64:
		return n, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", v)
	}
}

// WriteOverrides writes the override file as YAML
func WriteOverrides(path string, o *OverrideFile) error {
	data, err := yaml.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to encode pricing file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write pricing file: %w", err)
	}
	return nil
}

// Apply merges the override schedules into the table. Schedules with negative
// rates or unknown keys are rejected, as are schedules giving a profile without
// a year 3 tier a Year3 rate different from its Year1 rate.
func (t *Table) Apply(o *OverrideFile, rules *lifecycle.Rules) error {
	if o == nil {
		return nil
	}
	if rules == nil {
		rules = lifecycle.NewDefaultRules()
	}
	keys := make([]string, 0, len(o.Schedules))
	for k := range o.Schedules {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		profile, ok := rules.Profile(key)
		if !ok {
			return fmt.Errorf("unknown pricing key %q", key)
		}
		for region, s := range o.Schedules[key] {
			if s.Year1 < 0 || s.Year2 < 0 || s.Year3 < 0 {
				return fmt.Errorf("negative rate for %s in %s", key, region)
			}
			if !profile.HasYear3Tier() && s.Year3 != s.Year1 {
				return fmt.Errorf("%s has no year 3 tier: year3 (%.2f) must equal year1 (%.2f) in %s", key, s.Year3, s.Year1, region)
			}
			if err := t.SetRegional(key, region, s); err != nil {
				return err
			}
		}
	}
	return nil
}
