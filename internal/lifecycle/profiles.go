// Package lifecycle decides whether an RDS engine version is billed for
// RDS Extended Support and which extended support year applies.
package lifecycle

import (
	"sort"
	"time"
)

// Engine families as reported by the RDS API
const (
	EngineMySQL            = "mysql"
	EnginePostgres         = "postgres"
	EngineAuroraMySQL      = "aurora-mysql"
	EngineAuroraPostgreSQL = "aurora-postgresql"
)

// Profile keys shared with the pricing table
const (
	KeyMySQL57            = "mysql-5.7"
	KeyPostgres11         = "postgres-11"
	KeyPostgres12         = "postgres-12"
	KeyAuroraMySQL2       = "aurora-mysql-2"
	KeyAuroraPostgreSQL11 = "aurora-postgresql-11"
	KeyAuroraPostgreSQL12 = "aurora-postgresql-12"
)

// Profile is one tracked engine major version and its support calendar
type Profile struct {
	Key          string
	Engine       string
	MajorVersion string
	// CompatibleWith is the community major version for Aurora engines
	CompatibleWith string
	// TrackedLines lists the only minor lines eligible for extended support.
	// Empty means every version of the major version is eligible.
	TrackedLines []string

	StandardSupportEnd   time.Time
	ExtendedSupportStart time.Time
	BillingStart         time.Time
	// Year3Start is zero when the engine has no separate year 3 price tier
	Year3Start         time.Time
	ExtendedSupportEnd time.Time
}

// BillingDelayed reports whether billing starts after extended support begins
func (p Profile) BillingDelayed() bool {
	return p.BillingStart.After(p.ExtendedSupportStart)
}

// HasYear3Tier reports whether a separate year 3 rate applies
func (p Profile) HasYear3Tier() bool {
	return !p.Year3Start.IsZero()
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Billing for PostgreSQL 11 and Aurora MySQL 2 starts one calendar month after
// extended support begins.
var defaultProfiles = []Profile{
	{
		Key:                  KeyMySQL57,
		Engine:               EngineMySQL,
		MajorVersion:         "5.7",
		StandardSupportEnd:   date(2024, time.February, 29),
		ExtendedSupportStart: date(2024, time.March, 1),
		BillingStart:         date(2024, time.March, 1),
		Year3Start:           date(2026, time.March, 1),
		ExtendedSupportEnd:   date(2027, time.February, 28),
	},
	{
		Key:                  KeyPostgres11,
		Engine:               EnginePostgres,
		MajorVersion:         "11",
		StandardSupportEnd:   date(2024, time.February, 29),
		ExtendedSupportStart: date(2024, time.March, 1),
		BillingStart:         date(2024, time.April, 1),
		Year3Start:           date(2026, time.April, 1),
		ExtendedSupportEnd:   date(2027, time.March, 31),
	},
	{
		Key:                  KeyPostgres12,
		Engine:               EnginePostgres,
		MajorVersion:         "12",
		StandardSupportEnd:   date(2025, time.February, 28),
		ExtendedSupportStart: date(2025, time.March, 1),
		BillingStart:         date(2025, time.March, 1),
		Year3Start:           date(2027, time.March, 1),
		ExtendedSupportEnd:   date(2028, time.February, 29),
	},
	{
		Key:                  KeyAuroraMySQL2,
		Engine:               EngineAuroraMySQL,
		MajorVersion:         "2",
		CompatibleWith:       "5.7",
		TrackedLines:         []string{"2.11", "2.12"},
		StandardSupportEnd:   date(2024, time.October, 31),
		ExtendedSupportStart: date(2024, time.November, 1),
		BillingStart:         date(2024, time.December, 1),
		ExtendedSupportEnd:   date(2027, time.February, 28),
	},
	{
		Key:                  KeyAuroraPostgreSQL11,
		Engine:               EngineAuroraPostgreSQL,
		MajorVersion:         "11",
		CompatibleWith:       "11",
		TrackedLines:         []string{"11.9", "11.21"},
		StandardSupportEnd:   date(2024, time.February, 29),
		ExtendedSupportStart: date(2024, time.March, 1),
		BillingStart:         date(2024, time.April, 1),
		Year3Start:           date(2026, time.April, 1),
		ExtendedSupportEnd:   date(2027, time.March, 31),
	},
	{
		Key:                  KeyAuroraPostgreSQL12,
		Engine:               EngineAuroraPostgreSQL,
		MajorVersion:         "12",
		CompatibleWith:       "12",
		TrackedLines:         []string{"12.9", "12.22"},
		StandardSupportEnd:   date(2025, time.February, 28),
		ExtendedSupportStart: date(2025, time.March, 1),
		BillingStart:         date(2025, time.March, 1),
		Year3Start:           date(2027, time.March, 1),
		ExtendedSupportEnd:   date(2028, time.February, 29),
	},
}

// DefaultProfiles returns a copy of the built-in profile table
func DefaultProfiles() []Profile {
	out := make([]Profile, len(defaultProfiles))
	for i, p := range defaultProfiles {
		p.TrackedLines = append([]string(nil), p.TrackedLines...)
		out[i] = p
	}
	return out
}

// Keys returns the sorted keys of the built-in profiles
func Keys() []string {
	keys := make([]string, 0, len(defaultProfiles))
	for _, p := range defaultProfiles {
		keys = append(keys, p.Key)
	}
	sort.Strings(keys)
	return keys
}
