package lifecycle

import (
	"strconv"
	"strings"
	"time"
)

// Match is a tracked engine profile applied to a reference date
type Match struct {
	Profile Profile
	// Year is the current extended support year: 1, 2 or 3.
	// Instances past year 3 stay on year 3.
	Year int
	// PreBilling is set when the reference date is before billing starts
	PreBilling bool
}

// Rules evaluates engine versions against a profile table
type Rules struct {
	byKey map[string]Profile
	// aurora lines, e.g. "aurora-mysql|2.11" -> profile key
	lines map[string]string
}

// NewRules creates rules over the given profiles
func NewRules(profiles []Profile) *Rules {
	r := &Rules{
		byKey: make(map[string]Profile, len(profiles)),
		lines: make(map[string]string),
	}
	for _, p := range profiles {
		r.byKey[p.Key] = p
		for _, line := range p.TrackedLines {
			r.lines[p.Engine+"|"+line] = p.Key
		}
	}
	return r
}

// NewDefaultRules creates rules over the built-in profile table
func NewDefaultRules() *Rules {
	return NewRules(DefaultProfiles())
}

// Profile returns the profile for a key
func (r *Rules) Profile(key string) (Profile, bool) {
	p, ok := r.byKey[key]
	return p, ok
}

// Evaluate reports whether engine/version is billed for extended support.
// Unknown engines, untracked versions and malformed versions all return false.
func (r *Rules) Evaluate(engine, version string, now time.Time) (Match, bool) {
	key, ok := r.Key(engine, version)
	if !ok {
		return Match{}, false
	}
	p, ok := r.byKey[key]
	if !ok {
		return Match{}, false
	}
	m := Match{Profile: p, Year: 1}
	if now.Before(p.BillingStart) {
		m.PreBilling = true
		return m, true
	}
	m.Year = 1 + wholeYearsBetween(p.BillingStart, now)
	if m.Year > 3 {
		m.Year = 3
	}
	return m, true
}

// Key normalizes engine and version into a profile key
func (r *Rules) Key(engine, version string) (string, bool) {
	engine = NormalizeEngine(engine)
	version = strings.TrimSpace(version)
	if version == "" {
		return "", false
	}

	var key string
	switch engine {
	case EnginePostgres:
		major, ok := numericParts(version, 1)
		if !ok {
			return "", false
		}
		key = EnginePostgres + "-" + major
	case EngineMySQL:
		majorMinor, ok := numericParts(version, 2)
		if !ok {
			return "", false
		}
		key = EngineMySQL + "-" + majorMinor
	case EngineAuroraMySQL:
		line, ok := auroraMySQLLine(version)
		if !ok {
			return "", false
		}
		k, tracked := r.lines[engine+"|"+line]
		if !tracked {
			return "", false
		}
		key = k
	case EngineAuroraPostgreSQL:
		majorMinor, ok := numericParts(version, 2)
		if !ok {
			return "", false
		}
		k, tracked := r.lines[engine+"|"+majorMinor]
		if !tracked {
			return "", false
		}
		key = k
	default:
		return "", false
	}

	if _, ok := r.byKey[key]; !ok {
		return "", false
	}
	return key, true
}

// NormalizeEngine maps engine aliases to the RDS API engine names
func NormalizeEngine(engine string) string {
	e := strings.ToLower(strings.TrimSpace(engine))
	switch e {
	case "postgresql":
		return EnginePostgres
	case "aurora-postgres":
		return EngineAuroraPostgreSQL
	case "aurora":
		// Aurora MySQL 5.6-compatible; never tracked
		return "aurora"
	}
	return e
}

// numericParts returns the first n dot-separated components of version,
// requiring each to be a number. "11.19" with n=1 gives "11".
func numericParts(version string, n int) (string, bool) {
	parts := strings.Split(version, ".")
	if len(parts) < n {
		return "", false
	}
	for _, p := range parts[:n] {
		if _, err := strconv.Atoi(p); err != nil {
			return "", false
		}
	}
	return strings.Join(parts[:n], "."), true
}

// auroraMySQLLine extracts "2.11" from "5.7.mysql_aurora.2.11.2"
func auroraMySQLLine(version string) (string, bool) {
	const marker = "mysql_aurora."
	idx := strings.Index(version, marker)
	if idx < 0 {
		return "", false
	}
	return numericParts(version[idx+len(marker):], 2)
}

// wholeYearsBetween counts full calendar years from start to now
func wholeYearsBetween(start, now time.Time) int {
	start = start.UTC()
	now = now.UTC()
	years := now.Year() - start.Year()
	if now.Before(start.AddDate(years, 0, 0)) {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
