package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"github.com/LeanerCloud/rds-extended-support/internal/common"
	"github.com/LeanerCloud/rds-extended-support/internal/csv"
	"github.com/LeanerCloud/rds-extended-support/internal/estimate"
)

// Totals accumulates priced instances
type Totals struct {
	Instances int
	VCPUs     int
	Year1     float64
	Year2     float64
	Year3     float64
	// Current sums each instance's price for the extended support year it is in
	Current    float64
	PreBilling int
}

func (t *Totals) add(rec estimate.Record) {
	t.Instances++
	t.VCPUs += rec.TotalVCPUs
	t.Year1 += rec.Year1Price
	t.Year2 += rec.Year2Price
	t.Year3 += rec.Year3Price
	t.Current += rec.CurrentYearPrice()
	if rec.PreBilling {
		t.PreBilling++
	}
}

// SkippedScope is a scope that could not be read
type SkippedScope struct {
	Scope common.Scope
	Err   error
}

// Summary describes a completed run
type Summary struct {
	AsOf time.Time

	ScannedScopes int
	Instances     int
	NotApplicable int

	Total     Totals
	ByProfile map[string]*Totals
	ByAccount map[string]*Totals

	Unpriced []common.InstanceDescriptor
	Skipped  []SkippedScope
}

func newSummary(asOf time.Time) *Summary {
	return &Summary{
		AsOf:      asOf,
		ByProfile: make(map[string]*Totals),
		ByAccount: make(map[string]*Totals),
	}
}

func (s *Summary) add(rec estimate.Record, account string) {
	s.Total.add(rec)
	if s.ByProfile[rec.ProfileKey] == nil {
		s.ByProfile[rec.ProfileKey] = &Totals{}
	}
	s.ByProfile[rec.ProfileKey].add(rec)
	if s.ByAccount[account] == nil {
		s.ByAccount[account] = &Totals{}
	}
	s.ByAccount[account].add(rec)
}

// Priced returns the number of instances written to the report
func (s *Summary) Priced() int {
	return s.Total.Instances
}

// Render writes the summary tables to w
func (s *Summary) Render(w io.Writer) error {
	fmt.Fprintf(w, "\n📊 RDS Extended Support estimate as of %s\n", s.AsOf.Format("2006-01-02"))
	fmt.Fprintf(w, "   Scopes scanned: %d, skipped: %d\n", s.ScannedScopes, len(s.Skipped))
	fmt.Fprintf(w, "   Instances: %d found, %d priced, %d not applicable, %d unpriced\n",
		s.Instances, s.Priced(), s.NotApplicable, len(s.Unpriced))
	if s.Total.PreBilling > 0 {
		fmt.Fprintf(w, "   %d priced instances are not billed yet (billing starts later)\n", s.Total.PreBilling)
	}

	if s.Priced() > 0 {
		if err := renderTotals(w, "Profile", s.ByProfile, s.Total); err != nil {
			return err
		}
		if err := renderTotals(w, "Account", s.ByAccount, s.Total); err != nil {
			return err
		}
	}

	if len(s.Unpriced) > 0 {
		data := pterm.TableData{{"Instance", "Class", "Engine", "Version", "Account", "Region"}}
		for _, d := range s.Unpriced {
			data = append(data, []string{d.Identifier, d.InstanceClass, d.Engine, d.EngineVersion, d.AccountID, d.Region})
		}
		fmt.Fprintln(w, "\n⚠️  Instances on tracked versions with unknown vCPU counts (not in the report):")
		if err := renderTable(w, data); err != nil {
			return err
		}
	}

	if len(s.Skipped) > 0 {
		skipped := make([]SkippedScope, len(s.Skipped))
		copy(skipped, s.Skipped)
		sort.Slice(skipped, func(i, j int) bool {
			return skipped[i].Scope.String() < skipped[j].Scope.String()
		})
		data := pterm.TableData{{"Account", "Region", "Error"}}
		for _, sk := range skipped {
			region := sk.Scope.Region
			if region == "" {
				region = "(all)"
			}
			data = append(data, []string{sk.Scope.AccountID, region, sk.Err.Error()})
		}
		fmt.Fprintln(w, "\n⚠️  Skipped scopes (omitted from the report):")
		if err := renderTable(w, data); err != nil {
			return err
		}
	}
	return nil
}

func renderTotals(w io.Writer, label string, groups map[string]*Totals, total Totals) error {
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	data := pterm.TableData{{label, "Instances", "vCPUs", "Current year", "Year 1", "Year 2", "Year 3"}}
	for _, k := range keys {
		data = append(data, totalsRow(k, *groups[k]))
	}
	data = append(data, totalsRow("Total", total))

	fmt.Fprintln(w)
	return renderTable(w, data)
}

func totalsRow(label string, t Totals) []string {
	return []string{
		label,
		strconv.Itoa(t.Instances),
		strconv.Itoa(t.VCPUs),
		csv.FormatPrice(t.Current),
		csv.FormatPrice(t.Year1),
		csv.FormatPrice(t.Year2),
		csv.FormatPrice(t.Year3),
	}
}

func renderTable(w io.Writer, data pterm.TableData) error {
	out, err := pterm.DefaultTable.
		WithHasHeader().
		WithBoxed().
		WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan)).
		WithData(data).
		Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
