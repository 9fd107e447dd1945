// Package report renders finished analyses as markdown documents. Every
// document is parsed back through the markdown validator before it is
// returned, so a caller never writes a broken file.
package report

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"finstat/pkg/core/pipeline"
	"finstat/pkg/core/ratios"
	"finstat/pkg/core/utils"
	"finstat/pkg/core/verify"
	"finstat/pkg/core/vocab"
)

const dateLayout = "2006-01-02"

// Company renders one company analysis.
func Company(a *pipeline.CompanyAnalysis) (string, error) {
	if a == nil {
		return "", fmt.Errorf("nil analysis")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s) statement analysis\n\n", a.Symbol, a.PeriodKind)
	fmt.Fprintf(&b, "Generated %s\n\n", a.GeneratedAt.UTC().Format(time.RFC3339))

	if a.Profile != nil {
		writeProfile(&b, a)
	}
	writeMatrix(&b, a)
	writeVerification(&b, a.Verification)
	writeRatioHistory(&b, a.Ratios)

	if len(a.Diagnostics) > 0 {
		b.WriteString("## Diagnostics\n\n")
		for _, d := range a.Diagnostics {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}

	return finish(b.String())
}

// Sector renders one sector scan.
func Sector(s *pipeline.SectorAnalysis) (string, error) {
	if s == nil {
		return "", fmt.Errorf("nil sector analysis")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Sector scan: %s (%s)\n\n", s.Sector, s.PeriodKind)
	fmt.Fprintf(&b, "Run `%s` generated %s\n\n", s.RunID, s.GeneratedAt.UTC().Format(time.RFC3339))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Requested | Processed | Skipped |\n")
	b.WriteString("|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| %d | %d | %d |\n\n", s.Requested, s.Processed, len(s.Skipped))

	b.WriteString("## Aggregate ratios\n\n")
	b.WriteString("| Ratio | Companies | Mean | Median | Min | Max |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|\n")
	for _, name := range ratios.Names {
		stats, ok := s.Aggregate[name]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "| %s | %d | %s | %s | %s | %s |\n",
			name, stats.Count,
			ratioNum(stats.Avg), ratioNum(stats.Median), ratioNum(stats.Min), ratioNum(stats.Max))
	}
	b.WriteString("\n")

	if len(s.Ratios) > 0 {
		b.WriteString("## Companies\n\n")
		b.WriteString("| Symbol | Ratios computed |\n")
		b.WriteString("|---|---:|\n")
		for _, symbol := range sortedKeys(s.Ratios) {
			fmt.Fprintf(&b, "| %s | %d |\n", symbol, s.Ratios[symbol].Valid())
		}
		b.WriteString("\n")
	}

	if len(s.Skipped) > 0 {
		b.WriteString("## Skipped\n\n")
		b.WriteString("| Symbol | Reason |\n")
		b.WriteString("|---|---|\n")
		for _, symbol := range sortedKeys(s.Skipped) {
			fmt.Fprintf(&b, "| %s | %s |\n", symbol, s.Skipped[symbol])
		}
		b.WriteString("\n")
	}

	return finish(b.String())
}

func writeProfile(b *strings.Builder, a *pipeline.CompanyAnalysis) {
	p := a.Profile
	b.WriteString("## Profile\n\n")
	b.WriteString("| Field | Value |\n")
	b.WriteString("|---|---|\n")
	fmt.Fprintf(b, "| Name | %s |\n", p.Name)
	fmt.Fprintf(b, "| Sector | %s |\n", p.Sector)
	fmt.Fprintf(b, "| Industry | %s |\n", p.Industry)
	if p.Website != "" {
		fmt.Fprintf(b, "| Website | %s |\n", p.Website)
	}
	if p.MarketCap != nil {
		fmt.Fprintf(b, "| Market cap | %.0f |\n", *p.MarketCap)
	}
	b.WriteString("\n")
}

func writeMatrix(b *strings.Builder, a *pipeline.CompanyAnalysis) {
	if a.Matrix.Len() == 0 {
		return
	}
	periods := a.Matrix.Periods()

	b.WriteString("## Standardized statements\n\n")
	b.WriteString("| Item |")
	for _, p := range periods {
		fmt.Fprintf(b, " %s |", p.Format(dateLayout))
	}
	b.WriteString("\n|---|")
	for range periods {
		b.WriteString("---:|")
	}
	b.WriteString("\n")

	// Canonical vocabulary order, items with no value in any period
	// omitted.
	for _, key := range vocab.Default().Keys() {
		present := false
		for i := range a.Matrix.Columns {
			if _, ok := a.Matrix.Columns[i].Get(key); ok {
				present = true
				break
			}
		}
		if !present {
			continue
		}
		fmt.Fprintf(b, "| %s |", key)
		for i := range a.Matrix.Columns {
			b.WriteString(" " + num(a.Matrix.Columns[i].Value(key)) + " |")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

func writeVerification(b *strings.Builder, r verify.Report) {
	if len(r.Checks) == 0 {
		return
	}
	fmt.Fprintf(b, "## Verification (%s)\n\n", r.Period.Format(dateLayout))
	b.WriteString("| Check | Status | Detail |\n")
	b.WriteString("|---|---|---|\n")
	for _, c := range r.Checks {
		detail := c.Detail
		if c.Status == verify.Skipped && len(c.Missing) > 0 {
			detail = "missing: " + strings.Join(c.Missing, ", ")
		}
		fmt.Fprintf(b, "| %s | %s | %s |\n", c.Name, c.Status, detail)
	}
	b.WriteString("\n")
}

func writeRatioHistory(b *strings.Builder, h *ratios.History) {
	if h.Len() == 0 {
		return
	}
	b.WriteString("## Ratios\n\n")
	b.WriteString("| Ratio |")
	for _, col := range h.Columns {
		fmt.Fprintf(b, " %s |", col.Period.Format(dateLayout))
	}
	b.WriteString("\n|---|")
	for range h.Columns {
		b.WriteString("---:|")
	}
	b.WriteString("\n")

	for _, name := range ratios.Names {
		fmt.Fprintf(b, "| %s |", name)
		for _, col := range h.Columns {
			b.WriteString(" " + ratioNum(col.Ratios[name]) + " |")
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
}

// num formats an optional statement value; absent cells render as a dash.
func num(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

// ratioNum formats an optional ratio with more precision.
func ratioNum(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// finish validates the rendered document before handing it back.
func finish(doc string) (string, error) {
	if !utils.ValidateMarkdown(doc) {
		return "", fmt.Errorf("rendered markdown failed validation")
	}
	return doc, nil
}
