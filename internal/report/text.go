// Package report renders prevention plans as plain text and as XLSX
// workbooks.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/Skufu/postcovid-risk/internal/risk"
	"github.com/Skufu/postcovid-risk/internal/service"
)

const (
	ColorLow      = "#008000"
	ColorModerate = "#FFA500"
	ColorElevated = "#FF8C00"
	ColorHigh     = "#FF0000"
)

// ColorFor returns the display colour for a risk percentage:
// green below 20, orange below 40, dark orange below 60, red otherwise.
func ColorFor(percentage float64) string {
	switch {
	case percentage < 20:
		return ColorLow
	case percentage < 40:
		return ColorModerate
	case percentage < 60:
		return ColorElevated
	default:
		return ColorHigh
	}
}

const (
	ruleWide = "============================================================"
	ruleThin = "------------------------------------------------------------"
	dateFmt  = "2006-01-02 15:04 MST"
)

// WriteText writes a UTF-8 text report for the plan.
func WriteText(w io.Writer, plan *service.Plan) error {
	if plan == nil {
		return fmt.Errorf("report: nil plan")
	}
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format+"\n", args...)
	}

	p(ruleWide)
	p("POST-COVID DISEASE RISK REPORT")
	p(ruleWide)
	p("Report ID: %s", plan.ID)
	p("Patient:   %s", plan.Patient.FullName())
	if plan.Patient.CardNumber != "" {
		p("Card No.:  %s", plan.Patient.CardNumber)
	}
	if plan.Patient.BirthDate != "" {
		p("Born:      %s", plan.Patient.BirthDate)
	}
	p("Date:      %s", plan.CreatedAt.Format(dateFmt))
	p("")

	p("TOP %d RISKS", len(plan.TopRisks))
	p(ruleThin)
	for i, a := range plan.TopRisks {
		p("%d. %s: %.1f%% (%s)", i+1, a.Disease, a.Percentage, a.Level)
	}
	p("")

	p("FULL ANALYSIS")
	p(ruleThin)
	for _, a := range plan.Assessments {
		p("%s", a.Disease)
		p("  Risk:  %.1f%% (%s)", a.Percentage, a.Level)
		if len(a.ActiveFactors) > 0 {
			p("  Factors: %s", strings.Join(a.ActiveFactors, ", "))
		}
		for _, rec := range a.Recommendations {
			p("  - %s", rec)
		}
		p("")
	}

	if len(plan.SignificantRisks) > 0 {
		p("DETAILED RECOMMENDATIONS")
		p(ruleThin)
		for _, a := range plan.SignificantRisks {
			p("%s (%.1f%%):", strings.ToUpper(a.Disease), a.Percentage)
			writeNumbered(bw, a.Recommendations)
			p("")
		}
	}

	p("GENERAL RECOMMENDATIONS")
	p(ruleThin)
	writeNumbered(bw, plan.GeneralRecommendations)
	p("")

	p("FOLLOW-UP SCHEDULE")
	p(ruleThin)
	p("Immediate:  %s", plan.FollowUp.Immediate)
	p("Short term: %s", plan.FollowUp.ShortTerm)
	p("Long term:  %s", plan.FollowUp.LongTerm)

	if len(plan.Synthesized) > 0 {
		p("")
		p("Note: not recorded, estimated: %s", strings.Join(plan.Synthesized, ", "))
	}
	p("")
	p("This assessment is a heuristic estimate, not a diagnosis.")

	return bw.Flush()
}

func writeNumbered(w io.Writer, items []string) {
	for i, item := range items {
		fmt.Fprintf(w, "  %d. %s\n", i+1, item)
	}
}

// Summary is a one-line rendering used by the CLI.
func Summary(a risk.Assessment) string {
	return fmt.Sprintf("%-28s %5.1f%%  %s", a.Disease, a.Percentage, a.Level)
}
