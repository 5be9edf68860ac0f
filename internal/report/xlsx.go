package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Skufu/postcovid-risk/internal/service"
)

const (
	SheetAssessment = "Risk Assessment"
	SheetPlan       = "Prevention Plan"
)

var assessmentHeaders = []string{"Disease", "Risk %", "Level", "Active factors", "Recommendations"}

// WriteXLSX renders the plan as a workbook with one row per category, the
// risk cell filled with ColorFor(percentage), and a second sheet holding
// the top risks and the follow-up schedule.
func WriteXLSX(plan *service.Plan) ([]byte, error) {
	if plan == nil {
		return nil, fmt.Errorf("report: nil plan")
	}
	f := excelize.NewFile()

	index, err := f.NewSheet(SheetAssessment)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if _, err := f.NewSheet(SheetPlan); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	riskStyles := map[string]int{}
	for _, color := range []string{ColorLow, ColorModerate, ColorElevated, ColorHigh} {
		id, err := f.NewStyle(&excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			NumFmt:    2,
			Alignment: &excelize.Alignment{Horizontal: "center"},
		})
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create risk style: %w", err)
		}
		riskStyles[color] = id
	}

	for col, header := range assessmentHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(SheetAssessment, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(SheetAssessment, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	widths := map[string]float64{"A": 30, "B": 10, "C": 12, "D": 40, "E": 80}
	for col, w := range widths {
		if err := f.SetColWidth(SheetAssessment, col, col, w); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	for i, a := range plan.Assessments {
		row := i + 2
		values := []any{
			a.Disease,
			a.Percentage,
			a.Level.String(),
			strings.Join(a.ActiveFactors, ", "),
			strings.Join(a.Recommendations, "; "),
		}
		for col, v := range values {
			if err := setCellValue(f, SheetAssessment, col+1, row, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell value at row %d, col %d: %w", row, col+1, err)
			}
		}
		cell, _ := excelize.CoordinatesToCellName(2, row)
		if err := f.SetCellStyle(SheetAssessment, cell, cell, riskStyles[ColorFor(a.Percentage)]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set risk style: %w", err)
		}
	}

	if err := f.SetPanes(SheetAssessment, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	if err := writePlanSheet(f, plan, headerStyle); err != nil {
		f.Close()
		return nil, err
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func writePlanSheet(f *excelize.File, plan *service.Plan, headerStyle int) error {
	rows := [][]any{
		{"Report ID", plan.ID},
		{"Patient", plan.Patient.FullName()},
		{"Card No.", plan.Patient.CardNumber},
		{"Date", plan.CreatedAt.Format(dateFmt)},
		{},
		{"Top risks"},
	}
	for i, a := range plan.TopRisks {
		rows = append(rows, []any{fmt.Sprintf("%d. %s", i+1, a.Disease), a.Percentage, a.Level.String()})
	}
	rows = append(rows, []any{}, []any{"General recommendations"})
	for i, r := range plan.GeneralRecommendations {
		rows = append(rows, []any{fmt.Sprintf("%d", i+1), r})
	}
	rows = append(rows,
		[]any{},
		[]any{"Follow-up schedule"},
		[]any{"Immediate", plan.FollowUp.Immediate},
		[]any{"Short term", plan.FollowUp.ShortTerm},
		[]any{"Long term", plan.FollowUp.LongTerm},
	)

	for i, values := range rows {
		row := i + 1
		for col, v := range values {
			if err := setCellValue(f, SheetPlan, col+1, row, v); err != nil {
				return fmt.Errorf("failed to set plan cell at row %d: %w", row, err)
			}
		}
		if len(values) == 1 {
			cell, _ := excelize.CoordinatesToCellName(1, row)
			if err := f.SetCellStyle(SheetPlan, cell, cell, headerStyle); err != nil {
				return fmt.Errorf("failed to set plan header style: %w", err)
			}
		}
	}
	if err := f.SetColWidth(SheetPlan, "A", "A", 32); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return f.SetColWidth(SheetPlan, "B", "B", 80)
}

func setCellValue(f *excelize.File, sheet string, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(sheet, cell, value)
}
