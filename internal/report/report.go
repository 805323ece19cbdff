// Package report exports the watchlist state as a spreadsheet.
package report

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"StockSentinel/internal/model"
	"StockSentinel/internal/watchlist"
)

const (
	SummarySheet = "Summary"
	PointsSheet  = "Points"
)

var summaryHeader = []interface{}{
	"ISIN", "Name", "Cap", "Prev Score", "Prev Date", "Last Score", "Last Date", "Advise",
}

func scoreAndDate(r *model.EvaluationResult) (interface{}, interface{}) {
	if r == nil {
		return "N/A", "N/A"
	}
	return r.Score(), r.Timestamp.Format("2006-01-02")
}

func pointsHeader() []interface{} {
	row := []interface{}{"ISIN", "Name", "Date"}
	for _, c := range (&model.EvaluationResult{}).Criteria() {
		row = append(row, c.Label)
	}
	return append(row, "Score")
}

// WriteXLSX writes a Summary sheet with one row per stock and a Points sheet
// with the per-criterion points of every latest result.
func WriteXLSX(path string, summaries []watchlist.Summary) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(PointsSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	if err := writeRow(f, SummarySheet, 1, summaryHeader); err != nil {
		return err
	}
	ph := pointsHeader()
	if err := writeRow(f, PointsSheet, 1, ph); err != nil {
		return err
	}
	for sheet, cols := range map[string]int{SummarySheet: len(summaryHeader), PointsSheet: len(ph)} {
		last, _ := excelize.CoordinatesToCellName(cols, 1)
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return fmt.Errorf("style header: %w", err)
		}
	}

	pointsRow := 2
	for i, s := range summaries {
		prevScore, prevDate := scoreAndDate(s.Previous)
		lastScore, lastDate := scoreAndDate(s.Latest)
		row := []interface{}{s.ISIN, s.Name, s.CapType.String(), prevScore, prevDate, lastScore, lastDate, string(s.Recommendation)}
		if err := writeRow(f, SummarySheet, i+2, row); err != nil {
			return err
		}

		if s.Latest == nil {
			continue
		}
		pr := []interface{}{s.ISIN, s.Name, s.Latest.Timestamp.Format("2006-01-02")}
		for _, c := range s.Latest.Criteria() {
			pr = append(pr, c.Rating.Points)
		}
		pr = append(pr, s.Latest.Score())
		if err := writeRow(f, PointsSheet, pointsRow, pr); err != nil {
			return err
		}
		pointsRow++
	}

	_ = f.SetColWidth(SummarySheet, "B", "B", 30)
	_ = f.SetColWidth(PointsSheet, "B", "B", 30)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
