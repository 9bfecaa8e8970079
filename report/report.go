// Package report writes the human-readable moment listings.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shortsmith/types"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Moments"

var header = []any{"#", "Start", "End", "Category", "Description", "Dialogue"}

// Text renders the moments listing.
func Text(moments []types.Moment) string {
	var b strings.Builder
	b.WriteString("=== YouTube Shorts Moments ===\n\n")
	for i, m := range moments {
		fmt.Fprintf(&b, "%d. [%s - %s] (%s)\n   %s\n\n", i+1, m.StartTime, m.EndTime, m.Category, m.Description)
	}
	return b.String()
}

// WriteText writes Text(moments) to path.
func WriteText(path string, moments []types.Moment) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Text(moments)), 0o644); err != nil {
		return fmt.Errorf("writing moments text: %w", err)
	}
	return nil
}

// WriteWorkbook writes one row per moment to an xlsx sheet named Moments.
func WriteWorkbook(path string, moments []types.Moment) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("naming sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetRowStyle(sheetName, 1, 1, bold)
	}

	for i, m := range moments {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{i + 1, m.StartTime, m.EndTime, m.Category, m.Description, dialogue(m)}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	_ = f.SetColWidth(sheetName, "B", "C", 11)
	_ = f.SetColWidth(sheetName, "D", "D", 16)
	_ = f.SetColWidth(sheetName, "E", "F", 60)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook: %w", err)
	}
	return nil
}

func dialogue(m types.Moment) string {
	lines := make([]string, 0, len(m.Dialogue))
	for _, d := range m.Dialogue {
		lines = append(lines, fmt.Sprintf("[%s] %s", d.StartTime, d.Phrase))
	}
	return strings.Join(lines, "\n")
}
