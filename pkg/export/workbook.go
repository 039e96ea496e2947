package export

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"polcam/internal/models"
)

// MaxSheetNameLength is the spreadsheet limit on sheet-name length.
const MaxSheetNameLength = 31

const defaultSheet = "Sheet1"

// SheetName truncates a descriptor name to the sheet-name limit.
func SheetName(name string) string {
	if utf8.RuneCountInString(name) <= MaxSheetNameLength {
		return name
	}
	runes := []rune(name)
	return string(runes[:MaxSheetNameLength])
}

// WriteWorkbook writes one sheet per descriptor, in the order given by
// names. Each sheet has a header row of column indices and a leading column
// of row indices around the raw matrix values.
func WriteWorkbook(path string, names []string, fields map[string]models.Field) error {
	wb := excelize.NewFile()
	defer wb.Close()

	seen := make(map[string]string, len(names))
	for _, name := range names {
		field, ok := fields[name]
		if !ok {
			return fmt.Errorf("workbook: no field named %s", name)
		}

		sheet := SheetName(name)
		if prev, dup := seen[sheet]; dup {
			return fmt.Errorf("workbook: %s and %s share sheet name %q", prev, name, sheet)
		}
		seen[sheet] = name

		if _, err := wb.NewSheet(sheet); err != nil {
			return fmt.Errorf("workbook: failed to add sheet %q: %w", sheet, err)
		}
		if err := writeSheet(wb, sheet, field); err != nil {
			return fmt.Errorf("workbook: sheet %q: %w", sheet, err)
		}
	}

	if _, ok := seen[defaultSheet]; !ok && len(seen) > 0 {
		if err := wb.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("workbook: failed to drop default sheet: %w", err)
		}
	}
	wb.SetActiveSheet(0)

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("workbook: failed to save %s: %w", path, err)
	}
	return nil
}

func writeSheet(wb *excelize.File, sheet string, f models.Field) error {
	sw, err := wb.NewStreamWriter(sheet)
	if err != nil {
		return err
	}

	header := make([]interface{}, f.Cols+1)
	for c := 0; c < f.Cols; c++ {
		header[c+1] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return err
	}

	for r := 0; r < f.Rows; r++ {
		row := make([]interface{}, f.Cols+1)
		row[0] = r
		for c := 0; c < f.Cols; c++ {
			row[c+1] = f.At(r, c)
		}
		cell, err := excelize.CoordinatesToCellName(1, r+2)
		if err != nil {
			return err
		}
		if err := sw.SetRow(cell, row); err != nil {
			return err
		}
	}

	return sw.Flush()
}
