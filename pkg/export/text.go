// Package export persists descriptor fields: plain-text matrices, a
// combined workbook, and a YAML manifest describing the run.
package export

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"polcam/internal/models"
)

// TextPrecision is the number of decimal places written by WriteText.
const TextPrecision = 4

// WriteText dumps a field as whitespace-separated rows, one raster row per
// line, each value printed with TextPrecision decimals. A field without
// samples is written as an empty file, which ReadText returns as 0x0.
func WriteText(path string, f models.Field) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create text file: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	buf := make([]byte, 0, 32)
	rows := f.Rows
	if f.Empty() {
		rows = 0
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < f.Cols; c++ {
			if c > 0 {
				if err := w.WriteByte(' '); err != nil {
					return fmt.Errorf("failed to write %s: %w", path, err)
				}
			}
			buf = strconv.AppendFloat(buf[:0], f.At(r, c), 'f', TextPrecision, 64)
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}
		if err := w.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadText parses a matrix written by WriteText (or any whitespace-delimited
// numeric grid). Blank lines are skipped; ragged rows are an error.
func ReadText(path string) (models.Field, error) {
	file, err := os.Open(path)
	if err != nil {
		return models.Field{}, fmt.Errorf("failed to open text file: %w", err)
	}
	defer file.Close()

	var rows [][]float64
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 {
			continue
		}
		row := make([]float64, len(tokens))
		for i, tok := range tokens {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return models.Field{}, fmt.Errorf("%s:%d: column %d: %w", path, line, i+1, err)
			}
			row[i] = v
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return models.Field{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	f, err := models.FieldFromRows(rows)
	if err != nil {
		return models.Field{}, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}
