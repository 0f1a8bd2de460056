package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// formulaLeaders start a formula when a spreadsheet opens the file.
const formulaLeaders = "=+-@"

// CSVExporter renders a room schedule dataset as CSV. Session topics are free text, so a cell
// a spreadsheet would evaluate is prefixed with a single quote.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes the header row followed by one record per row.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, fmt.Errorf("csv: %w", err)
	}
	records := make([][]string, 0, len(data.Rows)+1)
	records = append(records, neutralize(append([]string(nil), data.Headers...)))
	for _, row := range data.Rows {
		records = append(records, neutralize(data.record(row)))
	}

	var buf bytes.Buffer
	if err := csv.NewWriter(&buf).WriteAll(records); err != nil {
		return nil, fmt.Errorf("write schedule csv: %w", err)
	}
	return buf.Bytes(), nil
}

func neutralize(cells []string) []string {
	for i, cell := range cells {
		if cell != "" && strings.ContainsRune(formulaLeaders, rune(cell[0])) {
			cells[i] = "'" + cell
		}
	}
	return cells
}
