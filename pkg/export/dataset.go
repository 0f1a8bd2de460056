package export

import "errors"

var errNoHeaders = errors.New("dataset requires at least one header")

// Dataset is a table whose rows map a header to its cell. Missing cells render empty.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

func (d Dataset) validate() error {
	if len(d.Headers) == 0 {
		return errNoHeaders
	}
	return nil
}

// record returns the cells of row in header order.
func (d Dataset) record(row map[string]string) []string {
	cells := make([]string, len(d.Headers))
	for i, header := range d.Headers {
		cells[i] = row[header]
	}
	return cells
}
