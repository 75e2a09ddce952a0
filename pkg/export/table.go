package export

import (
	"fmt"
	"strings"
)

// Format selects the rendered file type.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat accepts csv or pdf, case-insensitively. Empty defaults to csv.
func ParseFormat(raw string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	}
	return "", fmt.Errorf("unsupported export format %q", raw)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv; charset=utf-8"
}

// Column describes one exported column. Width is a relative weight used by the PDF layout.
type Column struct {
	Key    string
	Header string
	Width  float64
}

// Table is tabular export content.
type Table struct {
	Title   string
	Columns []Column
	Rows    []map[string]string
}

// Headers returns the header labels in column order.
func (t Table) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Header
		if out[i] == "" {
			out[i] = c.Key
		}
	}
	return out
}

// Record returns row values in column order.
func (t Table) Record(row map[string]string) []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = row[c.Key]
	}
	return out
}

// Renderer turns a table into file bytes.
type Renderer interface {
	Render(Table) ([]byte, error)
}

// RendererFor returns the renderer for a format.
func RendererFor(f Format) Renderer {
	if f == FormatPDF {
		return NewPDFRenderer()
	}
	return NewCSVRenderer()
}
