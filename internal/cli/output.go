package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/JonMunkholm/pokedex/internal/core"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
	w      io.Writer
}

// NewOutput creates a new Output formatter
func NewOutput(format string, w io.Writer) *Output {
	return &Output{format: format, w: w}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		o.printJSON(map[string]string{"message": msg})
	} else {
		fmt.Fprintln(o.w, msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case core.Record:
		o.printRecord(v)
	case []core.Record:
		o.printRecords(v)
	case ImportResult:
		o.printImportResult(v)
	case HealthResult:
		o.printHealthResult(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// ImportResult response type
type ImportResult struct {
	Message  string `json:"message"`
	Inserted int    `json:"inserted"`
	ImportID string `json:"import_id"`
}

// HealthResult response type
type HealthResult struct {
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Imports *struct {
		Active        int `json:"active"`
		MaxConcurrent int `json:"max_concurrent"`
	} `json:"imports,omitempty"`
}

func recordValues(r core.Record) []string {
	values := make([]string, len(core.Columns))
	for i, col := range core.Columns {
		if v, ok := col.Text(r); ok {
			values[i] = v
		} else {
			values[i] = "-"
		}
	}
	return values
}

func (o *Output) printRecord(r core.Record) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	for i, v := range recordValues(r) {
		fmt.Fprintf(tw, "%s:\t%s\n", core.Columns[i].Name, v)
	}
	_ = tw.Flush()
}

func (o *Output) printRecords(records []core.Record) {
	if len(records) == 0 {
		fmt.Fprintln(o.w, "No records found.")
		return
	}

	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(core.ColumnNames(), "\t")))
	for _, r := range records {
		fmt.Fprintln(tw, strings.Join(recordValues(r), "\t"))
	}
	_ = tw.Flush()
}

func (o *Output) printImportResult(r ImportResult) {
	fmt.Fprintln(o.w, r.Message)
	fmt.Fprintf(o.w, "Inserted: %d\n", r.Inserted)
	fmt.Fprintf(o.w, "Import ID: %s\n", r.ImportID)
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Fprintf(o.w, "Status: %s\n", h.Status)
	if h.Error != "" {
		fmt.Fprintf(o.w, "Error: %s\n", h.Error)
	}
	if h.Imports != nil {
		fmt.Fprintf(o.w, "Imports running: %d/%d\n", h.Imports.Active, h.Imports.MaxConcurrent)
	}
}
