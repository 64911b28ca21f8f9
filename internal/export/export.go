package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"jobharvest/internal/components/telemetry"
	"jobharvest/internal/frame"
)

const (
	report_export_write = "export.write"
)

type Format string

const (
	FormatExcel  Format = "xlsx"
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite"
)

type writer struct {
	ext   string
	write func(ctx context.Context, path string, table frame.Table) error
}

var writers = map[Format]writer{
	FormatExcel:  {ext: "xlsx", write: writeExcel},
	FormatCSV:    {ext: "csv", write: writeCSV},
	FormatJSON:   {ext: "json", write: writeJSON},
	FormatSQLite: {ext: "db", write: writeSQLite},
}

// DefaultFormats are the formats written when none are configured.
var DefaultFormats = []Format{FormatExcel, FormatCSV, FormatJSON}

// ParseFormats validates configured format names, an empty list gives DefaultFormats.
func ParseFormats(names []string) ([]Format, error) {
	if len(names) == 0 {
		return DefaultFormats, nil
	}
	out := make([]Format, 0, len(names))
	seen := map[Format]bool{}
	for _, name := range names {
		format := Format(name)
		if _, ok := writers[format]; !ok {
			return nil, fmt.Errorf("unknown export format %q", name)
		}
		if seen[format] {
			continue
		}
		seen[format] = true
		out = append(out, format)
	}
	return out, nil
}

type Options struct {
	Folder  string
	Prefix  string
	Date    string
	Formats []Format
}

// FileName is the name a format is written to, ex. Acme_Jobs_2024-03-07.xlsx
func FileName(prefix, date string, format Format) string {
	return fmt.Sprintf("%s_%s.%s", prefix, date, writers[format].ext)
}

// Export writes the table once per enabled format. Formats do not depend on
// each other, a failing format is reported and the others are still written.
// It returns the paths that were written and every failure joined.
func Export(ctx context.Context, table frame.Table, opts Options, tel telemetry.API) ([]string, error) {
	err := os.MkdirAll(opts.Folder, 0777)
	if err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}

	var written []string
	var errs []error
	for _, format := range opts.Formats {
		w, ok := writers[format]
		if !ok {
			errs = append(errs, fmt.Errorf("unknown export format %q", format))
			continue
		}

		path := filepath.Join(opts.Folder, FileName(opts.Prefix, opts.Date, format))
		err := w.write(ctx, path, table)
		if err != nil {
			err = fmt.Errorf("export %s: %w", format, err)
			tel.ReportBroken(report_export_write, err, path)
			errs = append(errs, err)
			continue
		}
		tel.ReportDebug(report_export_write, format, path)
		written = append(written, path)
	}

	return written, errors.Join(errs...)
}
