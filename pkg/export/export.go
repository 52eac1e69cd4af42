package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"igpicker/pkg/errors"
	"igpicker/pkg/selection"
)

// Format is an export file format
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet holding the table in XLSX exports
const SheetName = "photos"

// ParseFormat accepts "csv" or "xlsx", case-insensitively
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", errors.New(errors.ErrorTypeValidation, fmt.Sprintf("unsupported export format %q (use csv or xlsx)", s))
}

// Extension returns the file extension including the dot
func (f Format) Extension() string {
	return "." + string(f)
}

// ContentType returns the MIME type served for downloads
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// FileName appends the format extension to base unless already present
func FileName(base string, f Format) string {
	if strings.HasSuffix(strings.ToLower(base), f.Extension()) {
		return base
	}
	return base + f.Extension()
}

// Write renders rows as a limit-wide table in the given format
func Write(w io.Writer, f Format, limit int, rows []selection.ExportRow) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, limit, rows)
	case FormatXLSX:
		return WriteXLSX(w, limit, rows)
	}
	return errors.New(errors.ErrorTypeValidation, fmt.Sprintf("unsupported export format %q", f))
}

// WriteSession exports the rows of s. Sessions without exportable rows are
// refused with a not_found error.
func WriteSession(w io.Writer, f Format, s *selection.Session) error {
	if !s.HasRows() {
		return ErrNothingToExport
	}
	return Write(w, f, s.Limit, s.Rows())
}

// ErrNothingToExport is returned when no username produced posts
var ErrNothingToExport = errors.New(errors.ErrorTypeNotFound, "nothing to export")

// WriteCSV writes a header line and one record per row
func WriteCSV(w io.Writer, limit int, rows []selection.ExportRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(selection.Header(limit)); err != nil {
		return errors.Wrap(errors.ErrorTypeUnknown, "failed to write CSV header", err)
	}
	for _, row := range rows {
		if err := cw.Write(fitRow(row, limit).Record()); err != nil {
			return errors.Wrap(errors.ErrorTypeUnknown, "failed to write CSV row", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(errors.ErrorTypeUnknown, "failed to flush CSV", err)
	}
	return nil
}

// WriteXLSX writes the same table as WriteCSV into a single-sheet workbook
func WriteXLSX(w io.Writer, limit int, rows []selection.ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(SheetName)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeUnknown, "failed to create sheet", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return errors.Wrap(errors.ErrorTypeUnknown, "failed to remove default sheet", err)
	}

	header := selection.Header(limit)
	if err := setRow(f, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, i+2, fitRow(row, limit).Record()); err != nil {
			return err
		}
	}

	last, err := excelize.ColumnNumberToName(len(header))
	if err != nil {
		return errors.Wrap(errors.ErrorTypeUnknown, "failed to size columns", err)
	}
	_ = f.SetColWidth(SheetName, "A", "A", 24)
	if len(header) > 1 {
		_ = f.SetColWidth(SheetName, "B", last, 60)
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(errors.ErrorTypeUnknown, "failed to write workbook", err)
	}
	return nil
}

func setRow(f *excelize.File, n int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		return errors.Wrap(errors.ErrorTypeUnknown, "invalid cell", err)
	}
	if err := f.SetSheetRow(SheetName, cell, &cells); err != nil {
		return errors.Wrap(errors.ErrorTypeUnknown, fmt.Sprintf("failed to write row %d", n), err)
	}
	return nil
}

// fitRow pads or truncates Photos to limit cells
func fitRow(row selection.ExportRow, limit int) selection.ExportRow {
	if len(row.Photos) == limit {
		return row
	}
	return selection.NewExportRow(row.Username, row.Photos, limit)
}
