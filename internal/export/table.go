package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// utf8BOM makes Excel open the CSV as UTF-8 so Persian text renders.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const timeLayout = "2006-01-02 15:04"

// Table is one exported sheet.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// safeCell keeps spreadsheet apps from evaluating user text as a formula.
func safeCell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

func (t Table) row(i int) []string {
	out := make([]string, len(t.Rows[i]))
	for j, v := range t.Rows[i] {
		out[j] = safeCell(v)
	}
	return out
}

// CSV renders the table as a BOM-prefixed CSV document.
func (t Table) CSV() ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)
	if err := w.Write(t.Headers); err != nil {
		return nil, err
	}
	for i := range t.Rows {
		if err := w.Write(t.row(i)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// XLSX renders the table as a single-sheet workbook. Cells are written as
// strings so numeric-looking ids keep their digits.
func (t Table) XLSX() ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	if t.Name != "" {
		if err := f.SetSheetName(sheet, t.Name); err != nil {
			return nil, err
		}
		sheet = t.Name
	}

	write := func(rowIdx int, values []string) error {
		for c, v := range values {
			cell, err := excelize.CoordinatesToCellName(c+1, rowIdx)
			if err != nil {
				return err
			}
			if err := f.SetCellStr(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}

	if err := write(1, t.Headers); err != nil {
		return nil, err
	}
	for i := range t.Rows {
		if err := write(i+2, t.row(i)); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName returns a timestamped export file name, e.g.
// payments_20240301_103005.csv.
func FileName(kind, ext string, now time.Time) string {
	return fmt.Sprintf("%s_%s.%s", strings.ToLower(kind), now.Format("20060102_150405"), ext)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// Encode renders the table in the given format; anything but xlsx is CSV.
func (t Table) Encode(format string) ([]byte, error) {
	if format == FormatXLSX {
		return t.XLSX()
	}
	return t.CSV()
}

// ContentType returns the MIME type of a format.
func ContentType(format string) string {
	if format == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}
