// Package export serializes product records to JSON, CSV, XLSX and plain text.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/IshaanNene/ItemSnap/internal/types"
)

// Format is an export file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat accepts json, csv, xlsx and excel.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "application/octet-stream"
	}
}

// Filename builds "<prefix>_<YYYY-MM-DDTHH-MM-SS>.<ext>" from t in UTC.
func Filename(prefix string, f Format, t time.Time) string {
	return fmt.Sprintf("%s_%s.%s", prefix, t.UTC().Format("2006-01-02T15-04-05"), f)
}

// Column labels shared by every tabular export, in output order.
var columns = []string{
	"Title",
	"Current price",
	"Original price",
	"Discount",
	"Sales",
	"Product URL",
	"Capture time",
	"Main image count",
	"Detail image count",
	"Main image URLs",
	"Detail image URLs",
}

// row flattens rec in column order.
func row(rec *types.ProductRecord) []string {
	return []string{
		rec.Title,
		rec.Price.Current,
		rec.Price.Original,
		rec.Price.Discount,
		rec.Sales,
		rec.URL,
		rec.ExtractTime,
		strconv.Itoa(len(rec.MainImages)),
		strconv.Itoa(len(rec.DetailImages)),
		strings.Join(rec.MainImages, "; "),
		strings.Join(rec.DetailImages, "; "),
	}
}

// WriteRecord writes a single record in format f.
func WriteRecord(w io.Writer, rec *types.ProductRecord, f Format) error {
	if rec == nil {
		return types.ErrNoRecord
	}
	switch f {
	case FormatJSON:
		return WriteRecordJSON(w, rec)
	case FormatCSV:
		return WriteRecordCSV(w, rec)
	case FormatXLSX:
		return WriteRecordXLSX(w, rec)
	default:
		return fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, f)
	}
}

// WriteBatch writes recs in format f. An empty batch is an error.
func WriteBatch(w io.Writer, recs []*types.ProductRecord, f Format) error {
	if len(recs) == 0 {
		return types.ErrEmptyBatch
	}
	switch f {
	case FormatJSON:
		return WriteBatchJSON(w, recs)
	case FormatCSV:
		return WriteBatchCSV(w, recs)
	case FormatXLSX:
		return WriteBatchXLSX(w, recs)
	default:
		return fmt.Errorf("%w: %q", types.ErrUnsupportedFormat, f)
	}
}

// SaveFile creates dir/name and fills it with write. A failed write removes
// the partial file.
func SaveFile(dir, name string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
