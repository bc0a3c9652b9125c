package export

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/IshaanNene/ItemSnap/internal/types"
)

const (
	productSheet = "Product"
	batchSheet   = "Batch"
)

// WriteRecordXLSX writes rec as a field/value sheet followed by the main
// and detail image URLs, one per row, each list after a blank row.
func WriteRecordXLSX(w io.Writer, rec *types.ProductRecord) error {
	rows := [][]any{{"Field", "Value"}}
	values := row(rec)
	// The joined URL columns are replaced by the lists below.
	for i := 0; i < len(columns)-2; i++ {
		rows = append(rows, []any{columns[i], cellValue(values[i], i)})
	}

	rows = append(rows, nil, []any{"Main image URLs"})
	for _, u := range rec.MainImages {
		rows = append(rows, []any{u})
	}
	rows = append(rows, nil, []any{"Detail image URLs"})
	for _, u := range rec.DetailImages {
		rows = append(rows, []any{u})
	}
	return writeSheet(w, productSheet, rows)
}

// WriteBatchXLSX writes one header row and one row per record.
func WriteBatchXLSX(w io.Writer, recs []*types.ProductRecord) error {
	header := make([]any, len(columns))
	for i, c := range columns {
		header[i] = c
	}
	rows := [][]any{header}
	for _, rec := range recs {
		values := row(rec)
		cells := make([]any, len(values))
		for i, v := range values {
			cells[i] = cellValue(v, i)
		}
		rows = append(rows, cells)
	}
	return writeSheet(w, batchSheet, rows)
}

// cellValue stores the image counts as numbers.
func cellValue(v string, col int) any {
	if col == 7 || col == 8 {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return v
}

func writeSheet(w io.Writer, sheet string, rows [][]any) error {
	f := excelize.NewFile()
	defer f.Close()

	wrap := func(err error) error {
		return &types.ExportError{Format: string(FormatXLSX), Err: err}
	}

	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return wrap(err)
	}
	for i, r := range rows {
		if len(r) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return wrap(err)
		}
		if err := f.SetSheetRow(sheet, cell, &r); err != nil {
			return wrap(fmt.Errorf("row %d: %w", i+1, err))
		}
	}
	if err := f.Write(w); err != nil {
		return wrap(err)
	}
	return nil
}
