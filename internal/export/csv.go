package export

import (
	"bufio"
	"io"
	"strings"

	"github.com/IshaanNene/ItemSnap/internal/types"
)

// utf8BOM lets spreadsheet tools detect the encoding of CSV output.
const utf8BOM = "\ufeff"

// quotedWriter writes CSV where every field is double-quoted.
// encoding/csv only quotes fields that need it.
type quotedWriter struct {
	w   *bufio.Writer
	err error
}

func newQuotedWriter(w io.Writer) *quotedWriter {
	return &quotedWriter{w: bufio.NewWriter(w)}
}

func (q *quotedWriter) writeString(s string) {
	if q.err == nil {
		_, q.err = q.w.WriteString(s)
	}
}

func (q *quotedWriter) write(fields ...string) {
	for i, f := range fields {
		if i > 0 {
			q.writeString(",")
		}
		q.writeString(`"` + strings.ReplaceAll(f, `"`, `""`) + `"`)
	}
	q.writeString("\n")
}

func (q *quotedWriter) flush() error {
	if q.err == nil {
		q.err = q.w.Flush()
	}
	if q.err != nil {
		return &types.ExportError{Format: string(FormatCSV), Err: q.err}
	}
	return nil
}

// WriteRecordCSV writes rec as a two-column field/value table.
func WriteRecordCSV(w io.Writer, rec *types.ProductRecord) error {
	q := newQuotedWriter(w)
	q.writeString(utf8BOM)
	q.write("Field", "Value")
	for i, v := range row(rec) {
		q.write(columns[i], v)
	}
	return q.flush()
}

// WriteBatchCSV writes one header row and one row per record.
func WriteBatchCSV(w io.Writer, recs []*types.ProductRecord) error {
	q := newQuotedWriter(w)
	q.writeString(utf8BOM)
	q.write(columns...)
	for _, rec := range recs {
		q.write(row(rec)...)
	}
	return q.flush()
}
