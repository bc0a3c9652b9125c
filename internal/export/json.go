package export

import (
	"encoding/json"
	"io"

	"github.com/IshaanNene/ItemSnap/internal/types"
)

// WriteRecordJSON writes rec as two-space indented JSON.
func WriteRecordJSON(w io.Writer, rec *types.ProductRecord) error {
	return writeJSON(w, rec)
}

// WriteBatchJSON writes recs as a two-space indented JSON array.
func WriteBatchJSON(w io.Writer, recs []*types.ProductRecord) error {
	return writeJSON(w, recs)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return &types.ExportError{Format: string(FormatJSON), Err: err}
	}
	return nil
}
