package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/IshaanNene/ItemSnap/internal/types"
)

// InfoFilename is the name of the plain-text summary written next to
// downloaded images.
const InfoFilename = "product_info.txt"

// WriteInfo writes a human-readable summary of rec.
func WriteInfo(w io.Writer, rec *types.ProductRecord) error {
	bw := bufio.NewWriter(w)
	values := row(rec)
	for i := 0; i < len(columns)-2; i++ {
		fmt.Fprintf(bw, "%s: %s\n", columns[i], values[i])
	}
	fmt.Fprintf(bw, "\nMain image URLs:\n%s\n", strings.Join(rec.MainImages, "\n"))
	fmt.Fprintf(bw, "\nDetail image URLs:\n%s\n", strings.Join(rec.DetailImages, "\n"))
	if err := bw.Flush(); err != nil {
		return &types.ExportError{Format: "txt", Err: err}
	}
	return nil
}
