package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ItemSnap/internal/export"
	"github.com/IshaanNene/ItemSnap/internal/types"
)

var (
	extractHTML       string
	extractFormat     string
	extractOut        string
	extractAddToBatch bool
)

// extractCmd creates the "extract" subcommand.
func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [url]",
		Short: "Extract one product page",
		Long: `Open a Taobao or Tmall product page, wait for it to settle, and extract
its title, prices, discount, sales and image URLs.

Without --format the record is printed to stdout as JSON. With --format the
record is written to a timestamped file under --out.`,
		Args: cobra.ExactArgs(1),
		RunE: runExtract,
	}

	cmd.Flags().StringVar(&extractHTML, "html", "", "read the page from a saved HTML file instead of the network")
	cmd.Flags().StringVarP(&extractFormat, "format", "f", "", "save as json, csv or xlsx")
	cmd.Flags().StringVarP(&extractOut, "out", "o", "", "output directory (default: export.dir)")
	cmd.Flags().BoolVar(&extractAddToBatch, "add-to-batch", false, "also add the record to the batch list")

	return cmd
}

func runExtract(cmd *cobra.Command, args []string) error {
	a, err := newApp(extractHTML)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := a.handler.Extract(ctx, args[0])
	if err != nil {
		return err
	}

	if extractFormat == "" {
		data, err := rec.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		path, err := saveRecord(rec, extractFormat, outDir(extractOut, a.cfg.Export.Dir))
		if err != nil {
			return err
		}
		a.metrics.ExportsTotal.Add(1)
		fmt.Printf("✅ Saved %s\n", path)
	}

	if extractAddToBatch {
		batch, err := a.openBatch(ctx)
		if err != nil {
			return err
		}
		added, err := batch.Upsert(ctx, rec)
		if err != nil {
			return err
		}
		printUpsert(added, batch.Len())
	}

	printSummary(rec)
	return nil
}

func outDir(flag, fallback string) string {
	if flag != "" {
		return flag
	}
	return fallback
}

func saveRecord(rec *types.ProductRecord, format, dir string) (string, error) {
	f, err := export.ParseFormat(format)
	if err != nil {
		return "", err
	}
	name := export.Filename("product", f, time.Now())
	return export.SaveFile(dir, name, func(w io.Writer) error {
		return export.WriteRecord(w, rec, f)
	})
}

func printUpsert(added bool, count int) {
	if added {
		fmt.Fprintf(os.Stderr, "➕ Added to batch (%d records)\n", count)
	} else {
		fmt.Fprintf(os.Stderr, "🔄 Updated batch record (%d records)\n", count)
	}
}

// printSummary writes a short human-readable line per field to stderr so
// stdout stays machine-readable.
func printSummary(rec *types.ProductRecord) {
	fmt.Fprintf(os.Stderr, "\n   Title:    %s\n", orDash(rec.Title))
	fmt.Fprintf(os.Stderr, "   Price:    %s", orDash(rec.Price.Current))
	if rec.Price.Original != "" {
		fmt.Fprintf(os.Stderr, " (was %s, %s)", rec.Price.Original, orDash(rec.Price.Discount))
	}
	fmt.Fprintf(os.Stderr, "\n   Sales:    %s\n", orDash(rec.Sales))
	fmt.Fprintf(os.Stderr, "   Images:   %d main, %d detail\n", len(rec.MainImages), len(rec.DetailImages))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
