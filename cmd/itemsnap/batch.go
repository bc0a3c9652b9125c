package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/ItemSnap/internal/export"
	"github.com/IshaanNene/ItemSnap/internal/scheduler"
	"github.com/IshaanNene/ItemSnap/internal/types"
)

var (
	batchHTML   string
	batchFormat string
	batchOut    string
)

// batchCmd creates the "batch" subcommand group.
func batchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Manage the batch list of collected products",
	}

	add := &cobra.Command{
		Use:   "add [url...]",
		Short: "Extract pages and add them to the batch (existing URLs are updated in place)",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runBatchAdd,
	}
	add.Flags().StringVar(&batchHTML, "html", "", "read the page from a saved HTML file instead of the network")

	list := &cobra.Command{
		Use:   "list",
		Short: "List batch records",
		RunE:  runBatchList,
	}

	clr := &cobra.Command{
		Use:   "clear",
		Short: "Remove every batch record",
		RunE:  runBatchClear,
	}

	exp := &cobra.Command{
		Use:   "export",
		Short: "Export the batch as json, csv or xlsx",
		RunE:  runBatchExport,
	}
	exp.Flags().StringVarP(&batchFormat, "format", "f", "xlsx", "export format: json, csv, xlsx")
	exp.Flags().StringVarP(&batchOut, "out", "o", "", "output directory (default: export.dir)")

	refresh := &cobra.Command{
		Use:   "refresh",
		Short: "Extract every batch URL again and update the stored records",
		RunE:  runBatchRefresh,
	}

	cmd.AddCommand(add, list, clr, exp, refresh)
	return cmd
}

func runBatchAdd(cmd *cobra.Command, args []string) error {
	a, err := newApp(batchHTML)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch, err := a.openBatch(ctx)
	if err != nil {
		return err
	}

	var failed int
	for _, rawURL := range args {
		rec, err := a.handler.Extract(ctx, rawURL)
		if err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "❌ %s: %v\n", rawURL, err)
			continue
		}
		added, err := batch.Upsert(ctx, rec)
		if err != nil {
			return err
		}
		printUpsert(added, batch.Len())
	}
	if failed == len(args) {
		return fmt.Errorf("no page could be extracted")
	}
	return nil
}

func runBatchList(cmd *cobra.Command, args []string) error {
	a, err := newApp("")
	if err != nil {
		return err
	}
	defer a.Close()

	batch, err := a.openBatch(cmd.Context())
	if err != nil {
		return err
	}
	recs := batch.Records()
	if len(recs) == 0 {
		fmt.Println("Batch is empty.")
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tPRICE\tDISCOUNT\tIMAGES\tURL")
	for i, rec := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\t%s\n",
			i+1, truncate(rec.Title, 40), orDash(rec.Price.Current), orDash(rec.Price.Discount),
			len(rec.MainImages), len(rec.DetailImages), rec.URL)
	}
	return tw.Flush()
}

func runBatchClear(cmd *cobra.Command, args []string) error {
	a, err := newApp("")
	if err != nil {
		return err
	}
	defer a.Close()

	batch, err := a.openBatch(cmd.Context())
	if err != nil {
		return err
	}
	n := batch.Len()
	if err := batch.Clear(cmd.Context()); err != nil {
		return err
	}
	fmt.Printf("🗑  Cleared %d records\n", n)
	return nil
}

func runBatchExport(cmd *cobra.Command, args []string) error {
	a, err := newApp("")
	if err != nil {
		return err
	}
	defer a.Close()

	f, err := export.ParseFormat(batchFormat)
	if err != nil {
		return err
	}
	batch, err := a.openBatch(cmd.Context())
	if err != nil {
		return err
	}
	recs := batch.Records()
	if len(recs) == 0 {
		return types.ErrEmptyBatch
	}

	name := export.Filename("batch", f, time.Now())
	path, err := export.SaveFile(outDir(batchOut, a.cfg.Export.Dir), name, func(w io.Writer) error {
		return export.WriteBatch(w, recs, f)
	})
	if err != nil {
		return err
	}
	fmt.Printf("✅ Exported %d records to %s\n", len(recs), path)
	return nil
}

func runBatchRefresh(cmd *cobra.Command, args []string) error {
	a, err := newApp("")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	batch, err := a.openBatch(ctx)
	if err != nil {
		return err
	}
	r, err := scheduler.NewRefresher("@daily", batch, a.handler, a.metrics, a.logger)
	if err != nil {
		return err
	}
	start := time.Now()
	sum, err := r.RefreshAll(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n✅ Refreshed %d records in %s\n", sum.Refreshed, time.Since(start).Round(time.Millisecond))
	fmt.Printf("   Failed:   %d\n", sum.Failed)
	fmt.Printf("   Changed:  %d prices\n", sum.Changed)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
