package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/okian/rollcall/internal/adapters/repository"
	"github.com/okian/rollcall/internal/config"
	"github.com/okian/rollcall/internal/domain/ledger"
	"github.com/okian/rollcall/internal/domain/model"
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Print every attendance record persisted so far",
	Args:  cobra.NoArgs,
	RunE:  runLedger,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
}

func runLedger(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, _, err := setup(ctx)
	if err != nil {
		return err
	}
	records, err := readHistory(ctx, cfg)
	if err != nil {
		return err
	}
	return printRecords(cmd.OutOrStdout(), records, cfg.TimeLayout)
}

// readHistory returns every persisted record. A ledger that does not exist yet
// is reported as empty rather than created.
func readHistory(ctx context.Context, cfg *config.Config) ([]model.Record, error) {
	if _, err := os.Stat(cfg.LedgerPath); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	store, err := repository.OpenCSVStore(cfg.LedgerPath, repository.WithTimeLayout(cfg.TimeLayout))
	if err != nil {
		return nil, err
	}
	book := ledger.New(store)
	defer func() { _ = book.Close() }()
	return book.History(ctx)
}

func printRecords(w io.Writer, records []model.Record, layout string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, repository.HeaderName+"\t"+repository.HeaderTime)
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\n", r.Identity, r.Time.Format(layout))
	}
	return tw.Flush()
}
