package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/okian/rollcall/internal/domain/model"
	"github.com/okian/rollcall/internal/domain/roster"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Enroll the images in the enrollment directory and list the identities",
	Long: `Build the roster exactly as a session would and print one identity per
line. Nothing is written to the attendance ledger.`,
	Args: cobra.NoArgs,
	RunE: runRoster,
}

func init() {
	rootCmd.AddCommand(rosterCmd)
}

func runRoster(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, lg, err := setup(ctx)
	if err != nil {
		return err
	}
	printIdentities(cmd.OutOrStdout(), roster.Identities(buildRoster(ctx, cfg, newEncoder(cfg), lg)))
	return nil
}

func printIdentities(w io.Writer, ids []model.Identity) {
	for _, id := range ids {
		fmt.Fprintln(w, id)
	}
	fmt.Fprintf(w, "%d enrolled\n", len(ids))
}
