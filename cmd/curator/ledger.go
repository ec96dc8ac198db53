package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/content-curator/internal/ledger"
	"github.com/jonathan/content-curator/internal/observability"
	"github.com/jonathan/content-curator/internal/types"
)

var ledgerLimit int

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and maintain the processed-articles ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the most recently processed identities",
	Args:  cobra.NoArgs,
	RunE: withLedger(func(ctx context.Context, l ledger.Ledger, w io.Writer, _ []string) error {
		return listLedger(ctx, l, w, ledgerLimit)
	}),
}

var ledgerCheckCmd = &cobra.Command{
	Use:   "check <link-or-identity>",
	Short: "Report whether an article has been processed",
	Args:  cobra.ExactArgs(1),
	RunE: withLedger(func(ctx context.Context, l ledger.Ledger, w io.Writer, args []string) error {
		return checkLedger(ctx, l, w, args[0])
	}),
}

var ledgerAddCmd = &cobra.Command{
	Use:   "add <link-or-identity>...",
	Short: "Mark articles as processed so runs skip them",
	Args:  cobra.MinimumNArgs(1),
	RunE: withLedger(func(ctx context.Context, l ledger.Ledger, w io.Writer, args []string) error {
		return addToLedger(ctx, l, w, args)
	}),
}

func init() {
	ledgerListCmd.Flags().IntVarP(&ledgerLimit, "limit", "n", 20, "Number of entries to show (0 for all)")
	ledgerCmd.AddCommand(ledgerListCmd, ledgerCheckCmd, ledgerAddCmd)
	rootCmd.AddCommand(ledgerCmd)
}

type ledgerFunc func(ctx context.Context, l ledger.Ledger, w io.Writer, args []string) error

// withLedger opens only the ledger; no model or scraper credentials are needed.
func withLedger(fn ledgerFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext()
		defer stop()

		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.close()

		l, err := a.ledger(ctx)
		if err != nil {
			return err
		}
		return fn(ctx, l, os.Stdout, args)
	}
}

// identityArg treats anything without the composite separator as a link.
func identityArg(arg string) string {
	arg = strings.TrimSpace(arg)
	if strings.Contains(arg, "|") {
		return arg
	}
	return types.NormalizeLink(arg)
}

func listLedger(ctx context.Context, l ledger.Ledger, w io.Writer, limit int) error {
	entries, err := l.Entries(ctx)
	if err != nil {
		return err
	}
	observability.NewPrinter(w).PrintLedger(entries, limit)
	return nil
}

func checkLedger(ctx context.Context, l ledger.Ledger, w io.Writer, arg string) error {
	id := identityArg(arg)
	seen, err := l.Contains(ctx, id)
	if err != nil {
		return err
	}
	if !seen && id != arg {
		if seen, err = l.Contains(ctx, arg); err != nil {
			return err
		}
	}
	if seen {
		fmt.Fprintf(w, "processed: %s\n", id)
	} else {
		fmt.Fprintf(w, "not processed: %s\n", id)
	}
	return nil
}

func addToLedger(ctx context.Context, l ledger.Ledger, w io.Writer, args []string) error {
	for _, arg := range args {
		id := identityArg(arg)
		if id == "" {
			return fmt.Errorf("empty identity in %q", arg)
		}
		if err := l.Append(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(w, "added: %s\n", id)
	}
	return nil
}
