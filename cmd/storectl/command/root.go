package command

// root.go builds the storectl command tree. Every subcommand opens the
// configured store, runs one store operation and prints the result.

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mangatrack/internal/store"
)

// OpenFunc opens the store a command runs against.
type OpenFunc func(ctx context.Context) (store.Store, error)

type app struct {
	open   OpenFunc
	output string // json or yaml
}

// NewRootCmd returns the storectl root command with all subcommands attached.
func NewRootCmd(open OpenFunc) *cobra.Command {
	a := &app{open: open}

	rootCmd := &cobra.Command{
		Use:   "storectl",
		Short: "storectl - inspect and edit the manga tracker record store",
		Long: `storectl talks directly to the record store configured by DB_URL,
DATABASE_URL_PRIMARY or REDIS_URL. Use it to:
- Look up, list, add and erase chapter files, outputs, subscriptions, last chapters and names
- Find a chapter file by its uploaded file id
- List or clear a user's subscriptions

Record kinds: chapter_file, manga_output, subscription, last_chapter, manga_name
(collection names such as chapter_files are accepted too).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if a.output != "json" && a.output != "yaml" {
				return fmt.Errorf("unknown output format %q: use json or yaml", a.output)
			}
			return nil
		},
	}

	// Global persistent flags = available to all subcommands
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "json", "output format: json or yaml")

	rootCmd.AddCommand(
		newGetCmd(a),
		newListCmd(a),
		newAddCmd(a),
		newEraseCmd(a),
		newFileCmd(a),
		newSubsCmd(a),
		newEraseSubsCmd(a),
		newPingCmd(a),
	)
	return rootCmd
}

// Execute runs storectl and exits non-zero on failure.
// This is called by main.main().
func Execute(open OpenFunc) {
	if err := NewRootCmd(open).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withStore opens the store for the duration of fn.
func (a *app) withStore(cmd *cobra.Command, fn func(ctx context.Context, s store.Store) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := a.open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close(ctx)

	return fn(ctx, s)
}
