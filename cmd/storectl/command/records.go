package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mangatrack/internal/records"
	"mangatrack/internal/store"
)

var errNotFound = errors.New("no matching record")

func newGetCmd(a *app) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "get <kind> [key]",
		Short: "Look up one record",
		Long: `Look up the first record of a kind by its natural key (url, or user_id for
manga_output). Subscriptions are looked up with --field, e.g.
  storectl get subscription --field url=https://... --field user_id=42`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := records.ParseKind(args[0])
			if err != nil {
				return err
			}

			var key records.Key
			if kind.KeyField() != "" {
				if len(args) != 2 {
					return fmt.Errorf("%s lookups need a %s argument", kind, kind.KeyField())
				}
				key = records.Scalar(args[1])
			} else {
				if len(args) == 2 {
					return fmt.Errorf("%s lookups take --field filters, not a key argument", kind)
				}
				parsed, err := parseFields(kind, fields)
				if err != nil {
					return err
				}
				filter := records.Filter{}
				for name, value := range parsed {
					filter[name] = value
				}
				key = filter
			}

			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				rec, err := s.Get(ctx, kind, key)
				if err != nil {
					return err
				}
				if rec == nil {
					return fmt.Errorf("%w: %s", errNotFound, kind)
				}
				return a.print(cmd.OutOrStdout(), rec)
			})
		},
	}
	cmd.Flags().StringArrayVar(&fields, "field", nil, "field filter name=value (subscription lookups)")
	return cmd
}

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list <kind>",
		Short: "List every record of a kind",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := records.ParseKind(args[0])
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				list, err := s.GetAll(ctx, kind)
				if err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), list)
			})
		},
	}
}

func newAddCmd(a *app) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "add <kind> --field name=value...",
		Short: "Insert a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := decodeRecord(args[0], fields)
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				if err := s.Add(ctx, rec); err != nil {
					return err
				}
				return a.print(cmd.OutOrStdout(), rec)
			})
		},
	}
	cmd.Flags().StringArrayVar(&fields, "field", nil, "record field name=value (repeatable)")
	return cmd
}

func newEraseCmd(a *app) *cobra.Command {
	var fields []string

	cmd := &cobra.Command{
		Use:   "erase <kind> --field name=value...",
		Short: "Erase one record whose fields all match",
		Long: `Erase the first record whose stored fields all equal the given ones.
Optional chapter_file fields that are not given must be absent on the stored record.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := decodeRecord(args[0], fields)
			if err != nil {
				return err
			}
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				if err := s.Erase(ctx, rec); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "erased %s (if present)\n", rec.Kind())
				return nil
			})
		},
	}
	cmd.Flags().StringArrayVar(&fields, "field", nil, "record field name=value (repeatable)")
	return cmd
}

func newFileCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "file <unique-id>",
		Short: "Find a chapter file by file_unique_id or cbz_unique_id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				file, err := s.GetChapterFileByID(ctx, args[0])
				if err != nil {
					return err
				}
				if file == nil {
					return fmt.Errorf("%w: chapter file %s", errNotFound, args[0])
				}
				return a.print(cmd.OutOrStdout(), file)
			})
		},
	}
}

func newPingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the store is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd, func(ctx context.Context, s store.Store) error {
				if err := s.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}
}

func decodeRecord(kindArg string, flags []string) (records.Record, error) {
	kind, err := records.ParseKind(kindArg)
	if err != nil {
		return nil, err
	}
	fields, err := parseFields(kind, flags)
	if err != nil {
		return nil, err
	}
	return kind.Decode(fields)
}
