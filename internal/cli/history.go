package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/truthlens/internal/history"
	"github.com/ppiankov/truthlens/internal/model"
	"github.com/ppiankov/truthlens/internal/render"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse and manage past checks",
	Long: `History keeps the 50 most recent checks, newest first.

IDs may be abbreviated to any unique prefix.`,
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List past checks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, store *history.Store) error {
			if historyJSON {
				return render.JSON(cmd.OutOrStdout(), store.List())
			}
			return render.History(cmd.OutOrStdout(), store.List())
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one past check",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, store *history.Store) error {
			entry, err := resolveEntry(store.List(), args[0])
			if err != nil {
				return err
			}
			if historyJSON {
				return render.JSON(cmd.OutOrStdout(), entry)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s [%s] %s\n\n", entry.CreatedAt, entry.ContentType, entry.ContentPreview)
			return render.Result(cmd.OutOrStdout(), entry.Result)
		})
	},
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete one past check",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, store *history.Store) error {
			entry, err := resolveEntry(store.List(), args[0])
			if err != nil {
				return err
			}
			store.Delete(ctx, entry.ID)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %s\n", entry.ID)
			return nil
		})
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all past checks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(func(ctx context.Context, store *history.Store) error {
			n := store.Len()
			store.Clear(ctx)
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %d entries\n", n)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyDeleteCmd, historyClearCmd)
	historyCmd.PersistentFlags().BoolVar(&historyJSON, "json", false, "print as JSON")
}

// withHistory opens only the history store, without any upstream providers
func withHistory(fn func(ctx context.Context, store *history.Store) error) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := openHistory(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	return fn(ctx, store)
}

// resolveEntry finds the entry whose id equals or starts with prefix
func resolveEntry(entries []model.HistoryEntry, prefix string) (model.HistoryEntry, error) {
	var matches []model.HistoryEntry
	for _, e := range entries {
		if e.ID == prefix {
			return e, nil
		}
		if strings.HasPrefix(e.ID, prefix) {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 0:
		return model.HistoryEntry{}, fmt.Errorf("no history entry matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return model.HistoryEntry{}, fmt.Errorf("%q is ambiguous (%d entries match)", prefix, len(matches))
	}
}
