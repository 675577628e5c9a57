package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-chaser/internal/chaser"
	"github.com/sells-group/compliance-chaser/internal/model"
	"github.com/sells-group/compliance-chaser/internal/store"
)

var (
	chaseApply  bool
	chaseJSON   bool
	chaseClient string
)

var chaseCmd = &cobra.Command{
	Use:   "chase",
	Short: "Evaluate stored tasks and show what to chase next",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tasks, err := store.ListAllTasks(ctx, st, store.TaskFilter{Client: chaseClient})
		if err != nil {
			return eris.Wrap(err, "chase")
		}

		report := chaser.Evaluate(tasks, time.Now())
		for _, rej := range report.Rejections {
			zap.L().Warn("chase: task rejected",
				zap.String("task", rej.Key.String()),
				zap.String("reason", rej.Reason),
			)
		}

		if chaseApply {
			n, err := chaser.Apply(ctx, st, report)
			if err != nil {
				return err
			}
			zap.L().Info("chase: statuses written", zap.Int("changed", n))
		}

		groups := chaser.Group(report)
		if chaseJSON {
			if groups == nil {
				groups = []chaser.ClientGroup{}
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(groups)
		}

		if len(groups) == 0 {
			fmt.Fprintln(os.Stderr, "No tasks found.")
			return nil
		}
		formatGroups(os.Stdout, groups)
		return nil
	},
}

// formatGroups writes one block per client with a row per task.
func formatGroups(out io.Writer, groups []chaser.ClientGroup) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for i, g := range groups {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		_, _ = fmt.Fprintf(w, "%s (%d)\n", g.Client, len(g.Tasks))
		_, _ = fmt.Fprintln(w, "  ITEM\tSTATE\tDUE\tPRIORITY\tTARGET\tACTION")
		for _, t := range g.Tasks {
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\t%s\n",
				t.ItemName,
				t.State,
				t.DueDate,
				t.Priority,
				t.Target,
				t.RecommendedAction,
			)
		}
	}
	_ = w.Flush()
}

var completeCmd = &cobra.Command{
	Use:   "complete <client-id> <item-name> <source-doc>",
	Short: "Mark a chase task completed",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		key := model.TaskKey{ClientID: args[0], ItemName: args[1], SourceDoc: args[2]}
		if err := chaser.Complete(ctx, st, key); err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", key, model.StatusCompleted)
		return nil
	},
}

func init() {
	chaseCmd.Flags().BoolVar(&chaseApply, "apply", false, "write changed statuses back to the store")
	chaseCmd.Flags().BoolVar(&chaseJSON, "json", false, "print the grouped projection as JSON")
	chaseCmd.Flags().StringVar(&chaseClient, "client", "", "only chase tasks for this client id or name")
	rootCmd.AddCommand(chaseCmd)
	rootCmd.AddCommand(completeCmd)
}
