package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/compliance-chaser/internal/model"
	"github.com/sells-group/compliance-chaser/internal/store"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "List stored chase tasks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		client, _ := cmd.Flags().GetString("client")
		rawStatus, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		filter := store.TaskFilter{Client: client, Limit: limit}
		if rawStatus != "" {
			status, err := model.ParseStatus(rawStatus)
			if err != nil {
				return err
			}
			filter.Status = status
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		tasks, err := st.ListTasks(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "tasks list")
		}
		if len(tasks) == 0 {
			fmt.Fprintln(os.Stderr, "No tasks found.")
			return nil
		}

		formatTasks(os.Stdout, tasks)
		return nil
	},
}

// formatTasks writes a tabular list of tasks to out.
func formatTasks(out io.Writer, tasks []model.ChaseTask) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CLIENT\tITEM\tSTATUS\tDUE\tPRIORITY\tCHANNEL\tSOURCE")
	_, _ = fmt.Fprintln(w, "------\t----\t------\t---\t--------\t-------\t------")

	for _, t := range tasks {
		client := t.ClientName
		if client == "" {
			client = t.ClientID
		}
		if len(client) > 30 {
			client = client[:27] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			client,
			t.ItemName,
			t.Status,
			t.DueDate,
			t.Priority,
			t.Channel,
			t.SourceDoc,
		)
	}
	_ = w.Flush()
}

var failuresCmd = &cobra.Command{
	Use:   "failures",
	Short: "List documents that failed processing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		limit, _ := cmd.Flags().GetInt("limit")

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		failures, err := st.ListFailures(ctx, limit)
		if err != nil {
			return eris.Wrap(err, "failures list")
		}
		if len(failures) == 0 {
			fmt.Fprintln(os.Stderr, "No failures recorded.")
			return nil
		}

		formatFailures(os.Stdout, failures)
		return nil
	},
}

// formatFailures writes a tabular list of document failures to out.
func formatFailures(out io.Writer, failures []model.DocumentFailure) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "WHEN\tFILE\tSTAGE\tERROR")
	_, _ = fmt.Fprintln(w, "----\t----\t-----\t-----")

	for _, f := range failures {
		msg := f.Error
		if len(msg) > 60 {
			msg = msg[:57] + "..."
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			f.CreatedAt.Format("2006-01-02 15:04"),
			f.SourceFile,
			f.FailedStage,
			msg,
		)
	}
	_ = w.Flush()
}

func init() {
	tasksCmd.Flags().String("client", "", "filter by client id or name")
	tasksCmd.Flags().String("status", "", "filter by status (not_started, reminder_sent, escalated, completed)")
	tasksCmd.Flags().Int("limit", 0, "maximum tasks to list")
	failuresCmd.Flags().Int("limit", 100, "maximum failures to list")
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(failuresCmd)
}
