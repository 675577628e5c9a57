package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-chaser/internal/chaser"
	"github.com/sells-group/compliance-chaser/internal/export"
	"github.com/sells-group/compliance-chaser/internal/store"
	"github.com/sells-group/compliance-chaser/internal/taskfile"
)

var (
	exportFormat string
	exportOut    string
	importFile   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored tasks as JSON or a spreadsheet, or profiles as JSON files",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		format := strings.ToLower(exportFormat)
		switch format {
		case "json", "xlsx", "profiles":
		default:
			return eris.Errorf("unknown export format %q (want json, xlsx or profiles)", exportFormat)
		}
		if format != "json" && exportOut == "" {
			return eris.Errorf("--out is required for %s export", format)
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if format == "profiles" {
			return exportProfiles(cmd, st, exportOut)
		}

		tasks, err := store.ListAllTasks(ctx, st, store.TaskFilter{})
		if err != nil {
			return eris.Wrap(err, "export")
		}

		return withOutput(exportOut, func(w io.Writer) error {
			if format == "xlsx" {
				return export.WriteTasksXLSX(w, chaser.Evaluate(tasks, time.Now()))
			}
			return taskfile.Write(w, tasks)
		})
	},
}

// exportProfiles writes one <client_id>.json file per stored profile.
func exportProfiles(cmd *cobra.Command, st store.Store, dir string) error {
	profiles, err := st.ListProfiles(cmd.Context())
	if err != nil {
		return eris.Wrap(err, "export profiles")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "create profile dir")
	}
	for _, p := range profiles {
		path := filepath.Join(dir, p.ClientID+".json")
		if err := withOutput(path, func(w io.Writer) error { return taskfile.WriteProfile(w, p) }); err != nil {
			return err
		}
	}
	zap.L().Info("export complete", zap.Int("profiles", len(profiles)), zap.String("dir", dir))
	return nil
}

// withOutput runs write against path, or stdout when path is empty.
func withOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "create %s", path)
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck,gosec
		return err
	}
	return eris.Wrapf(f.Close(), "close %s", path)
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a JSON task file into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		f, err := os.Open(importFile)
		if err != nil {
			return eris.Wrap(err, "open task file")
		}
		defer f.Close() //nolint:errcheck

		res, err := taskfile.Read(f)
		if err != nil {
			return eris.Wrapf(err, "import %s", importFile)
		}
		for _, rej := range res.Rejections {
			zap.L().Warn("import: task rejected",
				zap.Int("index", rej.Index),
				zap.String("reason", rej.Reason),
			)
		}
		tasks := res.Tasks

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.UpsertTasks(ctx, tasks)
		if err != nil {
			return eris.Wrap(err, "import tasks")
		}

		zap.L().Info("import complete",
			zap.Int("tasks", len(tasks)),
			zap.Int("rejected", len(res.Rejections)),
			zap.Int64("upserted", n),
			zap.String("file", importFile),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "json, xlsx or profiles")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (directory for profiles); stdout for json when empty")
	importCmd.Flags().StringVar(&importFile, "file", "", "path to JSON task file (required)")
	_ = importCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
