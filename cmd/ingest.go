package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sells-group/compliance-chaser/internal/pipeline"
)

var (
	ingestDir    string
	ingestFTPURL string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract facts from source documents and store their chase tasks",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		proc, err := initProcessor(cfg)
		if err != nil {
			return err
		}

		src := initSource(cfg, ingestDir, ingestFTPURL)
		res, err := proc.Ingest(ctx, src, st, cfg.Batch.MaxConcurrentDocuments, time.Now())
		if err != nil {
			return err
		}

		formatIngest(os.Stdout, res)
		return nil
	},
}

// formatIngest prints one line per processed document and one per failure.
func formatIngest(out io.Writer, res *pipeline.IngestResult) {
	for _, o := range res.Outputs {
		anchor := "none"
		if o.Profile.AnchorDate != nil {
			anchor = o.Profile.AnchorDate.String()
		}
		_, _ = fmt.Fprintf(out, "%s -> %d tasks (anchor=%s)\n", o.Profile.SourceFile, len(o.Tasks), anchor)
	}
	for _, f := range res.Failures {
		_, _ = fmt.Fprintf(out, "%s -> failed at %s: %s\n", f.SourceFile, f.FailedStage, f.Error)
	}
	_, _ = fmt.Fprintf(out, "%d documents, %d tasks, %d failures\n",
		res.Documents, len(res.Tasks), len(res.Failures))
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "source directory (default from config)")
	ingestCmd.Flags().StringVar(&ingestFTPURL, "ftp-url", "", "read documents from an FTP directory instead, e.g. ftp://host/docs/")
	rootCmd.AddCommand(ingestCmd)
}
