package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/compliance-chaser/internal/config"
	"github.com/sells-group/compliance-chaser/internal/model"
	"github.com/sells-group/compliance-chaser/internal/source"
	"github.com/sells-group/compliance-chaser/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Store.Driver = "sqlite"
	c.Store.DatabaseURL = filepath.Join(t.TempDir(), "chaser.db")
	c.Source.Dir = "data/source_docs"
	c.Source.FTPTimeoutSecs = 5
	c.Source.MaxFileMB = 2
	c.Rules.PensionRequiresMention = true
	c.Rules.LOAGateMaxMissing = 3
	c.Batch.MaxConcurrentDocuments = 2
	c.Retry.MaxAttempts = 4
	c.Retry.InitialBackoffMs = 100
	c.Retry.MaxBackoffMs = 1000
	return c
}

func TestInitSource(t *testing.T) {
	c := testConfig(t)

	tests := []struct {
		name    string
		cfgFTP  string
		dir     string
		ftpURL  string
		wantFTP bool
		wantDir string
	}{
		{"config dir", "", "", "", false, "data/source_docs"},
		{"flag dir", "", "/srv/docs", "", false, "/srv/docs"},
		{"flag ftp", "", "/srv/docs", "ftp://files.example.com/docs/", true, ""},
		{"config ftp", "ftp://files.example.com/docs/", "", "", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.Source.FTPURL = tt.cfgFTP
			src := initSource(c, tt.dir, tt.ftpURL)
			if tt.wantFTP {
				assert.IsType(t, &source.FTPSource{}, src)
				return
			}
			ds, ok := src.(*source.DirSource)
			require.True(t, ok)
			assert.Equal(t, tt.wantDir, ds.Dir)
		})
	}
}

func TestRetryPolicy(t *testing.T) {
	p := retryPolicy(testConfig(t), "source", "ftp")
	assert.Equal(t, 4, p.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, p.InitialBackoff)
	assert.Equal(t, time.Second, p.MaxBackoff)
	assert.NotNil(t, p.OnRetry)
}

func TestInitProcessor(t *testing.T) {
	c := testConfig(t)
	p, err := initProcessor(c)
	require.NoError(t, err)
	assert.NotNil(t, p)

	c.Keywords.Path = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = initProcessor(c)
	assert.Error(t, err)
}

func TestInitStore_SQLite(t *testing.T) {
	cfg = testConfig(t)
	t.Cleanup(func() { cfg = nil })

	ctx := context.Background()
	st, err := initStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	tasks, err := st.ListTasks(ctx, store.TaskFilter{})
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestInitStore_UnknownDriver(t *testing.T) {
	cfg = testConfig(t)
	cfg.Store.Driver = "mysql"
	t.Cleanup(func() { cfg = nil })

	_, err := initStore(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestWithOutput_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, withOutput(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "hello")
		return err
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	err = withOutput(filepath.Join(t.TempDir(), "missing", "out.txt"), func(io.Writer) error { return nil })
	assert.Error(t, err)
}

func TestImportThenChase(t *testing.T) {
	cfg = testConfig(t)
	t.Cleanup(func() { cfg = nil })

	file := filepath.Join(t.TempDir(), "tasks.json")
	body := `[{
		"client_id": "DOC_B2BB", "client_name": "Jane Doe", "item_name": "collect_loa",
		"required_for": "pre_advice", "target": "provider", "status": "NOT_STARTED",
		"priority": "high", "channel": "email", "due_date": "2025-06-01",
		"reason": "Missing LOA", "source_doc": "Report A.docx"
	}]`
	require.NoError(t, os.WriteFile(file, []byte(body), 0o644))

	importFile = file
	t.Cleanup(func() { importFile = "" })
	importCmd.SetContext(context.Background())
	require.NoError(t, importCmd.RunE(importCmd, nil))

	ctx := context.Background()
	st, err := initStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	tasks, err := st.ListTasks(ctx, store.TaskFilter{Client: "Jane Doe"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.StatusNotStarted, tasks[0].Status)
	assert.Equal(t, model.TargetProvider, tasks[0].Target)
}

func TestImport_KeepsValidEntries(t *testing.T) {
	cfg = testConfig(t)
	t.Cleanup(func() { cfg = nil })

	file := filepath.Join(t.TempDir(), "tasks.json")
	body := `[{
		"client_id": "DOC_B2BB", "client_name": "Jane Doe", "item_name": "collect_loa",
		"required_for": "pre_advice", "target": "provider", "status": "not_started",
		"priority": "high", "channel": "email", "due_date": "2025-06-01",
		"reason": "Missing LOA", "source_doc": "Report A.docx"
	}, {
		"client_id": "DOC_B2BB", "client_name": "Jane Doe", "item_name": "collect_fact_find",
		"required_for": "pre_advice", "target": "regulator", "status": "not_started",
		"priority": "high", "channel": "email", "due_date": "2025-06-01",
		"reason": "Missing fact find", "source_doc": "Report A.docx"
	}]`
	require.NoError(t, os.WriteFile(file, []byte(body), 0o644))

	importFile = file
	t.Cleanup(func() { importFile = "" })
	importCmd.SetContext(context.Background())
	require.NoError(t, importCmd.RunE(importCmd, nil))

	ctx := context.Background()
	st, err := initStore(ctx)
	require.NoError(t, err)
	defer st.Close() //nolint:errcheck

	tasks, err := st.ListTasks(ctx, store.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "collect_loa", tasks[0].ItemName)
}
