package main

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-chaser/internal/config"
	"github.com/sells-group/compliance-chaser/internal/extract"
	"github.com/sells-group/compliance-chaser/internal/pipeline"
	"github.com/sells-group/compliance-chaser/internal/resilience"
	"github.com/sells-group/compliance-chaser/internal/rules"
	"github.com/sells-group/compliance-chaser/internal/source"
	"github.com/sells-group/compliance-chaser/internal/store"
)

// initStore opens and migrates the configured store. Callers should defer
// st.Close().
func initStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch strings.ToLower(cfg.Store.Driver) {
	case "postgres", "postgresql":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		st, err = store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initProcessor builds the document processor from the keyword table and
// rule options in c.
func initProcessor(c *config.Config) (*pipeline.Processor, error) {
	var kw *extract.Keywords
	if c.Keywords.Path != "" {
		loaded, err := extract.LoadKeywords(c.Keywords.Path)
		if err != nil {
			return nil, err
		}
		kw = loaded
		zap.L().Info("loaded keyword table", zap.String("path", c.Keywords.Path))
	}

	eng := rules.NewEngine(rules.Options{
		PensionRequiresMention: c.Rules.PensionRequiresMention,
		LOAGateMaxMissing:      c.Rules.LOAGateMaxMissing,
	})
	return pipeline.NewProcessor(extract.New(kw), eng), nil
}

// retryPolicy maps the retry section onto a resilience policy that logs
// each retry under component.
func retryPolicy(c *config.Config, component, operation string) resilience.Policy {
	p := resilience.NewPolicy(c.Retry.MaxAttempts, c.Retry.InitialBackoffMs, c.Retry.MaxBackoffMs)
	p.OnRetry = resilience.LogRetries(component, operation)
	return p
}

// initSource picks the document source. An FTP URL wins over a directory.
func initSource(c *config.Config, dir, ftpURL string) source.Source {
	if ftpURL == "" {
		ftpURL = c.Source.FTPURL
	}
	if ftpURL != "" {
		return source.NewFTPSource(ftpURL, source.FTPOptions{
			Timeout:      time.Duration(c.Source.FTPTimeoutSecs) * time.Second,
			MaxFileBytes: int64(c.Source.MaxFileMB) << 20,
			Retry:        retryPolicy(c, "source", "ftp"),
		})
	}
	if dir == "" {
		dir = c.Source.Dir
	}
	return source.NewDirSource(dir)
}
