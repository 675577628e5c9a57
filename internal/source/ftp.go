package source

import (
	"context"
	"io"
	"net"
	"net/url"
	"path"
	"sort"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-chaser/internal/model"
	"github.com/sells-group/compliance-chaser/internal/resilience"
)

// FTPOptions configures FTPSource.
type FTPOptions struct {
	Timeout time.Duration
	// MaxFileBytes skips files larger than this. Zero means 32 MiB.
	MaxFileBytes int64
	// Retry applies to the connect/list step and to each retrieval. FTP 4xx
	// replies and dropped connections are retried.
	Retry resilience.Policy
}

// FTPSource reads supported documents from a directory on an FTP server.
// The URL may carry credentials; anonymous login is used otherwise.
type FTPSource struct {
	url  string
	opts FTPOptions
}

// NewFTPSource creates an FTPSource for rawURL, e.g. ftp://host/docs/.
func NewFTPSource(rawURL string, opts FTPOptions) *FTPSource {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxFileBytes == 0 {
		opts.MaxFileBytes = 32 << 20
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultPolicy()
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.LogRetries("source", "ftp")
	}
	return &FTPSource{url: rawURL, opts: opts}
}

type ftpTarget struct {
	host     string
	dir      string
	user     string
	password string
}

func parseFTPURL(rawURL string) (ftpTarget, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpTarget{}, eris.Wrap(err, "source: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpTarget{}, eris.Errorf("source: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Host == "" {
		return ftpTarget{}, eris.New("source: empty host in ftp url")
	}

	t := ftpTarget{
		host:     u.Host,
		dir:      u.Path,
		user:     "anonymous",
		password: "anonymous@",
	}
	if _, _, splitErr := net.SplitHostPort(t.host); splitErr != nil {
		t.host = net.JoinHostPort(t.host, "21")
	}
	if t.dir == "" {
		t.dir = "/"
	}
	if u.User != nil {
		t.user = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			t.password = pw
		}
	}
	return t, nil
}

type ftpSession struct {
	conn    *ftp.ServerConn
	entries []*ftp.Entry
}

// List connects, lists the remote directory and retrieves every supported
// regular file, sorted by name.
func (s *FTPSource) List(ctx context.Context) (*Listing, error) {
	target, err := parseFTPURL(s.url)
	if err != nil {
		return nil, err
	}

	sess, err := resilience.DoVal(ctx, s.opts.Retry, func(ctx context.Context) (ftpSession, error) {
		return s.open(ctx, target)
	})
	if err != nil {
		return nil, err
	}
	defer sess.conn.Quit() //nolint:errcheck

	out := &Listing{}
	for _, name := range s.candidates(sess.entries) {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "source: list cancelled")
		}
		remote := path.Join(target.dir, name)
		text, err := resilience.DoVal(ctx, s.opts.Retry, func(context.Context) (string, error) {
			return s.fetch(sess.conn, remote, name)
		})
		if err != nil {
			zap.L().Warn("source: skipping ftp file", zap.String("file", name), zap.Error(err))
			out.Errors = append(out.Errors, FileError{Name: name, Err: err})
			continue
		}
		out.Documents = append(out.Documents, model.Document{FileName: name, Text: text})
	}
	return out, nil
}

// open dials, logs in and lists the target directory. The connection is
// closed on any failure.
func (s *FTPSource) open(ctx context.Context, target ftpTarget) (ftpSession, error) {
	zap.L().Debug("source: ftp connecting", zap.String("host", target.host), zap.String("dir", target.dir))

	conn, err := ftp.Dial(target.host, ftp.DialWithTimeout(s.opts.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return ftpSession{}, eris.Wrap(err, "source: ftp dial")
	}
	if err := conn.Login(target.user, target.password); err != nil {
		conn.Quit() //nolint:errcheck,gosec
		return ftpSession{}, eris.Wrap(err, "source: ftp login")
	}
	entries, err := conn.List(target.dir)
	if err != nil {
		conn.Quit() //nolint:errcheck,gosec
		return ftpSession{}, eris.Wrapf(err, "source: ftp list %s", target.dir)
	}
	return ftpSession{conn: conn, entries: entries}, nil
}

// candidates filters a listing down to supported regular files within the
// size limit.
func (s *FTPSource) candidates(entries []*ftp.Entry) []string {
	var names []string
	for _, e := range entries {
		if e == nil || e.Type != ftp.EntryTypeFile || !Supported(e.Name) {
			continue
		}
		if e.Size > uint64(s.opts.MaxFileBytes) {
			zap.L().Warn("source: ftp file too large", zap.String("file", e.Name), zap.Uint64("size", e.Size))
			continue
		}
		names = append(names, e.Name)
	}
	sort.Strings(names)
	return names
}

func (s *FTPSource) fetch(conn *ftp.ServerConn, remote, name string) (string, error) {
	resp, err := conn.Retr(remote)
	if err != nil {
		return "", eris.Wrap(err, "source: ftp retrieve")
	}
	data, err := io.ReadAll(io.LimitReader(resp, s.opts.MaxFileBytes))
	closeErr := resp.Close()
	if err != nil {
		return "", eris.Wrap(err, "source: ftp read")
	}
	if closeErr != nil {
		return "", eris.Wrap(closeErr, "source: close ftp response")
	}
	return Decode(name, data)
}
