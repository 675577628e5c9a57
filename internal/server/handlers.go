package server

import (
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/compliance-chaser/internal/chaser"
	"github.com/sells-group/compliance-chaser/internal/model"
	"github.com/sells-group/compliance-chaser/internal/source"
	"github.com/sells-group/compliance-chaser/internal/store"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type uploadRejection struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart upload: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck

	var headers []*multipart.FileHeader
	headers = append(headers, r.MultipartForm.File["files"]...)
	headers = append(headers, r.MultipartForm.File["file"]...)
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no files in upload")
		return
	}

	saved := []string{}
	var rejected []uploadRejection
	for _, fh := range headers {
		name, err := s.saveOne(fh)
		if err != nil {
			if !eris.Is(err, source.ErrInvalidFileName) {
				writeErr(w, r, err)
				return
			}
			rejected = append(rejected, uploadRejection{Name: fh.Filename, Error: err.Error()})
			continue
		}
		saved = append(saved, name)
	}

	zap.L().Info("server: upload stored",
		zap.Int("saved", len(saved)),
		zap.Int("rejected", len(rejected)),
	)
	writeJSON(w, http.StatusOK, map[string]any{"saved": saved, "rejected": rejected})
}

func (s *Server) saveOne(fh *multipart.FileHeader) (string, error) {
	f, err := fh.Open()
	if err != nil {
		return "", eris.Wrapf(err, "server: open upload %s", fh.Filename)
	}
	defer f.Close() //nolint:errcheck
	return source.SaveUpload(s.opts.UploadDir, fh.Filename, f)
}

type runResponse struct {
	OK         bool                    `json:"ok"`
	Documents  int                     `json:"documents"`
	TasksCount int                     `json:"tasks_count"`
	Upserted   int64                   `json:"upserted"`
	Failures   []model.DocumentFailure `json:"failures"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	res, err := s.proc.Ingest(r.Context(), s.src, s.store, s.opts.Concurrency, s.now())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	failures := res.Failures
	if failures == nil {
		failures = []model.DocumentFailure{}
	}
	writeJSON(w, http.StatusOK, runResponse{
		OK:         true,
		Documents:  res.Documents,
		TasksCount: len(res.Tasks),
		Upserted:   res.Upserted,
		Failures:   failures,
	})
}

// taskFilter reads the shared list query parameters.
func taskFilter(r *http.Request) (store.TaskFilter, error) {
	q := r.URL.Query()
	f := store.TaskFilter{
		Client:    q.Get("client"),
		SourceDoc: q.Get("source_doc"),
	}
	if raw := q.Get("status"); raw != "" {
		st, err := model.ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = st
	}
	var err error
	if f.Limit, err = intParam(q.Get("limit")); err != nil {
		return f, eris.Wrap(model.ErrInvalidEnum, "limit must be an integer")
	}
	if f.Offset, err = intParam(q.Get("offset")); err != nil {
		return f, eris.Wrap(model.ErrInvalidEnum, "offset must be an integer")
	}
	return f, nil
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, eris.Errorf("bad integer %q", raw)
	}
	return n, nil
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	f, err := taskFilter(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	tasks, err := s.store.ListTasks(r.Context(), f)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if tasks == nil {
		tasks = []model.ChaseTask{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// evaluate lists the filtered tasks and judges them against one instant.
func (s *Server) evaluate(r *http.Request) (chaser.Report, error) {
	f, err := taskFilter(r)
	if err != nil {
		return chaser.Report{}, err
	}
	var tasks []model.ChaseTask
	if f.Limit == 0 && f.Offset == 0 {
		tasks, err = store.ListAllTasks(r.Context(), s.store, f)
	} else {
		tasks, err = s.store.ListTasks(r.Context(), f)
	}
	if err != nil {
		return chaser.Report{}, err
	}
	return chaser.Evaluate(tasks, s.now()), nil
}

func (s *Server) handleChaserTasks(w http.ResponseWriter, r *http.Request) {
	report, err := s.evaluate(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	groups := chaser.Group(report)
	if groups == nil {
		groups = []chaser.ClientGroup{}
	}
	if len(report.Rejections) > 0 {
		zap.L().Warn("server: chase rejected tasks", zap.Int("rejected", len(report.Rejections)))
	}
	writeJSON(w, http.StatusOK, groups)
}

func (s *Server) handleChaserSummary(w http.ResponseWriter, r *http.Request) {
	report, err := s.evaluate(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chaser.Summarize(report))
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	report, err := s.evaluate(r)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	n, err := chaser.Apply(r.Context(), s.store, report)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	rejections := report.Rejections
	if rejections == nil {
		rejections = []chaser.Rejection{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied":    n,
		"evaluated":  len(report.Evaluations),
		"rejections": rejections,
	})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	var key model.TaskKey
	if err := json.NewDecoder(r.Body).Decode(&key); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if key.ClientID == "" || key.ItemName == "" || key.SourceDoc == "" {
		writeError(w, http.StatusBadRequest, "client_id, item_name and source_doc are required")
		return
	}
	if err := chaser.Complete(r.Context(), s.store, key); err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "key": key, "status": model.StatusCompleted})
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.store.GetProfile(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		writeErr(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListFailures(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r.URL.Query().Get("limit"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	failures, err := s.store.ListFailures(r.Context(), limit)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if failures == nil {
		failures = []model.DocumentFailure{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"failures": failures})
}
