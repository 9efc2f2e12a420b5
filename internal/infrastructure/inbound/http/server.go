package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sophialabs/declarecheck/internal/domain/declare"
	"github.com/sophialabs/declarecheck/internal/domain/history"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/eventlog"
	"github.com/sophialabs/declarecheck/internal/infrastructure/outbound/export"
	"github.com/sophialabs/declarecheck/internal/infrastructure/ports"
	"github.com/sophialabs/declarecheck/internal/infrastructure/services"
	"github.com/sophialabs/declarecheck/internal/infrastructure/usecases"
)

const maxBodySize = 10 << 20 // 10 MB

// Server is the HTTP API of the conformance checker.
type Server struct {
	router   *chi.Mux
	model    atomic.Pointer[services.Model]
	reloadMu sync.Mutex

	checkTraceUC *usecases.CheckTraceUseCase
	checkLogUC   *usecases.CheckLogUseCase
	queryUC      *usecases.QueryLogUseCase
	loadUC       *usecases.LoadModelUseCase
	saveUC       *usecases.SaveConstraintUseCase
	deleteUC     *usecases.DeleteConstraintUseCase
	reportUC     *usecases.RenderReportUseCase
	engine       string
	aggregator   *services.Aggregator
	repo         declare.Repository
	history      *history.RingBuffer
	logger       ports.Logger
	rootDir      string

	jsonReader declare.LogReader
	xesReader  declare.LogReader
}

// NewServer creates a new Server for the check endpoints.
func NewServer(
	checkTraceUC *usecases.CheckTraceUseCase,
	checkLogUC *usecases.CheckLogUseCase,
	loadUC *usecases.LoadModelUseCase,
	aggregator *services.Aggregator,
	hist *history.RingBuffer,
	logger ports.Logger,
) *Server {
	s := &Server{
		checkTraceUC: checkTraceUC,
		checkLogUC:   checkLogUC,
		loadUC:       loadUC,
		aggregator:   aggregator,
		history:      hist,
		logger:       logger,
		jsonReader:   eventlog.NewJSONReader(""),
		xesReader:    eventlog.NewXESReader(),
	}
	s.router = s.buildRouter()
	return s
}

// SetCRUDDeps injects the optional constraint editing dependencies.
func (s *Server) SetCRUDDeps(saveUC *usecases.SaveConstraintUseCase, deleteUC *usecases.DeleteConstraintUseCase, repo declare.Repository, rootDir string) {
	s.saveUC = saveUC
	s.deleteUC = deleteUC
	s.repo = repo
	s.rootDir = rootDir
}

// SetReportDeps injects the report renderer and the engine used when a
// request does not name one.
func (s *Server) SetReportDeps(reportUC *usecases.RenderReportUseCase, defaultEngine string) {
	s.reportUC = reportUC
	s.engine = defaultEngine
}

// SetLogReaders overrides the readers used for JSON and XES log uploads.
func (s *Server) SetLogReaders(jsonReader, xesReader declare.LogReader) {
	s.jsonReader = jsonReader
	s.xesReader = xesReader
}

// SetQueryDeps enables the query endpoint.
func (s *Server) SetQueryDeps(queryUC *usecases.QueryLogUseCase) {
	s.queryUC = queryUC
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Post("/check", s.handleCheckTrace)
		r.Post("/check/log", s.handleCheckLog)
		r.Post("/query", s.handleQuery)
	})

	r.Route("/__admin", func(r chi.Router) {
		r.Get("/templates", s.handleListTemplates)
		r.Get("/constraints", s.handleListConstraints)
		r.Get("/constraints/search", s.handleSearchConstraints)
		r.Get("/constraints/{constraintID}", s.handleGetConstraint)
		r.Put("/constraints/{constraintID}", s.handleUpdateConstraint)
		r.Post("/constraints", s.handleCreateConstraint)
		r.Delete("/constraints/{constraintID}", s.handleDeleteConstraint)
		r.Get("/files", s.handleListFiles)
		r.Get("/malformed", s.handleMalformed)
		r.Get("/history", s.handleGetHistory)
		r.Post("/reload", s.handleReload)
		r.Get("/report", s.handleReport)
		r.Get("/export", s.handleExport)
	})

	r.NotFound(s.notFoundHandler)
	return r
}

// Rebuild atomically swaps the active model. Serialized via mutex.
func (s *Server) Rebuild(m *services.Model) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	s.model.Store(m)
	s.logger.Info("model swapped", "constraints", m.Len())
}

// Model returns the active model, or nil before the first load.
func (s *Server) Model() *services.Model {
	return s.model.Load()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) notFoundHandler(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("request received (no route)", "method", r.Method, "path", r.URL.Path, "remote", r.RemoteAddr)
	writeError(w, http.StatusNotFound, "not_found", "no route for "+r.Method+" "+r.URL.Path)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	m := s.model.Load()
	if m == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "model not loaded")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"status": "ok", "constraints": m.Len()})
}

func (s *Server) handleCheckTrace(w http.ResponseWriter, r *http.Request) {
	m := s.model.Load()
	if m == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "model not loaded")
		return
	}

	done, err := parseDone(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	defer func() { _ = r.Body.Close() }()
	var raw any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodySize)).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid trace JSON: "+err.Error())
		return
	}
	trace, err := eventlog.DecodeTrace(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid trace: "+err.Error())
		return
	}

	result := s.checkTraceUC.Execute(r.Context(), m, usecases.CheckTraceRequest{
		Client: clientKey(r),
		Trace:  &trace,
		Done:   done,
	})
	if result.RateLimited {
		s.logger.Info("check rate-limited", "client", clientKey(r))
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

func (s *Server) handleCheckLog(w http.ResponseWriter, r *http.Request) {
	m := s.model.Load()
	if m == nil {
		writeError(w, http.StatusServiceUnavailable, "not_ready", "model not loaded")
		return
	}

	done, err := parseDone(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	workers, err := parseWorkers(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	log, err := s.readLog(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid log: "+err.Error())
		return
	}

	result, err := s.checkLogUC.Execute(r.Context(), m, usecases.CheckLogRequest{
		Client:  clientKey(r),
		Log:     log,
		Done:    done,
		Workers: workers,
	})
	if err != nil {
		s.logger.Error("log check failed", "error", err)
		writeError(w, http.StatusInternalServerError, "check_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if s.queryUC == nil {
		writeError(w, http.StatusNotImplemented, "not_implemented", "query checking is not configured")
		return
	}

	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	workers, err := parseWorkers(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	log, err := s.readLog(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid log: "+err.Error())
		return
	}

	result, err := s.queryUC.Execute(r.Context(), usecases.QueryLogRequest{
		Client:  clientKey(r),
		Log:     log,
		Query:   q,
		Workers: workers,
	})
	if errors.Is(err, services.ErrInvalidQuery) {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	if err != nil {
		s.logger.Error("query failed", "error", err)
		writeError(w, http.StatusInternalServerError, "query_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, result)
}

// readLog decodes the request body as a JSON or XES log, sniffing the
// format from the content type and the first bytes.
func (s *Server) readLog(r *http.Request) (*declare.Log, error) {
	defer func() { _ = r.Body.Close() }()
	body := bufio.NewReader(io.LimitReader(r.Body, maxBodySize))
	head, _ := body.Peek(512)

	reader := s.jsonReader
	if services.DetectLogFormat(r.Header.Get("Content-Type"), "", head) == services.FormatXES {
		reader = s.xesReader
	}
	return reader.ReadLog(r.Context(), body)
}

func (s *Server) handleListTemplates(w http.ResponseWriter, _ *http.Request) {
	templates := declare.Templates()
	out := make([]map[string]any, 0, len(templates))
	for _, t := range templates {
		out = append(out, map[string]any{
			"key":         t.Key(),
			"arity":       t.Arity().String(),
			"cardinality": t.SupportsCardinality(),
		})
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, out)
}

func (s *Server) handleListConstraints(w http.ResponseWriter, r *http.Request) {
	m := s.model.Load()
	if m == nil {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, []any{})
		return
	}

	s.writeViews(w, r, m.Constraints())
}

func (s *Server) handleSearchConstraints(w http.ResponseWriter, r *http.Request) {
	m := s.model.Load()
	if m == nil {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, []any{})
		return
	}

	s.writeViews(w, r, m.Search(r.URL.Query().Get("q")))
}

// writeViews writes cons as a plain list, or as a page when the query
// carries pagination parameters.
func (s *Server) writeViews(w http.ResponseWriter, r *http.Request, cons []*declare.Constraint) {
	views := s.views(cons)
	qp := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			qp[k] = v[0]
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if services.Paginated(qp) {
		writeJSON(w, services.Paginate(views, services.DefaultPageConfig, qp))
		return
	}
	writeJSON(w, views)
}

func (s *Server) handleGetConstraint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "constraintID")
	if s.repo == nil {
		http.Error(w, "CRUD operations not configured", http.StatusNotImplemented)
		return
	}

	c, err := s.repo.LoadByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, declare.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "constraint not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", err.Error())
		return
	}

	sourceYAML, err := s.repo.ReadSourceYAML(r.Context(), c)
	if err != nil {
		s.logger.Warn("failed to read source YAML", "id", id, "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, constraintDetail{
		constraintView: s.view(c),
		SourceYAML:     string(sourceYAML),
	})
}

func (s *Server) handleUpdateConstraint(w http.ResponseWriter, r *http.Request) {
	s.saveConstraint(w, r, chi.URLParam(r, "constraintID"))
}

func (s *Server) handleCreateConstraint(w http.ResponseWriter, r *http.Request) {
	s.saveConstraint(w, r, "")
}

func (s *Server) saveConstraint(w http.ResponseWriter, r *http.Request, id string) {
	if s.saveUC == nil {
		http.Error(w, "CRUD operations not configured", http.StatusNotImplemented)
		return
	}

	defer func() { _ = r.Body.Close() }()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	saved, err := s.saveUC.Execute(r.Context(), id, body)
	if err != nil {
		switch {
		case errors.Is(err, declare.ErrNotFound):
			writeError(w, http.StatusNotFound, "not_found", err.Error())
		case errors.Is(err, declare.ErrDuplicateConstraint):
			writeError(w, http.StatusConflict, "conflict", err.Error())
		case errors.Is(err, usecases.ErrInvalidConstraint):
			writeError(w, http.StatusBadRequest, "invalid_constraint", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "save_failed", err.Error())
		}
		return
	}

	if !s.reload(w, r) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if id == "" {
		w.WriteHeader(http.StatusCreated)
	}
	writeJSON(w, map[string]string{"status": "ok", "id": saved.ID, "key": saved.String()})
}

func (s *Server) handleDeleteConstraint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "constraintID")
	if s.deleteUC == nil {
		http.Error(w, "CRUD operations not configured", http.StatusNotImplemented)
		return
	}

	if err := s.deleteUC.Execute(r.Context(), id); err != nil {
		if errors.Is(err, declare.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "constraint not found: "+id)
			return
		}
		writeError(w, http.StatusInternalServerError, "delete_failed", err.Error())
		return
	}

	if !s.reload(w, r) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListFiles(w http.ResponseWriter, _ *http.Request) {
	if s.rootDir == "" {
		w.Header().Set("Content-Type", "application/json")
		writeJSON(w, []string{})
		return
	}

	files := []string{}
	err := filepath.WalkDir(s.rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.rootDir, path)
		if relErr != nil {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		s.logger.Error("failed to list files", "error", err)
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, files)
}

func (s *Server) handleMalformed(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{"malformed": s.aggregator.Malformed()})
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	n := 10
	if lastParam := r.URL.Query().Get("last"); lastParam != "" {
		if parsed, err := strconv.Atoi(lastParam); err == nil && parsed > 0 {
			n = parsed
		}
	}

	entries := s.history.Last(n)
	if entries == nil {
		entries = []history.Entry{}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]any{
		"entries": entries,
		"count":   s.history.Count(),
		"totals":  s.history.Totals(),
	})
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if !s.reload(w, r) {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{
		"status":  "ok",
		"message": "model reloaded",
	})
}

// reload recompiles the model and swaps it in. On failure it writes the
// error response and returns false; the previous model stays active.
func (s *Server) reload(w http.ResponseWriter, r *http.Request) bool {
	m, err := s.loadUC.Execute(r.Context())
	if err != nil {
		s.logger.Error("reload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reload_failed", err.Error())
		return false
	}
	s.Rebuild(m)
	return true
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.reportUC == nil {
		http.Error(w, "reports not configured", http.StatusNotImplemented)
		return
	}

	engine := r.URL.Query().Get("engine")
	if engine == "" {
		engine = s.engine
	}
	out, err := s.reportUC.Execute(engine, "", "")
	if err != nil {
		if errors.Is(err, usecases.ErrNoRun) {
			writeError(w, http.StatusNotFound, "no_run", err.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "render_failed", err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write(out); err != nil {
		s.logger.Debug("failed to write report", "error", err)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, _ *http.Request) {
	if s.reportUC == nil {
		http.Error(w, "reports not configured", http.StatusNotImplemented)
		return
	}

	ctx, err := s.reportUC.Latest()
	if err != nil {
		writeError(w, http.StatusNotFound, "no_run", err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="declarecheck-`+ctx.RunID+`.xlsx"`)
	if err := export.WriteXLSX(w, ctx); err != nil {
		s.logger.Error("export failed", "error", err)
	}
}

// constraintView is the JSON shape of a constraint in admin responses.
type constraintView struct {
	ID                  string   `json:"id"`
	Key                 string   `json:"key"`
	Template            string   `json:"template"`
	Activities          []string `json:"activities"`
	Activation          string   `json:"activation,omitempty"`
	Correlation         string   `json:"correlation,omitempty"`
	Time                string   `json:"time,omitempty"`
	N                   *int     `json:"n,omitempty"`
	VacuousSatisfaction bool     `json:"vacuous_satisfaction"`
	SourceFile          string   `json:"source_file,omitempty"`
	SourceIndex         int      `json:"source_index"`
}

type constraintDetail struct {
	constraintView
	SourceYAML string `json:"source_yaml"`
}

func (s *Server) view(c *declare.Constraint) constraintView {
	// Relative source path for display.
	relPath := c.SourceFile
	if s.rootDir != "" && c.SourceFile != "" {
		if rel, err := filepath.Rel(s.rootDir, c.SourceFile); err == nil {
			relPath = rel
		}
	}
	return constraintView{
		ID:                  c.ID,
		Key:                 c.String(),
		Template:            c.Template.Key(),
		Activities:          c.Activities,
		Activation:          c.Rules.Activation,
		Correlation:         c.Rules.Correlation,
		Time:                c.Rules.Time,
		N:                   c.Rules.N,
		VacuousSatisfaction: c.Rules.VacuousSatisfaction,
		SourceFile:          relPath,
		SourceIndex:         c.SourceIndex,
	}
}

func (s *Server) views(cons []*declare.Constraint) []constraintView {
	out := make([]constraintView, 0, len(cons))
	for _, c := range cons {
		out = append(out, s.view(c))
	}
	return out
}

// parseDone reads the done query parameter. A missing value means the trace
// is complete.
func parseDone(r *http.Request) (bool, error) {
	v := r.URL.Query().Get("done")
	if v == "" {
		return true, nil
	}
	done, err := strconv.ParseBool(v)
	if err != nil {
		return false, errors.New("done must be true or false")
	}
	return done, nil
}

func parseWorkers(r *http.Request) (int, error) {
	v := r.URL.Query().Get("workers")
	if v == "" {
		return 0, nil
	}
	workers, err := strconv.Atoi(v)
	if err != nil || workers < 0 {
		return 0, errors.New("workers must be a non-negative integer")
	}
	return workers, nil
}

// parseQuery maps query parameters onto a services.Query. template may
// repeat.
func parseQuery(values url.Values) (services.Query, error) {
	q := services.Query{
		Activation:           values.Get("activation"),
		Target:               values.Get("target"),
		ActivationCondition:  values.Get("act_cond"),
		CorrelationCondition: values.Get("corr_cond"),
		TimeCondition:        values.Get("time_cond"),
	}
	for _, name := range values["template"] {
		t, err := declare.ParseTemplate(name)
		if err != nil {
			return services.Query{}, err
		}
		q.Templates = append(q.Templates, t)
	}

	var err error
	if v := values.Get("min_support"); v != "" {
		if q.MinSupport, err = strconv.ParseFloat(v, 64); err != nil {
			return services.Query{}, errors.New("min_support must be a number")
		}
	}
	if v := values.Get("max_cardinality"); v != "" {
		if q.MaxCardinality, err = strconv.Atoi(v); err != nil {
			return services.Query{}, errors.New("max_cardinality must be an integer")
		}
	}
	if v := values.Get("consider_vacuity"); v != "" {
		if q.ConsiderVacuity, err = strconv.ParseBool(v); err != nil {
			return services.Query{}, errors.New("consider_vacuity must be true or false")
		}
	}
	return q, nil
}

// clientKey identifies the caller for rate limiting.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	writeJSON(w, map[string]string{"error": code, "message": message})
}

func writeJSON(w http.ResponseWriter, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
