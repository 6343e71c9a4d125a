package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"social_media_analyzer/export"
	"social_media_analyzer/extract"
	"social_media_analyzer/failure"
	"social_media_analyzer/pipeline"
)

const (
	defaultRunTimeout = 2 * time.Minute
	defaultMaxRuns    = 256
	defaultRunTTL     = time.Hour
)

// Config wires a Server. Pipeline is the template every run is built from;
// its Logger is replaced per run.
type Config struct {
	Pipeline   pipeline.Config
	Loader     *extract.Loader
	PDF        *extract.Capability
	RunTimeout time.Duration
	// MaxRuns caps the stored runs; the oldest is evicted first.
	MaxRuns int
	// RunTTL is how long a stored run stays retrievable.
	RunTTL time.Duration
	Logger *slog.Logger
}

type Server struct {
	cfg    Config
	store  *runStore
	logger *slog.Logger
}

type run struct {
	id      string
	created time.Time
	orch    *pipeline.Orchestrator
}

// runStore keeps at most max runs, none older than ttl.
type runStore struct {
	mu   sync.Mutex
	runs map[string]*run
	max  int
	ttl  time.Duration
}

func newStore(max int, ttl time.Duration) *runStore {
	return &runStore{runs: make(map[string]*run), max: max, ttl: ttl}
}

func (s *runStore) set(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evict(r.created)
	s.runs[r.id] = r
}

// evict drops expired runs, then the oldest ones until there is room for
// one more.
func (s *runStore) evict(now time.Time) {
	for id, r := range s.runs {
		if s.expired(r, now) {
			delete(s.runs, id)
		}
	}
	for len(s.runs) > 0 && len(s.runs) >= s.max {
		var oldest *run
		for _, r := range s.runs {
			if oldest == nil || r.created.Before(oldest.created) {
				oldest = r
			}
		}
		delete(s.runs, oldest.id)
	}
}

func (s *runStore) expired(r *run, now time.Time) bool {
	return s.ttl > 0 && now.Sub(r.created) > s.ttl
}

func (s *runStore) get(id string) (*run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if ok && s.expired(r, time.Now()) {
		delete(s.runs, id)
		return nil, false
	}
	return r, ok
}

func (s *runStore) delete(id string) (*run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	delete(s.runs, id)
	return r, ok
}

func New(cfg Config) (*Server, error) {
	if cfg.Pipeline.Extractor == nil || cfg.Pipeline.Requester == nil {
		return nil, errors.New("pipeline extractor and requester are required")
	}
	if cfg.Loader == nil {
		cfg.Loader = extract.NewLoader(0)
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = defaultRunTimeout
	}
	if cfg.MaxRuns <= 0 {
		cfg.MaxRuns = defaultMaxRuns
	}
	if cfg.RunTTL <= 0 {
		cfg.RunTTL = defaultRunTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		store:  newStore(cfg.MaxRuns, cfg.RunTTL),
		logger: cfg.Logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logMiddleware)

	r.Get("/healthz", s.handleHealth)
	r.Post("/api/analyze", s.handleAnalyze)
	r.Route("/api/runs/{id}", func(r chi.Router) {
		r.Get("/", s.handleRun)
		r.Delete("/", s.handleRunDelete)
		r.Get("/tips.json", s.handleTipsDownload)
		r.Get("/report.html", s.handleReport)
	})
	return r
}

// analyze runs doc through a fresh orchestrator registered under a new id.
func (s *Server) analyze(ctx context.Context, doc extract.SourceDocument, keep bool) (*run, error) {
	id := uuid.NewString()
	pcfg := s.cfg.Pipeline
	pcfg.Logger = s.logger.With("run", id)
	orch, err := pipeline.New(pcfg)
	if err != nil {
		return nil, err
	}
	rn := &run{id: id, created: time.Now(), orch: orch}
	if keep {
		s.store.set(rn)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RunTimeout)
	defer cancel()
	_, err = orch.Run(ctx, doc)
	return rn, err
}

// --- Handlers ---

type errorResp struct {
	Kind    failure.Kind `json:"kind,omitempty"`
	Message string       `json:"message"`
}

type runResp struct {
	RunID   string           `json:"run_id"`
	State   string           `json:"state"`
	Created time.Time        `json:"created_at"`
	Result  *pipeline.Result `json:"result,omitempty"`
	Error   *errorResp       `json:"error,omitempty"`
}

func toRunResp(rn *run) runResp {
	resp := runResp{
		RunID:   rn.id,
		State:   rn.orch.State().String(),
		Created: rn.created,
	}
	if res, ok := rn.orch.Result(); ok {
		resp.Result = &res
	}
	if err := rn.orch.Err(); err != nil {
		resp.Error = &errorResp{Kind: failure.KindOf(err), Message: err.Error()}
	}
	return resp
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	pdfState := "disabled"
	if s.cfg.PDF != nil {
		pdfState = s.cfg.PDF.State().String()
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":      "ok",
		"pdf_backend": s.cfg.PDF.BackendName(),
		"pdf_state":   pdfState,
	})
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	// Leave room for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Loader.MaxFileSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, failure.Newf(failure.ExtractionFailed,
				"File too large: more than %d bytes", s.cfg.Loader.MaxFileSize))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp{Message: "multipart field \"file\" is required"})
		return
	}
	defer file.Close()

	doc, err := s.cfg.Loader.Load(r.Context(), header.Filename, header.Header.Get("Content-Type"), file)
	if err != nil {
		writeError(w, err)
		return
	}

	rn, err := s.analyze(r.Context(), doc, true)
	if rn == nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Message: err.Error()})
		return
	}
	status := http.StatusOK
	if err != nil {
		status = statusFor(err)
	}
	writeJSON(w, status, toRunResp(rn))
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toRunResp(rn))
}

func (s *Server) handleRunDelete(w http.ResponseWriter, r *http.Request) {
	rn, ok := s.store.delete(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Message: "run not found"})
		return
	}
	rn.orch.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTipsDownload(w http.ResponseWriter, r *http.Request) {
	res, ok := s.finished(w, r)
	if !ok {
		return
	}
	data, err := export.JSON(res.Suggestions)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Message: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": export.DownloadName(res.Document)}))
	_, _ = w.Write(data)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	res, ok := s.finished(w, r)
	if !ok {
		return
	}
	page, err := export.HTML(res)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Message: err.Error()})
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

// --- Helpers ---

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*run, bool) {
	rn, ok := s.store.get(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp{Message: "run not found"})
	}
	return rn, ok
}

func (s *Server) finished(w http.ResponseWriter, r *http.Request) (pipeline.Result, bool) {
	rn, ok := s.lookup(w, r)
	if !ok {
		return pipeline.Result{}, false
	}
	res, ok := rn.orch.Result()
	if !ok {
		writeJSON(w, http.StatusConflict, errorResp{Message: "run has no suggestions"})
	}
	return res, ok
}

func statusFor(err error) int {
	switch failure.KindOf(err) {
	case failure.UnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case failure.DecodeFailed, failure.ExtractionFailed, failure.InsufficientText:
		return http.StatusUnprocessableEntity
	case failure.DependencyNotReady:
		return http.StatusServiceUnavailable
	case failure.ServiceError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorResp{Kind: failure.KindOf(err), Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
