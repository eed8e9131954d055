package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	appadvisory "github.com/bryanwahyu/cve-advisor/internal/application/advisory"
	"github.com/bryanwahyu/cve-advisor/internal/application/contexts"
	"github.com/bryanwahyu/cve-advisor/internal/middleware"
)

// Options are the optional parts of the router.
type Options struct {
	Logger       *zap.Logger
	Metrics      *middleware.Metrics
	RateLimiter  *middleware.RateLimiter
	APIKeys      map[string]string // empty disables auth on write routes
	CORSOrigins  []string
	HealthChecks map[string]middleware.HealthChecker
}

type Router struct {
	contexts *contexts.Service
	runs     *appadvisory.Service // nil when the pipeline is not configured
	metrics  *middleware.Metrics
	logger   *zap.Logger
}

// NewRouter serves the context routes always and the run routes when runs
// is non-nil.
func NewRouter(ctxSvc *contexts.Service, runs *appadvisory.Service, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = middleware.NewMetrics()
	}
	r := &Router{contexts: ctxSvc, runs: runs, metrics: opts.Metrics, logger: opts.Logger}

	mux := chi.NewRouter()
	mux.Use(middleware.Logging(opts.Logger))
	mux.Use(opts.Metrics.Middleware)

	mux.Get("/health", middleware.HealthHandler(opts.HealthChecks))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", opts.Metrics.Handler)

	mux.Route("/mcp", func(rt chi.Router) {
		origins := opts.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		rt.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
		if opts.RateLimiter != nil {
			rt.Use(middleware.RateLimit(opts.RateLimiter))
		}

		rt.Get("/context", r.wrap(r.handleGetContext))
		rt.Get("/runs", r.wrap(r.handleListRuns))
		rt.Get("/runs/{id}", r.wrap(r.handleGetRun))

		rt.Group(func(w chi.Router) {
			if len(opts.APIKeys) > 0 {
				w.Use(middleware.APIKeyAuth(opts.APIKeys))
			}
			w.Post("/context", r.wrap(r.handleSetContext))
			w.Post("/run", r.wrap(r.handleRun))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

var (
	errNotFound   = errors.New("not found")
	errBadRequest = errors.New("bad request")
)

// missingParamError maps to 422.
type missingParamError struct{ name string }

func (e missingParamError) Error() string { return "missing parameter: " + e.name }

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var missing missingParamError
		switch {
		case errors.As(err, &missing):
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		case errors.Is(err, errBadRequest):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, errNotFound):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.Is(err, appadvisory.ErrNotConfigured):
			http.Error(w, "report pipeline not configured", http.StatusServiceUnavailable)
		default:
			r.logger.Error("request failed", zap.String("path", req.URL.Path), zap.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// GET /mcp/context
func (r *Router) handleGetContext(w http.ResponseWriter, _ *http.Request) error {
	return writeJSON(w, http.StatusOK, r.contexts.Get())
}

// POST /mcp/context?style=&mode=&language=
// Parameters may also come as a form or a JSON object body.
func (r *Router) handleSetContext(w http.ResponseWriter, req *http.Request) error {
	params, err := readParams(w, req)
	if err != nil {
		return err
	}
	vals := make([]string, 0, 3)
	for _, name := range []string{"style", "mode", "language"} {
		v, ok := params[name]
		if !ok {
			return missingParamError{name: name}
		}
		vals = append(vals, v) // stored as sent
	}

	stored, err := r.contexts.Set(req.Context(), vals[0], vals[1], vals[2])
	if err != nil {
		return fmt.Errorf("store context: %w", err)
	}
	r.metrics.ContextWritten()
	return writeJSON(w, http.StatusOK, stored)
}

// readParams merges query, form and JSON body parameters; the body wins.
func readParams(w http.ResponseWriter, req *http.Request) (map[string]string, error) {
	out := map[string]string{}
	ct, _, _ := mime.ParseMediaType(req.Header.Get("Content-Type"))

	if ct == "application/json" {
		for k, v := range req.URL.Query() {
			if len(v) > 0 {
				out[k] = v[0]
			}
		}
		var body map[string]any
		dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, 64<<10))
		if err := dec.Decode(&body); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
		}
		for k, v := range body {
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("%w: %s must be a string", errBadRequest, k)
			}
			out[k] = s
		}
		return out, nil
	}

	if err := req.ParseForm(); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	for k, v := range req.Form {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out, nil
}

// POST /mcp/run
// Optional body: {"scan_log": "<path>"}
func (r *Router) handleRun(w http.ResponseWriter, req *http.Request) error {
	if r.runs == nil {
		return appadvisory.ErrNotConfigured
	}
	var body struct {
		ScanLog string `json:"scan_log"`
	}
	if req.ContentLength != 0 && strings.Contains(req.Header.Get("Content-Type"), "json") {
		if err := json.NewDecoder(http.MaxBytesReader(w, req.Body, 16<<10)).Decode(&body); err != nil {
			return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
		}
	}
	if err := middleware.ValidatePath(body.ScanLog); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}

	trigger := "manual"
	if c := middleware.GetClientFromContext(req.Context()); c != "" {
		trigger = "manual:" + middleware.SanitizeString(c)
	}
	id, err := r.runs.Start(appadvisory.RunCommand{ScanLogPath: body.ScanLog, Trigger: trigger})
	if err != nil {
		return err
	}
	r.metrics.RunQueued()

	// run jalan di background, langsung balikin respons
	return writeJSON(w, http.StatusAccepted, map[string]any{
		"status":   appadvisory.RunQueued,
		"run_id":   id,
		"queuedAt": time.Now().UTC(),
	})
}

// GET /mcp/runs/{id}
func (r *Router) handleGetRun(w http.ResponseWriter, req *http.Request) error {
	if r.runs == nil {
		return appadvisory.ErrNotConfigured
	}
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRunID(id); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	run, ok, err := r.runs.Lookup(req.Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		return errNotFound
	}
	return writeJSON(w, http.StatusOK, run)
}

// GET /mcp/runs?limit=20
func (r *Router) handleListRuns(w http.ResponseWriter, req *http.Request) error {
	if r.runs == nil {
		return appadvisory.ErrNotConfigured
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.runs.Recent(req.Context(), middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	if list == nil {
		list = []appadvisory.Run{}
	}
	return writeJSON(w, http.StatusOK, list)
}
