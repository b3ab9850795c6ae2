// Package httpapi serves the VRAM estimator and catalog over HTTP as JSON.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shayne-snap/llmvram/internal/catalog"
	"github.com/shayne-snap/llmvram/internal/display"
	"github.com/shayne-snap/llmvram/internal/hardware"
	"github.com/shayne-snap/llmvram/internal/i18n"
	"github.com/shayne-snap/llmvram/internal/settings"
	"github.com/shayne-snap/llmvram/internal/table"
	"github.com/shayne-snap/llmvram/internal/vram"
)

// Options configures the API.
type Options struct {
	// GPUMemory is used when a request omits gpu_memory. Zero means the default card size.
	GPUMemory float64
	// Lang is used when a request omits lang.
	Lang i18n.Language
	// CORSOrigins enables CORS for the listed origins ("*" for any). Empty disables CORS.
	CORSOrigins []string
	// Specs, when set, is served at /api/v1/system.
	Specs *hardware.SystemSpecs
	// Registry receives the API metrics and backs /metrics. Nil creates a private registry.
	Registry *prometheus.Registry
	// Logger defaults to the global zerolog logger.
	Logger *zerolog.Logger
}

type server struct {
	db      *catalog.DB
	opts    Options
	metrics *metrics
}

// NewMux builds the router.
func NewMux(db *catalog.DB, opts Options) http.Handler {
	if opts.GPUMemory == 0 {
		opts.GPUMemory = settings.DefaultGPUMemory
	}
	opts.GPUMemory = settings.ClampGPUMemory(opts.GPUMemory)
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	s := &server{db: db, opts: opts, metrics: newMetrics(reg)}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(s.metrics.middleware)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/families", s.handleFamilies)
		r.Get("/quantizations", s.handleQuantizations)
		r.Get("/models", s.handleModels)
		r.Get("/estimate", s.handleEstimate)
		if opts.Specs != nil {
			r.Get("/system", s.handleSystem)
		}
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	return r
}

// badRequest is a query parameter error (400).
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func badParam(name, value string) error {
	return badRequest{msg: fmt.Sprintf("invalid %s %q", name, value)}
}

func (s *server) fail(w http.ResponseWriter, err error) {
	var br badRequest
	switch {
	case errors.As(err, &br):
		writeJSONError(w, http.StatusBadRequest, br.msg)
	case errors.Is(err, catalog.ErrUnknownFamily):
		writeJSONError(w, http.StatusNotFound, err.Error())
	default:
		writeJSONError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *server) lang(r *http.Request) i18n.Language {
	if v := r.URL.Query().Get("lang"); v != "" {
		return i18n.Parse(v)
	}
	return s.opts.Lang
}

// gpuMemory parses gpu_memory; absent means the server default. Accepted values are clamped.
func (s *server) gpuMemory(r *http.Request) (float64, error) {
	v := strings.TrimSpace(r.URL.Query().Get("gpu_memory"))
	if v == "" {
		return s.opts.GPUMemory, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0, badParam("gpu_memory", v)
	}
	return settings.ClampGPUMemory(f), nil
}

func boolParam(r *http.Request, name string) (bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, badParam(name, v)
	}
	return b, nil
}

// families resolves repeated or comma-separated family parameters; none selects all.
func (s *server) families(r *http.Request) ([]string, error) {
	var names []string
	for _, v := range r.URL.Query()["family"] {
		for _, n := range strings.Split(v, ",") {
			if n = strings.TrimSpace(n); n != "" {
				names = append(names, n)
			}
		}
	}
	return s.db.ResolveFamilies(names)
}

func (s *server) handleFamilies(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, display.FamiliesJSON(s.db, s.db.Families(), s.lang(r)))
}

func (s *server) handleQuantizations(w http.ResponseWriter, r *http.Request) {
	families, err := s.families(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	writeJSON(w, display.QuantsJSON(catalog.QuantOptions(s.db.Details(families...), s.lang(r))))
}

func (s *server) handleModels(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	families, err := s.families(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	gpu, err := s.gpuMemory(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	col := table.ColName
	if v := q.Get("sort"); v != "" {
		if col, err = table.ParseColumn(v); err != nil {
			s.fail(w, badParam("sort", v))
			return
		}
	}
	desc, err := boolParam(r, "desc")
	if err != nil {
		s.fail(w, err)
		return
	}
	runnable, err := boolParam(r, "runnable")
	if err != nil {
		s.fail(w, err)
		return
	}
	lang := s.lang(r)
	details := s.db.Details(families...)
	options := catalog.QuantOptions(details, lang)
	quant := catalog.DefaultQuant(options)
	if v := q.Get("quant"); v != "" {
		var ok bool
		if quant, ok = findOption(options, v); !ok {
			s.fail(w, badParam("quant", v))
			return
		}
	}

	rows := table.Build(catalog.Filter(details, families, quant), gpu, lang)
	if runnable {
		rows = table.FilterStatus(rows, vram.BarelyRun)
	}
	table.Sort(rows, col, desc)
	for _, row := range rows {
		s.metrics.observe(row.Status)
	}
	writeJSON(w, display.TableJSON(rows, gpu, quant, lang))
}

// findOption returns the canonical value of the option matching v case-insensitively.
func findOption(options []catalog.Option, v string) (string, bool) {
	for _, o := range options {
		if strings.EqualFold(o.Value, v) {
			return o.Value, true
		}
	}
	return "", false
}

func (s *server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	size := strings.TrimSpace(q.Get("file_size"))
	if size == "" {
		writeJSONError(w, http.StatusBadRequest, "file_size is required")
		return
	}
	gpu, err := s.gpuMemory(r)
	if err != nil {
		s.fail(w, err)
		return
	}
	e := display.NewEstimation(size, q.Get("quant"), gpu, s.lang(r))
	s.metrics.observe(e.Status)
	e.RequiredGB = math.Round(e.RequiredGB*100) / 100
	writeJSON(w, e)
}

func (s *server) handleSystem(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, display.SystemJSON(s.opts.Specs))
}

// ListenAndServe serves h on addr until ctx is done, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("llmvram API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info().Msg("llmvram API stopped")
	return nil
}
