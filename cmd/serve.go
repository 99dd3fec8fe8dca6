package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/agri-cli/internal/inference"
	"github.com/sells-group/agri-cli/internal/model"
	"github.com/sells-group/agri-cli/internal/monitoring"
	"github.com/sells-group/agri-cli/internal/store"
)

var servePort int

// uploadField is the multipart field carrying the farm table.
const uploadField = "file"

// apiPreviewRows caps the rows echoed back by the JSON API.
const apiPreviewRows = 20

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prediction web server",
	Long:  "Serves the upload form, the JSON prediction API, run history, and Prometheus metrics.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Server.Port = resolvePort(servePort, cfg.Server.Port)
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initStore(ctx, cfg.Store)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
		}

		metrics, err := monitoring.NewMetrics(prometheus.NewRegistry())
		if err != nil {
			return err
		}

		loader := newLoader(cfg.Artifacts)
		loader.OnLoad(metrics.RecordArtifactLoad)
		if _, err := loader.Load(ctx); err != nil {
			// Keep serving: the form reports the problem and every
			// prediction retries the load.
			zap.L().Error("model artifacts unavailable",
				zap.String("dir", loader.Dir()),
				zap.String("kind", inference.Kind(err)),
				zap.Error(err),
			)
		}

		if st != nil && cfg.Monitoring.WebhookURL != "" {
			checker := monitoring.NewChecker(
				monitoring.NewCollector(st),
				monitoring.NewAlerter(cfg.Monitoring),
				cfg.Monitoring,
			)
			go checker.Run(ctx)
		}

		s := &server{
			loader: loader,
			pred: &predictor{
				loader:   loader,
				store:    st,
				metrics:  metrics,
				encoding: cfg.Predict.Encoding,
			},
			store:     st,
			metrics:   metrics,
			maxUpload: int64(cfg.Server.MaxUploadMB) << 20,
		}

		return startServer(ctx, buildRouter(s, cfg.Server.AllowedOrigins), cfg.Server.Port)
	},
}

// server holds the dependencies of the HTTP handlers. store and metrics may
// be nil.
type server struct {
	loader    *inference.Loader
	pred      *predictor
	store     store.Store
	metrics   *monitoring.Metrics
	maxUpload int64
}

// buildRouter wires the HTTP routes.
func buildRouter(s *server, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"Content-Disposition", "X-Run-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handleIndex)
	r.Post("/predict", s.handlePredictForm)

	r.Route("/api", func(r chi.Router) {
		r.Get("/metadata", s.handleMetadata)
		r.Post("/predict", s.handlePredictAPI)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
	})

	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{
			ErrorHandling: promhttp.HTTPErrorOnError,
		}))
	}
	return r
}

// resolvePort returns the flag port when set, otherwise the config port.
func resolvePort(flagPort, configPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return configPort
}

// startServer serves handler on port until ctx is cancelled, then shuts
// down gracefully.
func startServer(ctx context.Context, handler http.Handler, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return eris.Wrap(err, "server listen")
		}
		return nil
	case <-ctx.Done():
	}

	zap.L().Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return eris.Wrap(err, "server shutdown")
	}
	return nil
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	artifacts := "loaded"
	if _, err := s.loader.Load(r.Context()); err != nil {
		artifacts = "missing"
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"artifacts": artifacts,
	})
}

func (s *server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	arts, err := s.loader.Load(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, arts.Metadata)
}

// predictResponse is the JSON body of a successful API prediction.
type predictResponse struct {
	RunID   string                  `json:"run_id,omitempty"`
	Summary model.PredictionSummary `json:"summary"`
	Columns []string                `json:"columns"`
	Rows    [][]string              `json:"rows"`
	Total   int                     `json:"total_rows"`
}

func (s *server) handlePredictAPI(w http.ResponseWriter, r *http.Request) {
	res, err := s.predictUpload(w, r, sourceAPI)
	if err != nil {
		writeError(w, err)
		return
	}

	limit := apiPreviewRows
	if v := r.URL.Query().Get("rows"); v != "" {
		if n, convErr := strconv.Atoi(v); convErr == nil && n >= 0 {
			limit = n
		}
	}
	head := res.Output.Head(limit)
	writeJSON(w, http.StatusOK, predictResponse{
		RunID:   res.RunID,
		Summary: res.Summary,
		Columns: head.Columns,
		Rows:    head.Rows,
		Total:   res.Output.Len(),
	})
}

// predictUpload reads the multipart upload and runs the pipeline on it.
func (s *server) predictUpload(w http.ResponseWriter, r *http.Request, source string) (*prediction, error) {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return nil, &inference.MalformedInputError{Err: eris.Wrapf(err, "read %q form field", uploadField)}
	}
	defer file.Close() //nolint:errcheck

	return s.pred.run(r.Context(), source, header.Filename, file)
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusNotFound, "run history is disabled", "")
		return
	}

	q := r.URL.Query()
	filter := store.RunFilter{
		Status: model.RunStatus(q.Get("status")),
		Source: q.Get("source"),
	}
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	if v := q.Get("since"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid since duration", "")
			return
		}
		filter.CreatedAfter = time.Now().Add(-d)
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []model.PredictionRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSONError(w, http.StatusNotFound, "run history is disabled", "")
		return
	}

	run, err := s.store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, store.ErrNotFound) {
		writeJSONError(w, http.StatusNotFound, "run not found", "")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// errorResponse is the JSON body of a failed request.
type errorResponse struct {
	Error   string   `json:"error"`
	Kind    string   `json:"kind,omitempty"`
	Missing []string `json:"missing,omitempty"`
}

// statusFor maps a pipeline error to an HTTP status code.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch inference.Kind(err) {
	case inference.KindMalformedInput:
		return http.StatusBadRequest
	case inference.KindMissingColumns:
		return http.StatusUnprocessableEntity
	case inference.KindMissingArtifact, inference.KindInvalidArtifact:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// missingNames returns the absent columns or artifact files named by err.
func missingNames(err error) []string {
	var cols *inference.MissingColumnsError
	if errors.As(err, &cols) {
		return cols.Missing
	}
	var arts *inference.MissingArtifactError
	if errors.As(err, &arts) {
		return arts.Missing
	}
	return nil
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		zap.L().Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{
		Error:   msg,
		Kind:    inference.Kind(err),
		Missing: missingNames(err),
	})
}

func writeJSONError(w http.ResponseWriter, status int, msg, kind string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
