package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"batch-health/internal/analytics"
	"batch-health/internal/config"
	"batch-health/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	maxUploadBytes     = 5 << 20
	defaultRecentLimit = 10
)

type ReportStore interface {
	StoreReport(ctx context.Context, report models.Report) error
	GetReport(ctx context.Context, id string) (models.Report, error)
	GetRecentReports(ctx context.Context, count int64) ([]models.Report, error)
}

type ReportPublisher interface {
	Publish(ctx context.Context, report models.Report) error
}

type Server struct {
	router    *mux.Router
	cfg       config.Config
	store     ReportStore
	publisher ReportPublisher
	analyzer  *analytics.Analyzer
	validate  *validator.Validate
	log       *zap.Logger
}

// NewServer wires the routes. publisher may be nil.
func NewServer(cfg config.Config, store ReportStore, publisher ReportPublisher, log *zap.Logger) *Server {
	s := &Server{
		router:    mux.NewRouter(),
		cfg:       cfg,
		store:     store,
		publisher: publisher,
		analyzer:  analytics.NewAnalyzer(100),
		validate:  validator.New(),
		log:       log,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.instrument)

	s.router.HandleFunc("/health", s.healthHandler).Methods("GET")
	s.router.HandleFunc("/rules", s.rulesHandler).Methods("GET")
	s.router.HandleFunc("/zones/classify", s.classifyHandler).Methods("POST")
	s.router.HandleFunc("/zones/upload", s.uploadHandler).Methods("POST")
	s.router.HandleFunc("/reports/recent", s.recentReportsHandler).Methods("GET")
	s.router.HandleFunc("/reports/{id}", s.getReportHandler).Methods("GET")
	s.router.HandleFunc("/reports/{id}/chart.png", s.chartHandler).Methods("GET")
	s.router.HandleFunc("/analytics/current", s.getAnalyticsHandler).Methods("GET")
	s.router.HandleFunc("/analytics/risks", s.getRisksHandler).Methods("GET")
	s.router.Handle("/metrics/prometheus", promhttp.Handler())
}

func (s *Server) Handler() http.Handler {
	recovery := handlers.RecoveryHandler(handlers.PrintRecoveryStack(false))
	cors := handlers.CORS(
		handlers.AllowedMethods([]string{"GET", "POST"}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	return recovery(cors(s.router))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request metrics by route template, so report IDs do
// not become label values.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		duration := time.Since(start)
		requestDuration.WithLabelValues(r.Method, endpoint).Observe(duration.Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, endpoint, strconv.Itoa(rec.status)).Inc()

		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("endpoint", endpoint),
			zap.Int("status", rec.status),
			zap.Duration("duration", duration),
		)
	})
}

func (s *Server) Run(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	done := make(chan struct{})
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		s.log.Info("server is shutting down")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		srv.SetKeepAlivesEnabled(false)
		if err := srv.Shutdown(ctx); err != nil {
			s.log.Error("could not gracefully shutdown the server", zap.Error(err))
		}
		close(done)
	}()

	s.log.Info("server is ready to handle requests", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("could not listen on %s: %w", addr, err)
	}

	<-done
	s.log.Info("server stopped")
	return nil
}
