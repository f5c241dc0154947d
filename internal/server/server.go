// Package server provides the HTTP status and rebuild API for docindex.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/docindex/internal/config"
	"github.com/hyperjump/docindex/internal/models"
	"go.uber.org/zap"
)

// ErrBusy is returned by TryReindex while another run is in progress.
var ErrBusy = errors.New("an index run is already in progress")

// Runner performs one full clear-then-rebuild run.
type Runner interface {
	Run(ctx context.Context, paths []string) (*models.RunReport, error)
}

// RecordStore is the read side of the record store.
type RecordStore interface {
	GetRecordTree(ctx context.Context, id string) (*models.IndexRecord, error)
	CountRecords(ctx context.Context) (int64, error)
	LastRun(ctx context.Context) (*models.RunReport, error)
}

// WatchService lists the directories being watched for changes.
type WatchService interface {
	Directories() []string
}

// Server is the HTTP server for the docindex API.
type Server struct {
	runner Runner
	store  RecordStore // nil when the sqlite backend is disabled
	paths  []string
	config *config.Config
	watch  WatchService
	logger *zap.Logger
	server *http.Server

	runMu   sync.Mutex
	stateMu sync.Mutex
	running bool
	last    *models.RunReport
}

// NewServer creates a server that rebuilds paths with runner. store and
// watch may be nil.
func NewServer(runner Runner, store RecordStore, paths []string, cfg *config.Config, watch WatchService, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		runner: runner,
		store:  store,
		paths:  paths,
		config: cfg,
		watch:  watch,
		logger: logger,
	}
	var addr string
	if cfg != nil {
		addr = fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	}
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Routes returns the API router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Use(middleware.Compress(5))
		r.Get("/health", s.handleHealth)
		r.Get("/api/v1/status", s.handleStatus)
		r.Get("/api/v1/records/{id}", s.handleGetRecord)
	})
	// Runs are not bound by the request timeout.
	r.Post("/api/v1/reindex", s.handleReindex)
	return r
}

// Start starts the HTTP server and blocks until it stops. After Stop it
// returns http.ErrServerClosed, even when Stop ran first.
func (s *Server) Start() error {
	s.logger.Info("Starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Reindex runs a full rebuild, waiting for any run in progress to finish.
func (s *Server) Reindex(ctx context.Context) (*models.RunReport, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.reindexLocked(ctx)
}

// TryReindex runs a full rebuild unless one is already in progress, in
// which case it returns ErrBusy.
func (s *Server) TryReindex(ctx context.Context) (*models.RunReport, error) {
	if !s.runMu.TryLock() {
		return nil, ErrBusy
	}
	defer s.runMu.Unlock()
	return s.reindexLocked(ctx)
}

func (s *Server) reindexLocked(ctx context.Context) (*models.RunReport, error) {
	s.setRunning(true, nil)
	report, err := s.runner.Run(ctx, s.paths)
	s.setRunning(false, report)
	return report, err
}

func (s *Server) setRunning(running bool, report *models.RunReport) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	s.running = running
	if report != nil {
		s.last = report
	}
}

func (s *Server) state() (bool, *models.RunReport) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.running, s.last
}
