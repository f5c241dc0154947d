package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/docindex/internal/indexer"
	"github.com/hyperjump/docindex/internal/models"
	"github.com/hyperjump/docindex/internal/sink"
	"go.uber.org/zap"
)

// StatusResponse is the body of GET /api/v1/status.
type StatusResponse struct {
	Running          bool              `json:"running"`
	Records          *int64            `json:"records,omitempty"`
	LastRun          *models.RunReport `json:"last_run,omitempty"`
	Paths            []string          `json:"paths"`
	Backends         []string          `json:"backends,omitempty"`
	WatchDirectories []string          `json:"watch_directories,omitempty"`
	DiskUsageBytes   *int64            `json:"disk_usage_bytes,omitempty"`
}

// ReindexResponse is the body of POST /api/v1/reindex.
type ReindexResponse struct {
	Report *models.RunReport `json:"report,omitempty"`
	Error  string            `json:"error,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	running, last := s.state()
	resp := StatusResponse{
		Running: running,
		LastRun: last,
		Paths:   s.paths,
	}
	if s.store != nil {
		n, err := s.store.CountRecords(ctx)
		if err != nil {
			s.logger.Error("status: count records failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp.Records = &n
		if resp.LastRun == nil {
			stored, err := s.store.LastRun(ctx)
			switch {
			case err == nil:
				resp.LastRun = stored
			case !errors.Is(err, sink.ErrNotFound):
				s.logger.Warn("status: last run lookup failed", zap.Error(err))
			}
		}
	}
	if s.watch != nil {
		resp.WatchDirectories = s.watch.Directories()
	}
	if s.config != nil {
		resp.Backends = s.config.Index.Backends
		if bytes, err := sink.DiskUsage(s.config.Index.DatabasePath, s.config.Index.BleveIndexPath); err == nil {
			resp.DiskUsageBytes = &bytes
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	if len(s.paths) == 0 {
		s.respondError(w, http.StatusBadRequest, "no source paths configured")
		return
	}
	s.logger.Debug("reindex request", zap.Strings("paths", s.paths))
	// The run continues if the client disconnects.
	report, err := s.TryReindex(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, ErrBusy):
		s.respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, indexer.ErrPathErrors):
		s.respondJSON(w, http.StatusOK, ReindexResponse{Report: report, Error: err.Error()})
	case err != nil:
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondJSON(w, http.StatusInternalServerError, ReindexResponse{Report: report, Error: err.Error()})
	default:
		s.respondJSON(w, http.StatusOK, ReindexResponse{Report: report})
	}
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.respondError(w, http.StatusNotImplemented, "record store not enabled")
		return
	}
	// Ids carry '#', so clients send them escaped.
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid record id")
		return
	}
	rec, err := s.store.GetRecordTree(r.Context(), id)
	if errors.Is(err, sink.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		s.logger.Error("get record failed", zap.String("id", id), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, rec)
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
