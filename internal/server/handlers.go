package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/geothermal-cli/internal/model"
	"github.com/sells-group/geothermal-cli/internal/store"
)

const maxListLimit = 500

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("server: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "run history is disabled")
		return false
	}
	return true
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	filter, err := parseRunFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list runs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		zap.L().Error("server: get run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListSites(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.store.GetRun(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
			return
		}
		zap.L().Error("server: get run", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load run")
		return
	}

	sites, err := s.store.ListSites(r.Context(), id)
	if err != nil {
		zap.L().Error("server: list sites", zap.String("run_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list sites")
		return
	}
	if sites == nil {
		sites = []model.SiteCandidate{}
	}
	writeJSON(w, http.StatusOK, sites)
}

// handleData serves one of the configured output files. Any other name is a
// 404, which also keeps requests inside the output directory.
func (s *Server) handleData(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "file")
	contentType, ok := s.files[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown data file")
		return
	}

	path := filepath.Join(s.output.Dir, name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		writeError(w, http.StatusNotFound, "data file not generated yet")
		return
	}
	if err != nil {
		zap.L().Error("server: open data file", zap.String("path", path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read data file")
		return
	}
	defer f.Close() //nolint:errcheck

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read data file")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func parseRunFilter(r *http.Request) (store.RunFilter, error) {
	q := r.URL.Query()
	var filter store.RunFilter

	if v := q.Get("status"); v != "" {
		switch st := model.RunStatus(v); st {
		case model.RunStatusRunning, model.RunStatusComplete, model.RunStatusFailed:
			filter.Status = st
		default:
			return filter, errors.New("status must be running, complete or failed")
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("limit must be a non-negative integer")
		}
		filter.Limit = min(n, maxListLimit)
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errors.New("since must be an RFC 3339 timestamp")
		}
		filter.CreatedAfter = t
	}
	return filter, nil
}
