package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/site-report/internal/model"
	"github.com/sells-group/site-report/internal/monitoring"
	"github.com/sells-group/site-report/internal/store"
)

type analyzeRequest struct {
	URL   string `json:"url"`
	Notes string `json:"notes"`
}

type analyzeResponse struct {
	RunID       string          `json:"run_id,omitempty"`
	Report      string          `json:"report"`
	Error       string          `json:"error,omitempty"`
	ErrorKind   model.ErrorKind `json:"error_kind,omitempty"`
	FetchFailed bool            `json:"fetch_failed"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// handleAnalyze answers 200 for every completed trigger, including in-band
// failures. Only malformed input is a 4xx.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	req.URL = strings.TrimSpace(req.URL)
	if req.URL == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "url is required"})
		return
	}

	out := s.runner.Run(r.Context(), req.URL, req.Notes)
	writeJSON(w, http.StatusOK, analyzeResponse{
		RunID:       out.RunID,
		Report:      out.Report,
		Error:       out.Error,
		ErrorKind:   out.ErrorKind,
		FetchFailed: out.FetchFailed,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "run history is disabled"})
		return
	}

	q := r.URL.Query()
	status, ok := runStatus(q.Get("status"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid status"})
		return
	}
	filter := store.RunFilter{Status: status, URL: q.Get("url")}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid offset"})
			return
		}
		filter.Offset = n
	}

	runs, err := s.store.ListRuns(r.Context(), filter)
	if err != nil {
		zap.L().Error("web: list runs failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "list runs failed"})
		return
	}
	if runs == nil {
		runs = []model.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "run history is disabled"})
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrRunNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run not found"})
		return
	}
	if err != nil {
		zap.L().Error("web: get run failed", zap.String("run_id", id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "get run failed"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleStats summarizes run history. since_hours=0 or absent covers all of it.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "run history is disabled"})
		return
	}

	hours := 0
	if v := r.URL.Query().Get("since_hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid since_hours"})
			return
		}
		hours = n
	}

	snap, err := monitoring.NewCollector(s.store).Collect(r.Context(), hours)
	if err != nil {
		zap.L().Error("web: collect stats failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "collect stats failed"})
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("web: encode response failed", zap.Error(err))
	}
}
