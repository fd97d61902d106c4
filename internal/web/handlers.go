package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/prism/internal/logging"
	"github.com/JonMunkholm/prism/internal/pipeline"
	"github.com/JonMunkholm/prism/internal/web/views"
)

// healthTimeout bounds the database ping of the health check.
const healthTimeout = 2 * time.Second

// handleHealth reports liveness and, when configured, database reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := map[string]string{"status": "ok", "database": "disabled"}
	if s.service.SinkEnabled() {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		if err := s.service.Ping(ctx); err != nil {
			logging.FromContext(ctx).Warn("health check: database unreachable", "error", err)
			resp["status"], resp["database"] = "degraded", "unreachable"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = "ok"
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHome renders the upload form and the operation catalog.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.Home(s.service.Catalog()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render home", "error", err)
	}
}

// handleRunForm runs a plan submitted from the HTML form and redirects to
// the report page.
func (s *Server) handleRunForm(w http.ResponseWriter, r *http.Request) {
	req, file, err := s.runRequest(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer file.Close()

	result, err := s.service.Run(WithRequestMetadata(r.Context(), r), req)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	http.Redirect(w, r, "/runs/"+result.ID, http.StatusSeeOther)
}

// handleRunPage renders the report of a stored run.
func (s *Server) handleRunPage(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Result(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.RunPage(result, s.service.SinkEnabled()).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render run page", "run_id", result.ID, "error", err)
	}
}

// handleOperations returns the stage catalog with parameter docs.
func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Catalog())
}

// handleStatus returns run slot usage and stored result counts.
// Used for monitoring and to check if the system can accept more runs.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

// handleCreateRun runs a plan over an uploaded file and returns the report.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	req, file, err := s.runRequest(w, r)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	defer file.Close()

	result, err := s.service.Run(WithRequestMetadata(r.Context(), r), req)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.Header().Set("Location", "/api/runs/"+result.ID)
	writeJSON(w, http.StatusCreated, toResponse(result))
}

// handleGetRun returns the report of a stored run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Result(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(result))
}

// handleExport downloads the final table of a run.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "runID")
	data, format, err := s.service.Export(id, r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.FileName()))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "run_id", id, "error", err)
	}
}

// handleRecipe downloads the plan of a run as a YAML recipe that the CLI
// and the run endpoint accept.
func (s *Server) handleRecipe(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Result(chi.URLParam(r, "runID"))
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="recipe.yaml"`)
	if err := pipeline.EncodeYAML(w, result.Report.Plan); err != nil {
		logging.FromContext(r.Context()).Error("encode recipe", "run_id", result.ID, "error", err)
	}
}

// SinkRequest is the body of a sink request.
type SinkRequest struct {
	Table   string `json:"table"`
	Replace bool   `json:"replace"`
}

// handleSink copies the final table of a run into Postgres.
func (s *Server) handleSink(w http.ResponseWriter, r *http.Request) {
	var req SinkRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		s.respondError(w, r, fmt.Errorf("decode sink request: %w", err), http.StatusBadRequest)
		return
	}
	if q := r.URL.Query(); q.Has("replace") {
		req.Replace = parseBoolParam(r, "replace", req.Replace)
	}

	id := chi.URLParam(r, "runID")
	rows, err := s.service.SinkToPostgres(r.Context(), id, req.Table, req.Replace)
	if err != nil {
		s.respondError(w, r, err, 0)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": req.Table, "rows": rows})
}
