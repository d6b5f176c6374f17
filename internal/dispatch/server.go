// Package dispatch implements the thin admin HTTP surface (spec §6) and the
// cron-driven scheduler (spec §5) that wire internal/syncengine to the
// outside world. Grounded on the teacher's net/http.ServeMux method-pattern
// routing in internal/api/server.go.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/user/syncengine/internal/syncengine"
	"github.com/user/syncengine/pkg/runlog"
	"github.com/user/syncengine/pkg/syncerr"
	"github.com/user/syncengine/pkg/syncmodel"
)

// Server is the admin HTTP surface: CRUD over Jobs, run-and-resume, and
// log read/clear (spec §6 contract table). Run-all is available as the
// RunAll method; Routes registers no HTTP route for it.
type Server struct {
	Jobs         syncmodel.JobStore
	Logger       *runlog.Logger
	Engine       *syncengine.Engine
	bearerSecret string
}

// New builds a Server guarded by bearerSecret.
func New(jobs syncmodel.JobStore, logger *runlog.Logger, engine *syncengine.Engine, bearerSecret string) *Server {
	return &Server{Jobs: jobs, Logger: logger, Engine: engine, bearerSecret: bearerSecret}
}

// Routes registers every admin route on mux.
func (s *Server) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth", s.auth)
	mux.HandleFunc("GET /api/configs", s.requireBearer(s.listConfigs))
	mux.HandleFunc("POST /api/configs", s.requireBearer(s.createConfig))
	mux.HandleFunc("PUT /api/configs/{id}", s.requireBearer(s.updateConfig))
	mux.HandleFunc("DELETE /api/configs/{id}", s.requireBearer(s.deleteConfig))
	mux.HandleFunc("POST /api/sync/{id}", s.requireBearer(s.runSync))
	mux.HandleFunc("GET /api/logs/{jobId}", s.requireBearer(s.readLogs))
	mux.HandleFunc("DELETE /api/logs/{jobId}", s.requireBearer(s.clearLogs))
}

// auth validates a presented key against the bearer secret (spec §6
// "POST /api/auth | {key} | 200 on equal, else 401").
func (s *Server) auth(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Key string `json:"key"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Key != s.bearerSecret {
		jsonError(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) listConfigs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.Jobs.ListJobs(r.Context())
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) createConfig(w http.ResponseWriter, r *http.Request) {
	var job syncmodel.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.CronSchedule != "" {
		if err := ValidateCronExpression(job.CronSchedule); err != nil {
			jsonError(w, "invalid cron schedule: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := s.Jobs.PutJob(r.Context(), job); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "job": job})
}

func (s *Server) updateConfig(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var job syncmodel.Job
	if err := json.NewDecoder(r.Body).Decode(&job); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	job.ID = id
	if job.CronSchedule != "" {
		if err := ValidateCronExpression(job.CronSchedule); err != nil {
			jsonError(w, "invalid cron schedule: "+err.Error(), http.StatusBadRequest)
			return
		}
	}
	if err := s.Jobs.PutJob(r.Context(), job); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Server) deleteConfig(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.Jobs.DeleteJob(r.Context(), id); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// runSync is the run-and-resume endpoint (spec §6): "POST /api/sync/{id}".
func (s *Server) runSync(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok, err := s.Jobs.GetJob(r.Context(), id)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}

	var req struct {
		RunID       string `json:"runId"`
		BatchNumber int    `json:"batchNumber"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.BatchNumber == 0 {
		req.BatchNumber = 1
	}

	result, err := s.Engine.RunBatch(r.Context(), job, req.RunID, req.BatchNumber)
	if err != nil {
		status := http.StatusInternalServerError
		var syncErr *syncerr.Error
		if errors.As(err, &syncErr) {
			status = statusForKind(syncErr.Kind)
		}
		writeJSON(w, status, map[string]any{"success": false, "error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"runId":         result.RunID,
		"hasMore":       result.HasMore,
		"nextBatch":     result.NextBatch,
		"rowsProcessed": result.RowsUpserted,
		"rowsDeleted":   result.RowsDeleted,
		"stats":         result.Summary,
	})
}

func (s *Server) readLogs(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")
	runID := r.URL.Query().Get("runId")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	runs, err := s.Logger.ListRuns(r.Context(), jobID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if runID == "" && len(runs) > 0 {
		runID = runs[0].RunID
	}

	var logs []syncmodel.LogEntry
	if runID != "" {
		logs, err = s.Logger.Read(r.Context(), jobID, runID, limit)
		if err != nil {
			jsonError(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"exists": len(runs) > 0,
		"runs":   runs,
		"logs":   logs,
	})
}

func (s *Server) clearLogs(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("jobId")
	runID := r.URL.Query().Get("runId")
	if err := s.Logger.Clear(r.Context(), jobID, runID); err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "deleted": true})
}

func statusForKind(kind syncerr.Kind) int {
	switch kind {
	case syncerr.KindUnauthorized:
		return http.StatusUnauthorized
	case syncerr.KindNotFound:
		return http.StatusNotFound
	case syncerr.KindConfigInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// RunAll triggers batch-1 for every enabled job, sequentially, honoring
// dependency order (spec §5 "dispatcher runs sequentially by default").
// It is a Go method only, not an HTTP route.
func (s *Server) RunAll(ctx context.Context) error {
	jobs, err := s.Jobs.ListJobs(ctx)
	if err != nil {
		return err
	}
	for _, job := range orderByDependency(jobs) {
		if !job.Enabled {
			continue
		}
		if _, err := s.Engine.RunBatch(ctx, job, "", 1); err != nil {
			return err
		}
	}
	return nil
}
