package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/classify"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/store"
)

// knownJobsLimit caps the known-jobs diagnostic in not-found responses.
const knownJobsLimit = 10

// errorResponse is a standard error payload.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to w.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encoding response", http.StatusInternalServerError)
	}
}

// handleHealth returns server health status.
func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleProfiles returns the registered threshold profiles.
func (s *server) handleProfiles(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"default":  s.defaultProfile,
		"profiles": s.reg.Profiles(),
	})
}

// handleListJobs returns the distinct job identifiers in the dataset.
func (s *server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs": s.ds.Jobs(),
	})
}

// profileParam returns the requested profile name, falling back to the
// configured default.
func (s *server) profileParam(r *http.Request) string {
	if p := r.URL.Query().Get("profile"); p != "" {
		return p
	}

	return s.defaultProfile
}

// analyze runs classification for the request's job and profile and
// writes error responses itself. Returns nil when a response was written.
func (s *server) analyze(w http.ResponseWriter, r *http.Request) *classify.JobReport {
	jobKey := chi.URLParam(r, "key")

	report, err := classify.AnalyzeJob(s.ds, jobKey, s.reg, s.profileParam(r))
	if err != nil {
		if classify.IsNotFound(err) {
			// Surface the known identifiers so callers can correct typos.
			writeJSON(w, http.StatusNotFound, map[string]any{
				"error":      err.Error(),
				"known_jobs": dataset.TruncateList(s.ds.Jobs(), knownJobsLimit),
			})

			return nil
		}

		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return nil
	}

	return report
}

// handleClassification returns the full classification report for a job.
func (s *server) handleClassification(w http.ResponseWriter, r *http.Request) {
	report := s.analyze(w, r)
	if report == nil {
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handleAnomalies returns only the anomaly flags for a job.
func (s *server) handleAnomalies(w http.ResponseWriter, r *http.Request) {
	report := s.analyze(w, r)
	if report == nil {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"job_key":   report.JobKey,
		"profile":   report.Profile,
		"anomalies": report.Anomalies,
	})
}

// handleCreateRun analyzes a job and persists the result as a new run.
func (s *server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	report := s.analyze(w, r)
	if report == nil {
		return
	}

	run, err := s.store.SaveReport(r.Context(), report, "")
	if err != nil {
		s.log.WithError(err).Error("Failed to save analysis run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"saving analysis run"})

		return
	}

	writeJSON(w, http.StatusCreated, run)
}

// handleListRuns returns persisted runs, optionally filtered by job.
func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	var (
		runs []store.AnalysisRun
		err  error
	)

	if jobKey := r.URL.Query().Get("job"); jobKey != "" {
		runs, err = s.store.ListRunsByJob(r.Context(), jobKey)
	} else {
		runs, err = s.store.ListRuns(r.Context())
	}

	if err != nil {
		s.log.WithError(err).Error("Failed to list runs")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"listing runs"})

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

// runIDParam parses the {id} route parameter.
func runIDParam(r *http.Request) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		return 0, errors.New("invalid run id")
	}

	return uint(id), nil
}

// handleGetRun returns one run with its serials and anomalies.
func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := runIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	detail, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{err.Error()})

			return
		}

		s.log.WithError(err).Error("Failed to get run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"getting run"})

		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// handleDeleteRun removes a persisted run.
func (s *server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id, err := runIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})

		return
	}

	if err := s.store.DeleteRun(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			writeJSON(w, http.StatusNotFound, errorResponse{err.Error()})

			return
		}

		s.log.WithError(err).Error("Failed to delete run")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"deleting run"})

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
