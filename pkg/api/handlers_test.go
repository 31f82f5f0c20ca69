package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/classify"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/config"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/dataset"
	"github.com/TiberiousDoom/sensor-analysis-tool/pkg/store"
)

func testDataset() *dataset.Dataset {
	row := func(job, serial string, v0, v90, v120 *float64) dataset.Row {
		return dataset.Row{
			JobID:        job,
			SerialNumber: serial,
			Channel:      "A",
			Readings: map[int]*float64{
				0:   v0,
				90:  v90,
				120: v120,
			},
		}
	}

	return dataset.New([]dataset.Row{
		row("258.1", "SN1", dataset.Float(1.0), dataset.Float(2.0), dataset.Float(2.5)),
		row("258.1", "SN2", dataset.Float(1.0), dataset.Float(1.3), dataset.Float(1.2)),
		row("300", "SN3", dataset.Float(1.0), dataset.Float(2.0), dataset.Float(2.2)),
	})
}

func testServer(t *testing.T, cfg *config.APIConfig) (*server, http.Handler) {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	if cfg == nil {
		cfg = &config.APIConfig{}
	}

	if cfg.Database.Driver == "" {
		cfg.Database = config.APIDatabaseConfig{
			Driver: "sqlite",
			SQLite: config.SQLiteDatabaseConfig{
				Path: filepath.Join(t.TempDir(), "test.db"),
			},
		}
	}

	reg, err := classify.NewRegistry(nil)
	require.NoError(t, err)

	srv := &server{
		log:            log,
		cfg:            cfg,
		ds:             testDataset(),
		reg:            reg,
		defaultProfile: classify.ProfileStandard,
		store:          store.NewStore(log, &cfg.Database),
		done:           make(chan struct{}),
	}

	require.NoError(t, srv.store.Start(context.Background()))
	t.Cleanup(func() { _ = srv.store.Stop() })

	return srv, srv.buildRouter()
}

func doRequest(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()

	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v))
}

func TestHandleHealth(t *testing.T) {
	_, h := testServer(t, nil)

	rr := doRequest(t, h, http.MethodGet, "/api/v1/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	decodeBody(t, rr, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestHandleProfiles(t *testing.T) {
	_, h := testServer(t, nil)

	rr := doRequest(t, h, http.MethodGet, "/api/v1/profiles")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Default  string                      `json:"default"`
		Profiles map[string]classify.Profile `json:"profiles"`
	}
	decodeBody(t, rr, &body)

	assert.Equal(t, classify.ProfileStandard, body.Default)
	assert.Contains(t, body.Profiles, classify.ProfileStandard)
	assert.Contains(t, body.Profiles, classify.ProfileHighRange)
	assert.Equal(t, 1.50, body.Profiles[classify.ProfileStandard].Min120s)
}

func TestHandleListJobs(t *testing.T) {
	_, h := testServer(t, nil)

	rr := doRequest(t, h, http.MethodGet, "/api/v1/jobs/")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Jobs []string `json:"jobs"`
	}
	decodeBody(t, rr, &body)
	assert.Equal(t, []string{"258.1", "300"}, body.Jobs)
}

func TestHandleClassification(t *testing.T) {
	_, h := testServer(t, nil)

	rr := doRequest(t, h, http.MethodGet, "/api/v1/jobs/258.1/classification")
	require.Equal(t, http.StatusOK, rr.Code)

	var report classify.JobReport
	decodeBody(t, rr, &report)

	assert.Equal(t, "258.1", report.JobKey)
	assert.Equal(t, classify.ProfileStandard, report.Profile)
	require.Len(t, report.Serials, 2)
	assert.Equal(t, classify.CodePass, report.Serials[0].FinalStatus)
	assert.Equal(t, classify.CodeFailedLow, report.Serials[1].FinalStatus)
	assert.Equal(t, 2, report.Summary.TotalSerials)
}

func TestHandleClassification_ProfileQuery(t *testing.T) {
	_, h := testServer(t, nil)

	rr := doRequest(t, h, http.MethodGet,
		"/api/v1/jobs/258.1/classification?profile=High+Range")
	require.Equal(t, http.StatusOK, rr.Code)

	var report classify.JobReport
	decodeBody(t, rr, &report)
	assert.Equal(t, classify.ProfileHighRange, report.Profile)
	assert.Equal(t, 0.55, report.Thresholds.Min120s)
}

func TestHandleClassification_UnknownProfile(t *testing.T) {
	_, h := testServer(t, nil)

	rr := doRequest(t, h, http.MethodGet,
		"/api/v1/jobs/258.1/classification?profile=nope")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var body errorResponse
	decodeBody(t, rr, &body)
	assert.Contains(t, body.Error, "nope")
}

func TestHandleClassification_UnknownJob(t *testing.T) {
	_, h := testServer(t, nil)

	rr := doRequest(t, h, http.MethodGet, "/api/v1/jobs/999/classification")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var body struct {
		Error     string   `json:"error"`
		KnownJobs []string `json:"known_jobs"`
	}
	decodeBody(t, rr, &body)
	assert.Contains(t, body.Error, "999")
	assert.Equal(t, []string{"258.1", "300"}, body.KnownJobs)
}

func TestHandleClassification_UnknownJobTruncatesKnownJobs(t *testing.T) {
	srv, _ := testServer(t, nil)

	rows := make([]dataset.Row, 0, 12)
	for i := 0; i < 12; i++ {
		rows = append(rows, dataset.Row{
			JobID:        fmt.Sprintf("job-%02d", i),
			SerialNumber: "SN1",
			Readings:     map[int]*float64{},
		})
	}

	srv.ds = dataset.New(rows)
	h := srv.buildRouter()

	rr := doRequest(t, h, http.MethodGet, "/api/v1/jobs/999/classification")
	require.Equal(t, http.StatusNotFound, rr.Code)

	var body struct {
		KnownJobs []string `json:"known_jobs"`
	}
	decodeBody(t, rr, &body)
	require.Len(t, body.KnownJobs, 11)
	assert.Equal(t, "job-00", body.KnownJobs[0])
	assert.Equal(t, "... and 2 more", body.KnownJobs[10])
}

func TestHandleAnomalies(t *testing.T) {
	_, h := testServer(t, nil)

	rr := doRequest(t, h, http.MethodGet, "/api/v1/jobs/300/anomalies")
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		JobKey    string                 `json:"job_key"`
		Anomalies []classify.AnomalyFlag `json:"anomalies"`
	}
	decodeBody(t, rr, &body)
	assert.Equal(t, "300", body.JobKey)
	assert.Empty(t, body.Anomalies)
}

func TestRunLifecycle(t *testing.T) {
	_, h := testServer(t, nil)

	// create
	rr := doRequest(t, h, http.MethodPost, "/api/v1/jobs/258.1/runs")
	require.Equal(t, http.StatusCreated, rr.Code)

	var run store.AnalysisRun
	decodeBody(t, rr, &run)
	require.NotZero(t, run.ID)
	assert.Equal(t, "258.1", run.JobKey)
	assert.Equal(t, 2, run.TotalSerials)

	// list
	rr = doRequest(t, h, http.MethodGet, "/api/v1/runs/")
	require.Equal(t, http.StatusOK, rr.Code)

	var list struct {
		Runs []store.AnalysisRun `json:"runs"`
	}
	decodeBody(t, rr, &list)
	require.Len(t, list.Runs, 1)

	// filter by job
	rr = doRequest(t, h, http.MethodGet, "/api/v1/runs/?job=999")
	require.Equal(t, http.StatusOK, rr.Code)
	decodeBody(t, rr, &list)
	assert.Empty(t, list.Runs)

	// get detail
	rr = doRequest(t, h, http.MethodGet, "/api/v1/runs/1")
	require.Equal(t, http.StatusOK, rr.Code)

	var detail store.RunDetail
	decodeBody(t, rr, &detail)
	assert.Equal(t, run.ID, detail.Run.ID)
	require.Len(t, detail.Serials, 2)

	// delete
	rr = doRequest(t, h, http.MethodDelete, "/api/v1/runs/1")
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/api/v1/runs/1")
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRunHandlers_BadID(t *testing.T) {
	_, h := testServer(t, nil)

	rr := doRequest(t, h, http.MethodGet, "/api/v1/runs/abc")
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, h, http.MethodDelete, "/api/v1/runs/abc")
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := &config.APIConfig{
		Server: config.APIServerConfig{
			RateLimit: config.RateLimitConfig{
				Enabled:           true,
				RequestsPerMinute: 2,
			},
		},
	}

	_, h := testServer(t, cfg)

	for i := 0; i < 2; i++ {
		rr := doRequest(t, h, http.MethodGet, "/api/v1/health")
		require.Equal(t, http.StatusOK, rr.Code)
	}

	rr := doRequest(t, h, http.MethodGet, "/api/v1/health")
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
}

func TestExtractIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.1.2.3:1234"
	assert.Equal(t, "10.1.2.3", extractIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", extractIP(req))
}
