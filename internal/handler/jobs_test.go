package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relionflow/api/internal/builder"
	"github.com/relionflow/api/internal/jobtype"
	"github.com/relionflow/api/internal/middleware"
	"github.com/relionflow/api/internal/model"
	"github.com/relionflow/api/internal/service"
	"github.com/relionflow/api/internal/store"
	"github.com/relionflow/api/internal/submit"
	"github.com/relionflow/api/pkg/response"
)

type nopDispatcher struct{ ids []string }

func (d *nopDispatcher) Dispatch(_ context.Context, jobID string) error {
	d.ids = append(d.ids, jobID)
	return nil
}

type testApp struct {
	app        *fiber.App
	dispatcher *nopDispatcher
}

// setupApp wires the API like main.go with an in-memory store and a
// dispatcher that never launches anything.
func setupApp(t *testing.T) *testApp {
	t.Helper()

	active := t.TempDir()
	archive := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(active, "p1", "Movies"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(active, "p1", "Movies", "movies.star"), []byte("data_\n"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(archive, "old"), 0o755))

	st := store.NewMemory()
	reg, err := jobtype.New()
	require.NoError(t, err)
	engine, err := submit.New(st, submit.DefaultConfig())
	require.NoError(t, err)
	d := &nopDispatcher{}

	svc := service.NewJobService(st, reg, service.NewProjectResolver(active, archive), builder.DefaultOptions(), d, engine, nil)
	jobHandler := NewJobHandler(svc, validator.New())

	app := fiber.New()
	api := app.Group("/api", middleware.Identity())
	api.Get("/jobtypes", jobHandler.Types)
	api.Post("/jobs/validate", jobHandler.Validate)
	api.Post("/jobs", middleware.NewRateLimiter(nil, nil).SubmitLimit(10000), jobHandler.Submit)
	api.Get("/jobs/:jobId", jobHandler.Status)
	api.Post("/jobs/:jobId/cancel", jobHandler.Cancel)
	api.Get("/projects/:projectId/tree", jobHandler.Tree)

	return &testApp{app: app, dispatcher: d}
}

func (ta *testApp) do(t *testing.T, method, path, body string) (int, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, path, strings.NewReader(body))
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-User-Id", "tester")
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var er response.ErrorResponse
	require.NoError(t, json.Unmarshal(data, &er), string(data))
	return er.Error.Code
}

const linkBody = `{"projectId":"p1","jobType":"link","parameters":{"source":"Movies/movies.star"}}`

func TestSubmitAndStatus(t *testing.T) {
	ta := setupApp(t)

	code, data := ta.do(t, "POST", "/api/jobs", strings.Replace(linkBody, `"link"`, `"symlink"`, 1))
	require.Equal(t, fiber.StatusAccepted, code, string(data))
	var submitted model.SubmitJobResponse
	require.NoError(t, json.Unmarshal(data, &submitted))
	assert.Equal(t, "job001", submitted.JobName)
	assert.Equal(t, "Link/job001/", submitted.OutputDir)
	assert.Equal(t, []string{submitted.JobID}, ta.dispatcher.ids)

	code, data = ta.do(t, "GET", "/api/jobs/"+submitted.JobID, "")
	require.Equal(t, fiber.StatusOK, code)
	var status model.JobStatusResponse
	require.NoError(t, json.Unmarshal(data, &status))
	assert.Equal(t, model.JobStatusPending, status.Status)
	assert.Equal(t, "link", status.Type)
}

func TestSubmit_Errors(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"malformed body", `{`, fiber.StatusBadRequest, response.CodeValidationError},
		{"missing fields", `{"projectId":"p1"}`, fiber.StatusBadRequest, response.CodeValidationError},
		{"unknown type", `{"projectId":"p1","jobType":"nope","parameters":{}}`, fiber.StatusBadRequest, response.CodeValidationError},
		{"failed validation", `{"projectId":"p1","jobType":"postprocess","parameters":{}}`, fiber.StatusBadRequest, response.CodeValidationError},
		{"missing project", `{"projectId":"p9","jobType":"symlink","parameters":{"source":"x"}}`, fiber.StatusNotFound, response.CodeNotFound},
		{"archived project", `{"projectId":"old","jobType":"symlink","parameters":{"source":"x"}}`, fiber.StatusForbidden, response.CodeForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := setupApp(t)
			code, data := ta.do(t, "POST", "/api/jobs", tt.body)
			assert.Equal(t, tt.status, code, string(data))
			assert.Equal(t, tt.code, errorCode(t, data))
			assert.Empty(t, ta.dispatcher.ids)
		})
	}
}

func TestValidateEndpoint(t *testing.T) {
	ta := setupApp(t)
	code, data := ta.do(t, "POST", "/api/jobs/validate", linkBody)
	require.Equal(t, fiber.StatusOK, code, string(data))
	var v model.ValidateJobResponse
	require.NoError(t, json.Unmarshal(data, &v))
	assert.True(t, v.Valid)
	assert.Equal(t, "ln", v.Command[0])
	assert.Empty(t, ta.dispatcher.ids)

	code, data = ta.do(t, "POST", "/api/jobs/validate", `{"projectId":"p1","jobType":"postprocess","parameters":{}}`)
	require.Equal(t, fiber.StatusBadRequest, code)
	var er struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &er))
	assert.Equal(t, string(builder.CodeMissingField), er.Error.Details["code"])
}

func TestCancelEndpoint(t *testing.T) {
	ta := setupApp(t)
	_, data := ta.do(t, "POST", "/api/jobs", linkBody)
	var submitted model.SubmitJobResponse
	require.NoError(t, json.Unmarshal(data, &submitted))

	code, data := ta.do(t, "POST", "/api/jobs/"+submitted.JobID+"/cancel", "")
	require.Equal(t, fiber.StatusOK, code, string(data))
	var cancelled model.JobCancelResponse
	require.NoError(t, json.Unmarshal(data, &cancelled))
	assert.Equal(t, model.JobStatusCancelled, cancelled.Status)

	code, data = ta.do(t, "POST", "/api/jobs/"+submitted.JobID+"/cancel", "")
	assert.Equal(t, fiber.StatusConflict, code)
	assert.Equal(t, response.CodeConflict, errorCode(t, data))

	code, _ = ta.do(t, "POST", "/api/jobs/unknown/cancel", "")
	assert.Equal(t, fiber.StatusNotFound, code)
}

func TestJobTypesAndTree(t *testing.T) {
	ta := setupApp(t)

	code, data := ta.do(t, "GET", "/api/jobtypes", "")
	require.Equal(t, fiber.StatusOK, code)
	var types []model.JobTypeInfo
	require.NoError(t, json.Unmarshal(data, &types))
	assert.Len(t, types, 23)

	ta.do(t, "POST", "/api/jobs", linkBody)
	code, data = ta.do(t, "GET", "/api/projects/p1/tree", "")
	require.Equal(t, fiber.StatusOK, code)
	var nodes []model.JobTreeNode
	require.NoError(t, json.Unmarshal(data, &nodes))
	require.Len(t, nodes, 1)
	assert.Equal(t, "job001", nodes[0].JobName)

	code, _ = ta.do(t, "GET", "/api/projects/nope/tree", "")
	assert.Equal(t, fiber.StatusNotFound, code)
}
