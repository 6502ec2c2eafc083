package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"Mansoor88-6/process-tracker/internal/client"
	"Mansoor88-6/process-tracker/internal/config"
	"Mansoor88-6/process-tracker/internal/database"
	"Mansoor88-6/process-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	db, err := database.New(filepath.Join(t.TempDir(), "server.db"), database.ServerSchema, zap.NewNop())
	require.NoError(t, err)

	cfg := config.ServerConfig{
		JWTSecret:       "test-secret",
		JWTIssuer:       "process-tracker-test",
		TokenTTL:        3600,
		ProcessCacheTTL: 60,
		AllowedOrigin:   "*",
		MaxPhotoBytes:   1 << 20,
	}
	h, cache := NewHandler(db.DB, cfg, zap.NewNop())
	srv := httptest.NewServer(h)
	t.Cleanup(func() {
		srv.Close()
		cache.Stop()
		db.Close()
	})
	return srv
}

func newClient(srv *httptest.Server) *client.APIClient {
	return client.NewAPIClient(srv.URL, "dev-test", 5*time.Second, zap.NewNop())
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body, out any) int {
	t.Helper()
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, srv.URL+path, rd)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// setup registers an admin and an approved worker and creates a two-step process.
func setup(t *testing.T, srv *httptest.Server) (adminToken string, worker *client.APIClient, proc models.ProcessDefinition) {
	t.Helper()
	ctx := context.Background()
	c := newClient(srv)

	_, err := c.Register(ctx, models.RegisterRequest{Username: "boss", Password: "secret1", FirstName: "Boss"})
	require.NoError(t, err)
	_, err = c.Register(ctx, models.RegisterRequest{Username: "ana", Password: "secret2", FirstName: "Ana"})
	require.NoError(t, err)

	login, err := c.Login(ctx, "boss", "secret1")
	require.NoError(t, err)
	adminToken = login.Token
	assert.Equal(t, models.RoleAdmin, login.User.Role)

	in := models.ProcessInput{
		Name:       "Window install",
		Sequential: true,
		Steps: []models.StepInput{
			{Name: "Measure"},
			{Name: "Mount", RequiresPhoto: true},
		},
	}
	require.Equal(t, http.StatusCreated, call(t, srv, http.MethodPost, "/api/admin/processes", adminToken, in, &proc))
	require.Len(t, proc.Steps, 2)

	var users struct {
		Users []models.UserView `json:"users"`
	}
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/admin/users?status=pending", adminToken, nil, &users))
	require.Len(t, users.Users, 1)
	anaID := users.Users[0].ID

	status := models.UserStatusRequest{Status: models.UserStatusApproved}
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPatch, "/api/admin/users/"+itoa(anaID), adminToken, status, nil))

	worker = newClient(srv)
	wl, err := worker.Login(ctx, "ana", "secret2")
	require.NoError(t, err)
	worker.SetToken(wl.Token)
	return adminToken, worker, proc
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestLoginOutcomes(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()
	c := newClient(srv)

	_, err := c.Register(ctx, models.RegisterRequest{Username: "boss", Password: "secret1", FirstName: "Boss"})
	require.NoError(t, err)
	_, err = c.Register(ctx, models.RegisterRequest{Username: "ana", Password: "secret2", FirstName: "Ana"})
	require.NoError(t, err)

	_, err = c.Register(ctx, models.RegisterRequest{Username: "ana", Password: "secret2", FirstName: "Ana"})
	var serverErr *client.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusConflict, serverErr.StatusCode)

	resp, err := c.Login(ctx, "boss", "wrong-password")
	assert.Nil(t, resp)
	var authErr *client.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)

	_, err = c.Login(ctx, "ana", "secret2")
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusForbidden, authErr.StatusCode)
	assert.Equal(t, models.UserStatusPending, authErr.Status)

	_, err = c.Login(ctx, "", "x")
	var validation *client.ValidationError
	require.ErrorAs(t, err, &validation)
}

func TestProtectedRoutes(t *testing.T) {
	srv := newTestServer(t)
	adminToken, worker, _ := setup(t, srv)

	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodGet, "/api/processes", "", nil, nil))
	assert.Equal(t, http.StatusUnauthorized, call(t, srv, http.MethodGet, "/api/processes", "garbage", nil, nil))
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/health", "", nil, nil))

	me, err := worker.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ana", me.Username)

	login, err := newClient(srv).Login(context.Background(), "ana", "secret2")
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, call(t, srv, http.MethodGet, "/api/admin/users", login.Token, nil, nil))
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/admin/users", adminToken, nil, nil))
}

func TestPreflightSkipsAuth(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/records/start", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Headers"), "X-Device-ID")
}

func TestOnlineRecordLifecycle(t *testing.T) {
	srv := newTestServer(t)
	_, worker, proc := setup(t, srv)
	ctx := context.Background()

	procs, err := worker.FetchProcesses(ctx)
	require.NoError(t, err)
	require.Len(t, procs, 1)
	assert.Equal(t, "Measure", procs[0].Steps[0].Name)

	started, err := worker.StartRecord(ctx, models.StartRecordRequest{ProcessID: proc.ID})
	require.NoError(t, err)

	_, err = worker.StartRecord(ctx, models.StartRecordRequest{ProcessID: proc.ID})
	var serverErr *client.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusConflict, serverErr.StatusCode)

	step, err := worker.StartStep(ctx, started.ID, proc.Steps[0].ID)
	require.NoError(t, err)
	stopped, err := worker.StopStepTiming(ctx, step.ID)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, stopped.Duration, int64(0))

	photo, err := worker.UploadPhoto(ctx, started.ID, &proc.Steps[1].ID, []byte("jpeg-bytes"), "mounted")
	require.NoError(t, err)
	assert.Equal(t, int64(len("jpeg-bytes")), photo.Size)
	assert.Len(t, photo.Digest, 64)

	done, err := worker.StopRecord(ctx, started.ID, "all good")
	require.NoError(t, err)
	assert.False(t, done.EndTime.Before(started.StartTime))

	_, err = worker.StopRecord(ctx, started.ID, "again")
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, http.StatusConflict, serverErr.StatusCode)
}

func TestSyncIsIdempotent(t *testing.T) {
	srv := newTestServer(t)
	_, worker, proc := setup(t, srv)
	ctx := context.Background()

	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	end := start.Add(42 * time.Minute)
	stepDone := start.Add(10 * time.Minute)
	rec := models.SyncRecord{
		ClientID:        "c-1",
		ProcessID:       proc.ID,
		StartTime:       start,
		EndTime:         end,
		DurationSeconds: int64(end.Sub(start).Seconds()),
		Comment:         "offline",
		Steps: []models.SyncStep{
			{StepID: proc.Steps[0].ID, StartedAt: start, CompletedAt: &stepDone},
		},
		Photos: []models.SyncPhoto{
			{StepID: &proc.Steps[1].ID, Data: []byte("photo"), TakenAt: stepDone},
		},
	}

	assert.True(t, worker.PushRecord(ctx, rec))
	assert.True(t, worker.PushRecord(ctx, rec))

	login, err := newClient(srv).Login(ctx, "ana", "secret2")
	require.NoError(t, err)
	var history models.RecordListResponse
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/records?limit=10", login.Token, nil, &history))
	require.Len(t, history.Records, 1)

	got := history.Records[0]
	assert.True(t, got.StartTime.Equal(start))
	require.NotNil(t, got.EndTime)
	assert.True(t, got.EndTime.Equal(end))
	require.NotNil(t, got.DurationSeconds)
	assert.Equal(t, rec.DurationSeconds, *got.DurationSeconds)
	assert.Equal(t, "offline", got.Comment)
	assert.Equal(t, "dev-test", got.DeviceID)
}

func TestSyncRejectsInvalidBatch(t *testing.T) {
	srv := newTestServer(t)
	_, worker, proc := setup(t, srv)

	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	ok := worker.PushRecord(context.Background(), models.SyncRecord{
		ClientID:  "c-bad",
		ProcessID: proc.ID,
		StartTime: start,
		EndTime:   start.Add(-time.Minute),
	})
	assert.False(t, ok)
}

func TestAuthFailureHookOnMalformedToken(t *testing.T) {
	srv := newTestServer(t)
	_, worker, _ := setup(t, srv)

	var hooked error
	worker.OnAuthFailure(func(err error) { hooked = err })
	worker.SetToken("not-a-token")

	_, err := worker.FetchProcesses(context.Background())
	var authErr *client.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Error(t, hooked)
}

func TestRejectedAccountLosesLiveSession(t *testing.T) {
	srv := newTestServer(t)
	adminToken, worker, proc := setup(t, srv)
	ctx := context.Background()

	me, err := worker.Me(ctx)
	require.NoError(t, err)

	var hooks int
	worker.OnAuthFailure(func(error) { hooks++ })

	reject := models.UserStatusRequest{Status: models.UserStatusRejected}
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPatch, "/api/admin/users/"+itoa(me.ID), adminToken, reject, nil))

	_, err = worker.FetchProcesses(ctx)
	var authErr *client.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, http.StatusForbidden, authErr.StatusCode)
	assert.Equal(t, models.UserStatusRejected, authErr.Status)

	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	ok := worker.PushRecord(ctx, models.SyncRecord{
		ClientID:        "after-reject",
		ProcessID:       proc.ID,
		StartTime:       start,
		EndTime:         start.Add(time.Minute),
		DurationSeconds: 60,
	})
	assert.False(t, ok)

	_, err = worker.StartRecord(ctx, models.StartRecordRequest{ProcessID: proc.ID})
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, 3, hooks)
}

func TestDemotedAdminLosesAdminRoutes(t *testing.T) {
	srv := newTestServer(t)
	adminToken, worker, _ := setup(t, srv)
	ctx := context.Background()

	me, err := worker.Me(ctx)
	require.NoError(t, err)
	login, err := newClient(srv).Login(ctx, "ana", "secret2")
	require.NoError(t, err)
	token := login.Token

	promote := models.UserStatusRequest{Status: models.UserStatusApproved, Role: models.RoleAdmin}
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPatch, "/api/admin/users/"+itoa(me.ID), adminToken, promote, nil))

	// The worker's token still says "worker", but the account is an admin now.
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/api/admin/users", token, nil, nil))

	demote := models.UserStatusRequest{Status: models.UserStatusApproved, Role: models.RoleWorker}
	require.Equal(t, http.StatusOK, call(t, srv, http.MethodPatch, "/api/admin/users/"+itoa(me.ID), adminToken, demote, nil))
	assert.Equal(t, http.StatusForbidden, call(t, srv, http.MethodGet, "/api/admin/users", token, nil, nil))
}

func TestAnalyticsReport(t *testing.T) {
	srv := newTestServer(t)
	adminToken, worker, proc := setup(t, srv)
	ctx := context.Background()

	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	for i, minutes := range []int{30, 90} {
		end := start.Add(time.Duration(minutes) * time.Minute)
		require.True(t, worker.PushRecord(ctx, models.SyncRecord{
			ClientID:        "a-" + itoa(int64(i)),
			ProcessID:       proc.ID,
			StartTime:       start,
			EndTime:         end,
			DurationSeconds: int64(minutes * 60),
		}))
	}

	var report models.AnalyticsReport
	status := call(t, srv, http.MethodGet, "/api/admin/analytics?from=2026-05-01&to=2026-05-31", adminToken, nil, &report)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, report.TotalRecords)
	assert.Equal(t, int64(120*60), report.TotalSeconds)
	assert.InDelta(t, 3600, report.AverageSeconds, 0.001)
	require.Len(t, report.ByProcess, 1)
	assert.Equal(t, "Window install", report.ByProcess[0].Name)

	assert.Equal(t, http.StatusBadRequest,
		call(t, srv, http.MethodGet, "/api/admin/analytics?from=2026-06-01&to=2026-05-01", adminToken, nil, nil))
}

func TestMetricsExposed(t *testing.T) {
	srv := newTestServer(t)
	assert.Equal(t, http.StatusOK, call(t, srv, http.MethodGet, "/health", "", nil, nil))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `process_tracker_http_requests_total{code="200",route="GET /health"}`)
}
