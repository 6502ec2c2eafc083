package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"Mansoor88-6/process-tracker/internal/models"

	"go.uber.org/zap"
)

// APIClient handles communication with the process-tracker server
type APIClient struct {
	baseURL    string
	deviceID   string
	httpClient *http.Client
	logger     *zap.Logger

	mu            sync.RWMutex
	token         string
	onAuthFailure func(error)
}

// NewAPIClient creates a new API client
func NewAPIClient(baseURL, deviceID string, timeout time.Duration, logger *zap.Logger) *APIClient {
	return &APIClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		deviceID: deviceID,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// SetToken sets the bearer token sent with authenticated calls.
func (c *APIClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// OnAuthFailure registers fn to run when an authenticated call is answered with 401 or 403.
func (c *APIClient) OnAuthFailure(fn func(error)) {
	c.mu.Lock()
	c.onAuthFailure = fn
	c.mu.Unlock()
}

func (c *APIClient) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges credentials for a token. The token is not stored on the client.
func (c *APIClient) Login(ctx context.Context, username, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Username: username, Password: password}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a pending worker account.
func (c *APIClient) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	var resp models.RegisterResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/register", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Me returns the profile behind the current token.
func (c *APIClient) Me(ctx context.Context) (*models.UserView, error) {
	var resp models.MeResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &resp, true); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// FetchProcesses returns the active process definitions with their ordered steps.
func (c *APIClient) FetchProcesses(ctx context.Context) ([]models.ProcessDefinition, error) {
	var resp models.ProcessListResponse
	if err := c.do(ctx, http.MethodGet, "/api/processes", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Processes, nil
}

// PushRecord sends one finished record to the server and reports whether it was accepted.
// It never fails loudly: every error is logged and turned into false.
func (c *APIClient) PushRecord(ctx context.Context, record models.SyncRecord) bool {
	var resp models.SyncResponse
	req := models.SyncRequest{Records: []models.SyncRecord{record}}

	start := time.Now()
	if err := c.do(ctx, http.MethodPost, "/api/sync/records", req, &resp, true); err != nil {
		c.logger.Warn("Failed to push record",
			zap.Error(err),
			zap.String("client_id", record.ClientID),
			zap.Duration("duration", time.Since(start)),
		)
		return false
	}

	c.logger.Info("Record pushed",
		zap.String("client_id", record.ClientID),
		zap.Int("synced", resp.Synced),
		zap.Duration("duration", time.Since(start)),
	)
	return true
}

// StartRecord opens a record on the server. A record already running answers 409.
func (c *APIClient) StartRecord(ctx context.Context, req models.StartRecordRequest) (*models.StartRecordResponse, error) {
	var resp models.StartRecordResponse
	if err := c.do(ctx, http.MethodPost, "/api/records/start", req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopRecord finishes a server-side record with comment.
func (c *APIClient) StopRecord(ctx context.Context, recordID int64, comment string) (*models.StopRecordResponse, error) {
	var resp models.StopRecordResponse
	path := fmt.Sprintf("/api/records/%d/stop", recordID)
	if err := c.do(ctx, http.MethodPost, path, models.StopRecordRequest{Comment: comment}, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartStep starts timing a step of a server-side record.
func (c *APIClient) StartStep(ctx context.Context, recordID, stepID int64) (*models.StepStartResponse, error) {
	var resp models.StepStartResponse
	path := fmt.Sprintf("/api/records/%d/steps/%d/start", recordID, stepID)
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopStepTiming ends a step timing returned by StartStep.
func (c *APIClient) StopStepTiming(ctx context.Context, timingID int64) (*models.StepStopResponse, error) {
	var resp models.StepStopResponse
	path := fmt.Sprintf("/api/step-timings/%d/stop", timingID)
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// UploadPhoto attaches an image to a server-side record, optionally to one of its steps.
func (c *APIClient) UploadPhoto(ctx context.Context, recordID int64, stepID *int64, data []byte, comment string) (*models.PhotoUploadResponse, error) {
	req := models.PhotoUploadRequest{
		StepID:   stepID,
		FileData: base64.StdEncoding.EncodeToString(data),
		Comment:  comment,
	}
	var resp models.PhotoUploadResponse
	path := fmt.Sprintf("/api/records/%d/photos", recordID)
	if err := c.do(ctx, http.MethodPost, path, req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// HealthCheck checks if the backend is reachable
func (c *APIClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: "health check", Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return &ServerError{StatusCode: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}

func (c *APIClient) do(ctx context.Context, method, path string, in, out any, authenticated bool) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.deviceID != "" {
		req.Header.Set("X-Device-ID", c.deviceID)
	}
	token := c.currentToken()
	if authenticated && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(startTime)
	if err != nil {
		c.logger.Debug("Request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
			zap.Duration("duration", duration),
		)
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}

	c.logger.Debug("Request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(respBody) == 0 {
			return nil
		}
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
		return nil
	}

	return c.statusError(resp.StatusCode, respBody, authenticated && token != "")
}

func (c *APIClient) statusError(statusCode int, body []byte, hadToken bool) error {
	var payload models.ErrorResponse
	message := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		message = payload.Error
	}

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		authErr := &AuthError{StatusCode: statusCode, Message: message, Status: payload.Status}
		if hadToken {
			c.logger.Warn("Session rejected by server",
				zap.Int("status_code", statusCode),
				zap.String("status", payload.Status),
			)
			c.mu.RLock()
			hook := c.onAuthFailure
			c.mu.RUnlock()
			if hook != nil {
				hook(authErr)
			}
		}
		return authErr
	case http.StatusBadRequest:
		return &ValidationError{Message: message}
	default:
		return &ServerError{StatusCode: statusCode, Message: message}
	}
}
