package models

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
)

// UserView is the public shape of a user in API responses.
type UserView struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	Role      string `json:"role"`
	Status    string `json:"status"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Status  string `json:"status,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

type LoginResponse struct {
	Success bool     `json:"success"`
	Token   string   `json:"token"`
	User    UserView `json:"user"`
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
}

const minPasswordLength = 6

func (r RegisterRequest) Validate() error {
	username := strings.TrimSpace(r.Username)
	if username == "" {
		return errors.New("username is required")
	}
	if len(username) > 64 {
		return errors.New("username must be at most 64 characters")
	}
	if len(r.Password) < minPasswordLength {
		return fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	if strings.TrimSpace(r.FirstName) == "" {
		return errors.New("firstName is required")
	}
	return nil
}

type RegisterResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type MeResponse struct {
	Success bool     `json:"success"`
	User    UserView `json:"user"`
}

// SyncStep carries one step completion of a synced record.
type SyncStep struct {
	StepID      int64      `json:"stepId"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// SyncPhoto carries one photo of a synced record. Data is base64 in JSON.
type SyncPhoto struct {
	StepID  *int64    `json:"stepId,omitempty"`
	Data    []byte    `json:"data"`
	TakenAt time.Time `json:"takenAt"`
}

// SyncRecord is a finished record pushed by an offline client.
type SyncRecord struct {
	ClientID        string      `json:"clientId"`
	ProcessID       int64       `json:"processId"`
	ObjectID        *int64      `json:"objectId,omitempty"`
	AssignmentID    *int64      `json:"assignmentId,omitempty"`
	StartTime       time.Time   `json:"startTime"`
	EndTime         time.Time   `json:"endTime"`
	DurationSeconds int64       `json:"durationSeconds"`
	Comment         string      `json:"comment"`
	Steps           []SyncStep  `json:"steps,omitempty"`
	Photos          []SyncPhoto `json:"photos,omitempty"`
}

func (r SyncRecord) Validate() error {
	if strings.TrimSpace(r.ClientID) == "" {
		return errors.New("clientId is required")
	}
	if r.ProcessID <= 0 {
		return errors.New("processId is required")
	}
	if r.StartTime.IsZero() || r.EndTime.IsZero() {
		return errors.New("startTime and endTime are required")
	}
	if r.EndTime.Before(r.StartTime) {
		return errors.New("endTime precedes startTime")
	}
	if r.DurationSeconds < 0 {
		return errors.New("durationSeconds must be >= 0")
	}
	seen := make(map[int64]struct{}, len(r.Steps))
	for _, s := range r.Steps {
		if _, dup := seen[s.StepID]; dup {
			return fmt.Errorf("step %d listed twice", s.StepID)
		}
		seen[s.StepID] = struct{}{}
	}
	for _, p := range r.Photos {
		if len(p.Data) == 0 {
			return errors.New("photo data is empty")
		}
	}
	return nil
}

type SyncRequest struct {
	Records []SyncRecord `json:"records"`
}

func (r SyncRequest) Validate() error {
	if len(r.Records) == 0 {
		return errors.New("records must not be empty")
	}
	for i, rec := range r.Records {
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
	}
	return nil
}

type SyncResponse struct {
	Success bool `json:"success"`
	Synced  int  `json:"synced"`
}

type StartRecordRequest struct {
	ProcessID    int64  `json:"processId"`
	ObjectID     *int64 `json:"objectId,omitempty"`
	AssignmentID *int64 `json:"assignmentId,omitempty"`
}

func (r StartRecordRequest) Validate() error {
	if r.ProcessID <= 0 {
		return errors.New("processId is required")
	}
	return nil
}

type StartRecordResponse struct {
	ID        int64     `json:"id"`
	StartTime time.Time `json:"start_time"`
}

type StopRecordRequest struct {
	Comment string `json:"comment"`
}

func (r StopRecordRequest) Validate() error {
	if len(r.Comment) > 2000 {
		return errors.New("comment must be at most 2000 characters")
	}
	return nil
}

type StopRecordResponse struct {
	EndTime  time.Time `json:"end_time"`
	Duration int64     `json:"duration"`
}

type StepStartResponse struct {
	ID        int64     `json:"id"`
	StartedAt time.Time `json:"started_at"`
}

type StepStopResponse struct {
	EndedAt  time.Time `json:"ended_at"`
	Duration int64     `json:"duration"`
}

type PhotoUploadRequest struct {
	StepID   *int64 `json:"stepId,omitempty"`
	FileData string `json:"fileData"`
	Comment  string `json:"comment,omitempty"`
}

// Decode validates the request and returns the raw image bytes.
// A data URL prefix ("data:image/jpeg;base64,") is accepted.
func (r PhotoUploadRequest) Decode() ([]byte, error) {
	raw := strings.TrimSpace(r.FileData)
	if raw == "" {
		return nil, errors.New("fileData is required")
	}
	if strings.HasPrefix(raw, "data:") {
		idx := strings.Index(raw, ",")
		if idx < 0 {
			return nil, errors.New("fileData is not a valid data URL")
		}
		raw = raw[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("fileData is not valid base64: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("fileData is empty")
	}
	return data, nil
}

type PhotoUploadResponse struct {
	ID     int64  `json:"id"`
	Digest string `json:"digest"`
	Size   int64  `json:"size"`
}

type UserStatusRequest struct {
	Status string `json:"status"`
	Role   string `json:"role,omitempty"`
}

func (r UserStatusRequest) Validate() error {
	switch r.Status {
	case UserStatusPending, UserStatusApproved, UserStatusRejected:
	default:
		return fmt.Errorf("unknown status %q", r.Status)
	}
	switch r.Role {
	case "", RoleWorker, RoleAdmin:
	default:
		return fmt.Errorf("unknown role %q", r.Role)
	}
	return nil
}

type StepInput struct {
	Name          string `json:"name"`
	RequiresPhoto bool   `json:"requiresPhoto"`
}

// ProcessInput creates or replaces a process definition. Steps are numbered in list order.
type ProcessInput struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Sequential  bool        `json:"sequential"`
	Active      *bool       `json:"active,omitempty"`
	Steps       []StepInput `json:"steps,omitempty"`
}

func (r ProcessInput) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if !r.Sequential && len(r.Steps) > 0 {
		return errors.New("steps require sequential=true")
	}
	for i, s := range r.Steps {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("steps[%d].name is required", i)
		}
	}
	return nil
}

type ObjectInput struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

func (r ObjectInput) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

type AssignmentInput struct {
	UserID    int64  `json:"userId"`
	ProcessID int64  `json:"processId"`
	ObjectID  *int64 `json:"objectId,omitempty"`
}

func (r AssignmentInput) Validate() error {
	if r.UserID <= 0 {
		return errors.New("userId is required")
	}
	if r.ProcessID <= 0 {
		return errors.New("processId is required")
	}
	return nil
}

type ProcessListResponse struct {
	Success   bool                `json:"success"`
	Processes []ProcessDefinition `json:"processes"`
}

type RecordListResponse struct {
	Success bool     `json:"success"`
	Records []Record `json:"records"`
}
