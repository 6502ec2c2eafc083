package models

import "time"

const (
	RoleWorker = "worker"
	RoleAdmin  = "admin"
)

const (
	UserStatusPending  = "pending"
	UserStatusApproved = "approved"
	UserStatusRejected = "rejected"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

// View strips the credential material from a user.
func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		Role:      u.Role,
		Status:    u.Status,
	}
}

// WorkObject is a place or asset a process is performed on.
type WorkObject struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Assignment allows a user to run a process, optionally on a specific object.
type Assignment struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	ProcessID int64     `json:"processId"`
	ObjectID  *int64    `json:"objectId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Record is the server's durable copy of a time record.
type Record struct {
	ID              int64      `json:"id"`
	ClientID        *string    `json:"clientId,omitempty"`
	UserID          int64      `json:"userId"`
	ProcessID       int64      `json:"processId"`
	ObjectID        *int64     `json:"objectId,omitempty"`
	AssignmentID    *int64     `json:"assignmentId,omitempty"`
	DeviceID        string     `json:"deviceId,omitempty"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	DurationSeconds *int64     `json:"durationSeconds,omitempty"`
	Comment         string     `json:"comment"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// StepTiming is a timed execution of a single step of a record.
type StepTiming struct {
	ID              int64      `json:"id"`
	RecordID        int64      `json:"recordId"`
	StepID          int64      `json:"stepId"`
	StartedAt       time.Time  `json:"startedAt"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationSeconds *int64     `json:"durationSeconds,omitempty"`
}

// StoredPhoto is photo metadata as held by the server; the blob is kept compressed.
type StoredPhoto struct {
	ID        int64     `json:"id"`
	RecordID  int64     `json:"recordId"`
	StepID    *int64    `json:"stepId,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	Digest    string    `json:"digest"`
	Size      int64     `json:"size"`
	TakenAt   time.Time `json:"takenAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// AnalyticsReport aggregates finished records over a time window.
type AnalyticsReport struct {
	From           time.Time      `json:"from"`
	To             time.Time      `json:"to"`
	TotalRecords   int            `json:"totalRecords"`
	TotalSeconds   int64          `json:"totalSeconds"`
	AverageSeconds float64        `json:"averageSeconds"`
	ByProcess      []ProcessTotal `json:"byProcess"`
	ByUser         []UserTotal    `json:"byUser"`
}

type ProcessTotal struct {
	ProcessID    int64  `json:"processId"`
	Name         string `json:"name"`
	Records      int    `json:"records"`
	TotalSeconds int64  `json:"totalSeconds"`
}

type UserTotal struct {
	UserID       int64  `json:"userId"`
	Username     string `json:"username"`
	Records      int    `json:"records"`
	TotalSeconds int64  `json:"totalSeconds"`
}
