package models

import "time"

// TimeRecord is one timed execution of a process as kept by the client's local store.
type TimeRecord struct {
	ID              int64      `json:"id"`
	ClientID        string     `json:"clientId"`
	UserID          int64      `json:"userId"`
	ProcessID       int64      `json:"processId"`
	ObjectID        *int64     `json:"objectId,omitempty"`
	AssignmentID    *int64     `json:"assignmentId,omitempty"`
	StartTime       time.Time  `json:"startTime"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	DurationSeconds int64      `json:"durationSeconds"`
	Comment         string     `json:"comment"`
	Synced          bool       `json:"synced"`
}

// Active reports whether the record is still running.
func (r *TimeRecord) Active() bool {
	return r.EndTime == nil
}

// StepCompletion tracks a step of a record: opened at StartedAt, done once CompletedAt is set.
type StepCompletion struct {
	RecordID    int64      `json:"recordId"`
	StepID      int64      `json:"stepId"`
	StartedAt   time.Time  `json:"startedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Done reports whether the step has been marked complete.
func (s *StepCompletion) Done() bool {
	return s.CompletedAt != nil
}

// Photo is an image attached to a record and optionally to one of its steps.
type Photo struct {
	ID       int64     `json:"id"`
	RecordID int64     `json:"recordId"`
	StepID   *int64    `json:"stepId,omitempty"`
	Data     []byte    `json:"-"`
	Digest   string    `json:"digest,omitempty"`
	TakenAt  time.Time `json:"takenAt"`
}

// DurationSeconds returns the whole seconds between start and end, never negative.
func DurationSeconds(start, end time.Time) int64 {
	d := int64(end.Sub(start).Seconds())
	if d < 0 {
		return 0
	}
	return d
}
