package domain

import (
	"crypto/rand"
	"encoding/base64"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// TaskType identifies the kind of recurring job
type TaskType string

const (
	// TaskTypeSynchronization runs a periodic synchronization pass
	TaskTypeSynchronization TaskType = "synchronization"
)

// SynchronizationTaskID is the id of the single periodic synchronization schedule
const SynchronizationTaskID = "mailchimp-synchronization"

// ScheduledTask represents a recurring task configuration
type ScheduledTask struct {
	// ID is the unique identifier for this scheduled task
	ID string `json:"id"`

	// Name is a human-readable name for the task
	Name string `json:"name"`

	// Type selects the job the scheduler runs
	Type TaskType `json:"type"`

	// Interval is how often to run the task
	Interval time.Duration `json:"interval"`

	// Enabled indicates if the schedule is active
	Enabled bool `json:"enabled"`

	// LastRun is when the task was last triggered
	LastRun *time.Time `json:"last_run,omitempty"`

	// NextRun is when the task should next be triggered
	NextRun time.Time `json:"next_run"`

	// LastError contains the last error if the scheduled task failed
	LastError string `json:"last_error,omitempty"`
}

// NewScheduledTask creates a new scheduled task
func NewScheduledTask(id, name string, taskType TaskType, interval time.Duration) *ScheduledTask {
	return &ScheduledTask{
		ID:       id,
		Name:     name,
		Type:     taskType,
		Interval: interval,
		Enabled:  true,
		NextRun:  time.Now().Add(interval),
	}
}

// NewSynchronizationTask creates the periodic synchronization schedule from settings
func NewSynchronizationTask(settings *Settings) *ScheduledTask {
	task := NewScheduledTask(SynchronizationTaskID, "MailChimp synchronization",
		TaskTypeSynchronization, settings.SynchronizationPeriod())
	task.Enabled = settings.AutoSynchronization
	return task
}

// IsDue returns true if the scheduled task should be triggered
func (s *ScheduledTask) IsDue() bool {
	return s.Enabled && time.Now().After(s.NextRun)
}

// UpdateNextRun calculates the next run time after execution
func (s *ScheduledTask) UpdateNextRun() {
	now := time.Now()
	s.LastRun = &now
	s.NextRun = now.Add(s.Interval)
}

// Reschedule applies a new interval and enabled flag.
// It returns true if anything changed.
func (s *ScheduledTask) Reschedule(interval time.Duration, enabled bool) bool {
	if s.Interval == interval && s.Enabled == enabled {
		return false
	}
	s.Interval = interval
	s.Enabled = enabled
	base := time.Now()
	if s.LastRun != nil {
		base = *s.LastRun
	}
	s.NextRun = base.Add(interval)
	return true
}
