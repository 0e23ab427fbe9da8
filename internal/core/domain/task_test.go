package domain

import (
	"testing"
	"time"
)

func TestGenerateID(t *testing.T) {
	id1 := GenerateID()
	id2 := GenerateID()

	if id1 == "" || id2 == "" {
		t.Error("expected non-empty ID")
	}
	if id1 == id2 {
		t.Error("expected unique IDs")
	}
	// Base64 URL encoding of 16 bytes = 22 chars
	if len(id1) != 22 {
		t.Errorf("expected ID length 22, got %d", len(id1))
	}
}

func TestScheduledTask_IsDue(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		enabled  bool
		nextRun  time.Time
		expected bool
	}{
		{"enabled and past", true, past, true},
		{"enabled and future", true, future, false},
		{"disabled and past", false, past, false},
		{"disabled and future", false, future, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduled := &ScheduledTask{Enabled: tt.enabled, NextRun: tt.nextRun}
			if got := scheduled.IsDue(); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestScheduledTask_UpdateNextRun(t *testing.T) {
	interval := 30 * time.Minute
	scheduled := &ScheduledTask{Interval: interval}

	before := time.Now()
	scheduled.UpdateNextRun()
	after := time.Now()

	if scheduled.LastRun == nil {
		t.Fatal("expected LastRun to be set")
	}
	if scheduled.LastRun.Before(before) || scheduled.LastRun.After(after) {
		t.Error("expected LastRun to be around now")
	}
	if expected := scheduled.LastRun.Add(interval); scheduled.NextRun != expected {
		t.Errorf("expected NextRun %v, got %v", expected, scheduled.NextRun)
	}
}

func TestNewSynchronizationTask(t *testing.T) {
	settings := DefaultSettings()
	settings.SynchronizationPeriodH = 6
	settings.AutoSynchronization = false

	task := NewSynchronizationTask(settings)

	if task.ID != SynchronizationTaskID {
		t.Errorf("expected ID %s, got %s", SynchronizationTaskID, task.ID)
	}
	if task.Type != TaskTypeSynchronization {
		t.Errorf("expected type %s, got %s", TaskTypeSynchronization, task.Type)
	}
	if task.Interval != 6*time.Hour {
		t.Errorf("expected interval 6h, got %v", task.Interval)
	}
	if task.Enabled {
		t.Error("expected task to follow AutoSynchronization=false")
	}
}

func TestScheduledTask_Reschedule(t *testing.T) {
	lastRun := time.Now().Add(-time.Hour)
	task := &ScheduledTask{Interval: 2 * time.Hour, Enabled: true, LastRun: &lastRun}

	if task.Reschedule(2*time.Hour, true) {
		t.Error("expected no change for identical schedule")
	}
	if !task.Reschedule(3*time.Hour, true) {
		t.Fatal("expected change for new interval")
	}
	if !task.NextRun.Equal(lastRun.Add(3 * time.Hour)) {
		t.Errorf("expected next run relative to last run, got %v", task.NextRun)
	}
	if !task.Reschedule(3*time.Hour, false) || task.Enabled {
		t.Error("expected task to be disabled")
	}
}
