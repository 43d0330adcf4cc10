package models

import (
	"fmt"
	"time"
)

// Action names a single board mutation.
type Action string

const (
	ActionUnarchive Action = "unarchive"
	ActionMove      Action = "move"
	ActionDueReset  Action = "due_reset"
	ActionDelete    Action = "delete"
	ActionArchive   Action = "archive"
	ActionRefresh   Action = "refresh"

	// ActionListActive marks a pass-level failure to list the target list.
	ActionListActive Action = "list_active"
)

// CardError records a failure that did not abort the pass. CardID is empty
// for pass-level failures.
type CardError struct {
	CardID string
	Action Action
	Err    error
}

func (e CardError) Error() string {
	if e.CardID == "" {
		return fmt.Sprintf("%s: %v", e.Action, e.Err)
	}
	if e.Action == "" {
		return fmt.Sprintf("card %s: %v", e.CardID, e.Err)
	}
	return fmt.Sprintf("card %s: %s: %v", e.CardID, e.Action, e.Err)
}

func (e CardError) Unwrap() error { return e.Err }

// Result accumulates the counters of one reconciliation pass.
type Result struct {
	Recovered     int
	DueReset      int
	Bumped        int
	Skipped       int
	CleanedClones int
	Errors        []CardError
}

func (r Result) Summary() string {
	return fmt.Sprintf("Timers OK — recovered:%d, dueReset:%d, bumped:%d, skipped:%d, cleanedClones:%d",
		r.Recovered, r.DueReset, r.Bumped, r.Skipped, r.CleanedClones)
}

// Event is emitted to metrics sinks once per successful mutation.
type Event struct {
	Timestamp time.Time
	CardID    string
	CardName  string
	CardURL   string
	Action    Action
	Cadence   string
	Category  string
	ListID    string
	Due       *time.Time
}

// RunRecord is the persisted outcome of one pass.
type RunRecord struct {
	ID            string `gorm:"primaryKey"`
	StartedAt     time.Time
	FinishedAt    time.Time
	Recovered     int
	DueReset      int
	Bumped        int
	Skipped       int
	CleanedClones int
	Failures      int
	Error         string
}

// EventRecord is the persisted form of an Event.
type EventRecord struct {
	ID        uint `gorm:"primaryKey"`
	Timestamp time.Time
	CardID    string `gorm:"index"`
	CardName  string
	Action    string
	Cadence   string
	Category  string
	ListID    string
	Due       *time.Time
}
