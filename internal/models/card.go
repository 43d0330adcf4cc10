package models

import (
	"strings"
	"time"
)

// Card is the board-agnostic view of a Trello card used by the reconciler.
// Labels holds lower-cased label names.
type Card struct {
	ID       string
	Name     string
	Labels   []string
	Closed   bool
	Due      *time.Time
	ListID   string
	BoardID  string
	ShortURL string
}

func (c Card) HasLabel(name string) bool {
	for _, l := range c.Labels {
		if strings.EqualFold(l, name) {
			return true
		}
	}
	return false
}

// Cadence is a named recurrence interval in whole days.
type Cadence struct {
	Name     string
	Days     int
	Category string
}

// TrackedCard is the persisted state of a timer card the engine has touched.
type TrackedCard struct {
	ID            string `gorm:"primaryKey"`
	Name          string
	DueDate       *time.Time
	URL           string
	BoardID       string
	Cadence       string
	LastRevivedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	EventID       string // Google Calendar Event ID
}

// Scope identifies where a pass reads cards: archived cards are read
// board-wide, active cards from the target list.
type Scope struct {
	BoardID string
	ListID  string
}
