package models

import (
	"fmt"
	"strings"
)

// APIError is a board call that failed after retries were exhausted.
type APIError struct {
	Op         string
	CardID     string
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("trello api: ")
	b.WriteString(e.Op)
	if e.CardID != "" {
		fmt.Fprintf(&b, " card=%s", e.CardID)
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " status=%d", e.StatusCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// ResolutionError means a named board resource could not be found.
type ResolutionError struct {
	Kind string
	Name string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// AmbiguousCardError flags a timer card without exactly one cadence label.
type AmbiguousCardError struct {
	CardID   string
	CardName string
	Matched  []string
}

func (e *AmbiguousCardError) Error() string {
	if len(e.Matched) == 0 {
		return fmt.Sprintf("timer card %q (%s) has no cadence label", e.CardName, e.CardID)
	}
	return fmt.Sprintf("timer card %q (%s) has %d cadence labels: %s",
		e.CardName, e.CardID, len(e.Matched), strings.Join(e.Matched, ", "))
}
