package metrics

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chxlky/trello-timers/internal/models"
)

var csvHeader = []string{"timestamp_local", "card_id", "task_name", "action", "cadence_label", "category", "list_id", "next_due"}

// CSVSink appends one row per mutation to a CSV file, timestamps rendered
// in loc.
type CSVSink struct {
	path string
	loc  *time.Location
	mu   sync.Mutex
}

// NewCSVSink creates the file with its header if it does not exist yet.
func NewCSVSink(path string, loc *time.Location) (*CSVSink, error) {
	if loc == nil {
		loc = time.UTC
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create metrics directory: %w", err)
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		f, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics file: %w", err)
		}
		w := csv.NewWriter(f)
		_ = w.Write(csvHeader)
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write metrics header: %w", err)
		}
		if err := f.Close(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat metrics file: %w", err)
	}

	return &CSVSink{path: path, loc: loc}, nil
}

func (s *CSVSink) Record(_ context.Context, ev models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()

	nextDue := ""
	if ev.Due != nil {
		nextDue = ev.Due.UTC().Format(time.RFC3339)
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{
		ev.Timestamp.In(s.loc).Format(time.RFC3339),
		ev.CardID,
		ev.CardName,
		string(ev.Action),
		ev.Cadence,
		ev.Category,
		ev.ListID,
		nextDue,
	})
	w.Flush()
	return w.Error()
}
