package metrics

import (
	"context"
	"errors"

	"github.com/chxlky/trello-timers/internal/models"
)

type Sink interface {
	Record(ctx context.Context, ev models.Event) error
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Record(ctx context.Context, ev models.Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EventStore is the persistence a StoreSink writes through.
type EventStore interface {
	RecordEvent(ctx context.Context, ev models.Event) error
}

type StoreSink struct {
	Store EventStore
}

func (s StoreSink) Record(ctx context.Context, ev models.Event) error {
	return s.Store.RecordEvent(ctx, ev)
}
