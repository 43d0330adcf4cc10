package timers

import (
	"context"
	"time"

	"github.com/chxlky/trello-timers/internal/models"
)

// Board is the task-board capability the engine drives.
type Board interface {
	ListArchivedCards(ctx context.Context, scope models.Scope) ([]models.Card, error)
	ListActiveCards(ctx context.Context, scope models.Scope) ([]models.Card, error)
	GetCard(ctx context.Context, cardID string) (models.Card, error)
	Unarchive(ctx context.Context, cardID string) error
	MoveToList(ctx context.Context, cardID, listID string) error
	SetDue(ctx context.Context, cardID string, due time.Time) error
	Delete(ctx context.Context, cardID string) error
	Archive(ctx context.Context, cardID string) error
}

// Sink receives one event per successful mutation.
type Sink interface {
	Record(ctx context.Context, ev models.Event) error
}
