package timers

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/chxlky/trello-timers/internal/config"
	"github.com/chxlky/trello-timers/internal/models"
	"github.com/stretchr/testify/require"
)

const (
	targetList = "list-daily"
	doneList   = "list-done"
	boardID    = "board-1"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Bucharest")
	require.NoError(t, err)

	return config.Config{
		Timezone:   "Europe/Bucharest",
		Location:   loc,
		ListName:   "Daily Log",
		TimerLabel: "timer",
		Cadences: map[string]models.Cadence{
			"daily":  {Name: "daily", Days: 1, Category: "health"},
			"weekly": {Name: "weekly", Days: 7, Category: "home"},
			"3d":     {Name: "3d", Days: 3, Category: "uncategorized"},
		},
		TimerHour:     config.TimeOfDay{Hour: 3},
		Anchor:        config.AnchorNow,
		CloneSuffix:   " – 1h",
		CleanupPolicy: config.CleanupDelete,
		Trello:        config.TrelloConfig{Workers: 4},
	}
}

func ts(t *testing.T, s string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return v
}

func tsp(t *testing.T, s string) *time.Time {
	v := ts(t, s)
	return &v
}

// fakeBoard is an in-memory Board. failures maps "action:cardID" to the
// error that call returns.
type fakeBoard struct {
	mu        sync.Mutex
	cards     map[string]*models.Card
	calls     []string
	failures  map[string]error
	listErr   error
	activeErr error // fails ListActiveCards only
}

func newFakeBoard(cards ...models.Card) *fakeBoard {
	b := &fakeBoard{
		cards:    make(map[string]*models.Card),
		failures: make(map[string]error),
	}
	for _, c := range cards {
		if c.BoardID == "" {
			c.BoardID = boardID
		}
		b.cards[c.ID] = &c
	}
	return b
}

func (b *fakeBoard) record(action, cardID string) error {
	b.calls = append(b.calls, action+":"+cardID)
	return b.failures[action+":"+cardID]
}

func (b *fakeBoard) sorted(keep func(models.Card) bool) []models.Card {
	var out []models.Card
	for _, c := range b.cards {
		if keep(*c) {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (b *fakeBoard) ListArchivedCards(_ context.Context, scope models.Scope) ([]models.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	return b.sorted(func(c models.Card) bool { return c.Closed && c.BoardID == scope.BoardID }), nil
}

func (b *fakeBoard) ListActiveCards(_ context.Context, scope models.Scope) ([]models.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listErr != nil {
		return nil, b.listErr
	}
	if b.activeErr != nil {
		return nil, b.activeErr
	}
	return b.sorted(func(c models.Card) bool { return !c.Closed && c.ListID == scope.ListID }), nil
}

func (b *fakeBoard) GetCard(_ context.Context, cardID string) (models.Card, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("get", cardID); err != nil {
		return models.Card{}, err
	}
	c, ok := b.cards[cardID]
	if !ok {
		return models.Card{}, fmt.Errorf("card %s not found", cardID)
	}
	return *c, nil
}

func (b *fakeBoard) mutate(action, cardID string, fn func(*models.Card)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record(action, cardID); err != nil {
		return err
	}
	c, ok := b.cards[cardID]
	if !ok {
		return fmt.Errorf("card %s not found", cardID)
	}
	fn(c)
	return nil
}

func (b *fakeBoard) Unarchive(_ context.Context, cardID string) error {
	return b.mutate("unarchive", cardID, func(c *models.Card) { c.Closed = false })
}

func (b *fakeBoard) Archive(_ context.Context, cardID string) error {
	return b.mutate("archive", cardID, func(c *models.Card) { c.Closed = true })
}

func (b *fakeBoard) MoveToList(_ context.Context, cardID, listID string) error {
	return b.mutate("move", cardID, func(c *models.Card) { c.ListID = listID })
}

func (b *fakeBoard) SetDue(_ context.Context, cardID string, due time.Time) error {
	return b.mutate("due", cardID, func(c *models.Card) { c.Due = &due })
}

func (b *fakeBoard) Delete(_ context.Context, cardID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.record("delete", cardID); err != nil {
		return err
	}
	delete(b.cards, cardID)
	return nil
}

func (b *fakeBoard) card(id string) (models.Card, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c, ok := b.cards[id]
	if !ok {
		return models.Card{}, false
	}
	return *c, true
}

func (b *fakeBoard) mutations() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []string
	for _, c := range b.calls {
		if len(c) < 4 || c[:4] != "get:" {
			out = append(out, c)
		}
	}
	return out
}

type recordingSink struct {
	mu     sync.Mutex
	events []models.Event
	err    error
}

func (s *recordingSink) Record(_ context.Context, ev models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return s.err
}

func newTestEngine(t *testing.T, board Board, cfg config.Config, now time.Time, sink Sink) *Engine {
	t.Helper()
	e := NewEngine(board, models.Scope{BoardID: boardID, ListID: targetList}, cfg, nil, sink)
	e.Now = func() time.Time { return now }
	return e
}
