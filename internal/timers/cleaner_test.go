package timers

import (
	"context"
	"errors"
	"testing"

	"github.com/chxlky/trello-timers/internal/config"
	"github.com/chxlky/trello-timers/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeCards() []models.Card {
	return []models.Card{
		{ID: "clone", Name: "Workout – 1h", ListID: targetList},
		{ID: "timer", Name: "Workout – 1h", Labels: []string{"timer", "daily"}, ListID: targetList},
		{ID: "ritual", Name: "Workout", ListID: targetList},
		{ID: "closed", Name: "Read - 1h", Closed: true, ListID: targetList},
	}
}

func TestCleanDeletesClones(t *testing.T) {
	cfg := testConfig(t)
	cards := activeCards()
	board := newFakeBoard(cards...)

	var res models.Result
	n := newTestEngine(t, board, cfg, ts(t, "2024-01-02T10:00:00Z"), nil).Clean(context.Background(), cards, &res)

	assert.Equal(t, 1, n)
	assert.Equal(t, 1, res.CleanedClones)
	assert.Equal(t, []string{"delete:clone"}, board.mutations())

	_, ok := board.card("timer")
	assert.True(t, ok, "timer-labelled card must survive")
}

func TestCleanArchivePolicy(t *testing.T) {
	cfg := testConfig(t)
	cfg.CleanupPolicy = config.CleanupArchive
	cards := activeCards()
	board := newFakeBoard(cards...)

	var res models.Result
	newTestEngine(t, board, cfg, ts(t, "2024-01-02T10:00:00Z"), nil).Clean(context.Background(), cards, &res)

	assert.Equal(t, 1, res.CleanedClones)
	assert.Equal(t, []string{"archive:clone"}, board.mutations())
	clone, ok := board.card("clone")
	require.True(t, ok)
	assert.True(t, clone.Closed)
}

func TestCleanRecordsFailures(t *testing.T) {
	cfg := testConfig(t)
	cards := []models.Card{
		{ID: "a", Name: "Yoga – 1h", ListID: targetList},
		{ID: "b", Name: "Piano – 1h", ListID: targetList},
	}
	board := newFakeBoard(cards...)
	board.failures["delete:a"] = errors.New("forbidden")

	var res models.Result
	n := newTestEngine(t, board, cfg, ts(t, "2024-01-02T10:00:00Z"), nil).Clean(context.Background(), cards, &res)

	assert.Equal(t, 1, n)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "a", res.Errors[0].CardID)
	assert.Equal(t, models.ActionDelete, res.Errors[0].Action)
}

func TestRunCleansTargetList(t *testing.T) {
	cfg := testConfig(t)
	board := newFakeBoard(
		models.Card{ID: "clone", Name: "Workout – 1h", ListID: targetList},
		models.Card{ID: "elsewhere", Name: "Workout – 1h", ListID: doneList},
	)

	res, err := newTestEngine(t, board, cfg, ts(t, "2024-01-02T10:00:00Z"), nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, res.CleanedClones)
	_, ok := board.card("elsewhere")
	assert.True(t, ok)
}
