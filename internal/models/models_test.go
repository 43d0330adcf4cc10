package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrelloCardToCard(t *testing.T) {
	labels := map[string]string{"l1": "Timer", "l2": "weekly", "l3": ""}
	tc := TrelloCard{
		ID:       "c1",
		Name:     "Water plants",
		Due:      "2024-01-01T02:00:00.000+02:00",
		Closed:   true,
		IDList:   "list",
		IDBoard:  "board",
		IDLabels: []string{"l1", "l2", "l3", "missing"},
	}

	card, err := tc.ToCard(labels)
	require.NoError(t, err)
	assert.Equal(t, []string{"timer", "weekly"}, card.Labels)
	require.NotNil(t, card.Due)
	assert.Equal(t, "2024-01-01T00:00:00Z", card.Due.Format(time.RFC3339))
	assert.True(t, card.HasLabel("TIMER"))

	tc.Due = "tomorrow"
	_, err = tc.ToCard(labels)
	assert.Error(t, err)
}

func TestErrorMessages(t *testing.T) {
	cause := errors.New("bad gateway")
	apiErr := &APIError{Op: "move card", CardID: "c1", StatusCode: 502, Err: cause}
	assert.Equal(t, "trello api: move card card=c1 status=502: bad gateway", apiErr.Error())
	assert.ErrorIs(t, apiErr, cause)

	amb := &AmbiguousCardError{CardID: "c1", CardName: "Run"}
	assert.Contains(t, amb.Error(), "no cadence label")

	cardErr := CardError{CardID: "c1", Action: ActionDueReset, Err: apiErr}
	var target *APIError
	assert.ErrorAs(t, cardErr, &target)
}
