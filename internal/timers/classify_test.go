package timers

import (
	"testing"

	"github.com/chxlky/trello-timers/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cfg := testConfig(t)

	tests := []struct {
		name    string
		card    models.Card
		kind    models.Kind
		cadence string
		matched []string
	}{
		{
			name:    "timer with one cadence",
			card:    models.Card{Name: "Water plants", Labels: []string{"timer", "weekly"}},
			kind:    models.KindTimer,
			cadence: "weekly",
		},
		{
			name:    "label case does not matter",
			card:    models.Card{Name: "Stretch", Labels: []string{"Timer", "Daily"}},
			kind:    models.KindTimer,
			cadence: "daily",
		},
		{
			name: "timer without cadence is unrecognized",
			card: models.Card{Name: "Floss", Labels: []string{"timer", "health"}},
			kind: models.KindUnrecognized,
		},
		{
			name:    "timer with two cadences is unrecognized",
			card:    models.Card{Name: "Run", Labels: []string{"Daily", "weekly", "timer"}},
			kind:    models.KindUnrecognized,
			matched: []string{"daily", "weekly"},
		},
		{
			name:    "same cadence label twice counts once",
			card:    models.Card{Name: "Vitamins", Labels: []string{"timer", "daily", "Daily"}},
			kind:    models.KindTimer,
			cadence: "daily",
		},
		{
			name: "clone suffix with en dash",
			card: models.Card{Name: "Workout – 1h"},
			kind: models.KindDuplicateClone,
		},
		{
			name: "clone suffix with hyphen, odd case and spacing",
			card: models.Card{Name: "Workout-1H  "},
			kind: models.KindDuplicateClone,
		},
		{
			name:    "timer label beats clone suffix",
			card:    models.Card{Name: "Workout – 1h", Labels: []string{"timer", "daily"}},
			kind:    models.KindTimer,
			cadence: "daily",
		},
		{
			name: "suffix must be trailing",
			card: models.Card{Name: "Workout – 1h later"},
			kind: models.KindRitual,
		},
		{
			name: "plain ritual card",
			card: models.Card{Name: "Morning pages", Labels: []string{"ritual"}},
			kind: models.KindRitual,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.card, cfg)
			assert.Equal(t, tt.kind, got.Kind)
			if tt.kind == models.KindTimer {
				assert.Equal(t, tt.cadence, got.Cadence.Name)
				assert.Equal(t, cfg.Cadences[tt.cadence].Days, got.Cadence.Days)
			}
			if tt.matched != nil {
				assert.Equal(t, tt.matched, got.Matched)
			}
		})
	}
}

func TestClassifyCustomSuffix(t *testing.T) {
	cfg := testConfig(t)
	cfg.CloneSuffix = " - 30m"

	assert.Equal(t, models.KindDuplicateClone, Classify(models.Card{Name: "Read – 30M"}, cfg).Kind)
	assert.Equal(t, models.KindRitual, Classify(models.Card{Name: "Read – 1h"}, cfg).Kind)
}
