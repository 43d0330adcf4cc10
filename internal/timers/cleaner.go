package timers

import (
	"context"

	"github.com/chxlky/trello-timers/internal/config"
	"github.com/chxlky/trello-timers/internal/models"
	"go.uber.org/zap"
)

// Clean removes duplicate clones among the open cards, deleting or
// archiving them per the cleanup policy, and returns how many went away.
// Cards carrying the timer label are never touched.
func (e *Engine) Clean(ctx context.Context, active []models.Card, res *models.Result) int {
	acc := &accumulator{res: res}
	cleaned := 0
	classifier := e.getClassifier()

	e.forEach(ctx, active, func(card models.Card) {
		if card.Closed {
			return
		}
		if classifier.Classify(card).Kind != models.KindDuplicateClone {
			return
		}

		action := models.ActionDelete
		var err error
		if e.Config.CleanupPolicy == config.CleanupArchive {
			action = models.ActionArchive
			err = e.Board.Archive(ctx, card.ID)
		} else {
			err = e.Board.Delete(ctx, card.ID)
		}
		if err != nil {
			e.Logger.Warn("Failed to remove duplicate clone",
				zap.String("cardID", card.ID),
				zap.String("card", card.Name),
				zap.Error(err),
			)
			acc.fail(card.ID, action, err)
			return
		}

		acc.add(func(r *models.Result) {
			r.CleanedClones++
			cleaned++
		})
		e.emit(ctx, card, models.Cadence{}, action, nil)
		e.Logger.Info("Removed duplicate clone",
			zap.String("cardID", card.ID),
			zap.String("card", card.Name),
			zap.String("policy", string(e.Config.CleanupPolicy)),
		)
	})

	return cleaned
}
