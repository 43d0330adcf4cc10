package timers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chxlky/trello-timers/internal/config"
	"github.com/chxlky/trello-timers/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Engine runs reconciliation passes against a Board.
type Engine struct {
	Board   Board
	Scope   models.Scope
	Config  config.Config
	Logger  *zap.Logger
	Sink    Sink
	Workers int
	Now     func() time.Time

	classifier *Classifier
}

func NewEngine(board Board, scope models.Scope, cfg config.Config, logger *zap.Logger, sink Sink) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		Board:      board,
		Scope:      scope,
		Config:     cfg,
		Logger:     logger,
		Sink:       sink,
		Workers:    cfg.Trello.Workers,
		Now:        time.Now,
		classifier: NewClassifier(cfg),
	}
}

// Run performs one pass: revive due archived timer cards, then clean
// duplicate clones from the target list. Per-card failures end up in
// Result.Errors. Only a failed archived listing is returned, since nothing
// has been mutated at that point; a failed active listing skips cleaning.
func (e *Engine) Run(ctx context.Context) (models.Result, error) {
	var res models.Result
	now := e.Now()

	archived, err := e.Board.ListArchivedCards(ctx, e.Scope)
	if err != nil {
		return res, fmt.Errorf("failed to list archived cards: %w", err)
	}
	e.Logger.Debug("Fetched archived cards", zap.Int("count", len(archived)))
	e.Reconcile(ctx, archived, now, &res)

	active, err := e.Board.ListActiveCards(ctx, e.Scope)
	if err != nil {
		e.Logger.Warn("Failed to list active cards, skipping duplicate cleanup", zap.Error(err))
		res.Errors = append(res.Errors, models.CardError{Action: models.ActionListActive, Err: err})
		return res, nil
	}
	e.Logger.Debug("Fetched active cards", zap.Int("count", len(active)))
	e.Clean(ctx, active, &res)

	return res, nil
}

// Reconcile processes archived cards, adding to res.
func (e *Engine) Reconcile(ctx context.Context, cards []models.Card, now time.Time, res *models.Result) {
	acc := &accumulator{res: res}
	classifier := e.getClassifier()
	e.forEach(ctx, cards, func(card models.Card) {
		e.reconcileCard(ctx, classifier.Classify(card), card, now, acc)
	})
}

func (e *Engine) reconcileCard(ctx context.Context, cls models.Classification, card models.Card, now time.Time, acc *accumulator) {
	log := e.Logger.With(zap.String("cardID", card.ID), zap.String("card", card.Name))

	switch cls.Kind {
	case models.KindRitual, models.KindDuplicateClone:
		return
	case models.KindUnrecognized:
		amb := &models.AmbiguousCardError{CardID: card.ID, CardName: card.Name, Matched: cls.Matched}
		log.Warn("Skipping timer card without exactly one cadence label", zap.Error(amb))
		acc.add(func(r *models.Result) { r.Skipped++ })
		return
	case models.KindTimer:
		if !IsDue(card.Due, now) {
			if card.Due == nil {
				log.Debug("Timer card has no due date; set one to start its cycle")
			} else {
				log.Debug("Timer card not due yet", zap.Time("due", *card.Due))
			}
			acc.add(func(r *models.Result) { r.Skipped++ })
			return
		}
		e.revive(ctx, card, cls.Cadence, now, acc, log)
	default:
		panic(fmt.Sprintf("timers: unhandled classification %v", cls.Kind))
	}
}

// revive re-reads the card and applies unarchive, move and set-due in that
// order, skipping steps the board already reflects. The first failing step
// abandons the rest for this card.
func (e *Engine) revive(ctx context.Context, card models.Card, cad models.Cadence, now time.Time, acc *accumulator, log *zap.Logger) {
	current, err := e.Board.GetCard(ctx, card.ID)
	if err != nil {
		log.Warn("Failed to refresh card before revival", zap.Error(err))
		acc.fail(card.ID, models.ActionRefresh, err)
		return
	}
	if !IsDue(current.Due, now) {
		log.Debug("Card already rescheduled by another pass")
		acc.add(func(r *models.Result) { r.Skipped++ })
		return
	}

	if current.Closed {
		if err := e.Board.Unarchive(ctx, card.ID); err != nil {
			log.Warn("Failed to unarchive card", zap.Error(err))
			acc.fail(card.ID, models.ActionUnarchive, err)
			return
		}
		acc.add(func(r *models.Result) { r.Recovered++ })
		e.emit(ctx, current, cad, models.ActionUnarchive, nil)
	}

	if current.ListID != e.Scope.ListID {
		if err := e.Board.MoveToList(ctx, card.ID, e.Scope.ListID); err != nil {
			log.Warn("Failed to move card to target list", zap.Error(err))
			acc.fail(card.ID, models.ActionMove, err)
			return
		}
		acc.add(func(r *models.Result) { r.Bumped++ })
		e.emit(ctx, current, cad, models.ActionMove, nil)
	}

	anchor := now
	if e.Config.Anchor == config.AnchorDue && current.Due != nil {
		anchor = *current.Due
	}
	next := NextDueFrom(anchor, now, cad.Days, e.Config.TimerHour, e.Config.Location)
	if err := e.Board.SetDue(ctx, card.ID, next); err != nil {
		log.Warn("Failed to set next due date", zap.Error(err))
		acc.fail(card.ID, models.ActionDueReset, err)
		return
	}
	acc.add(func(r *models.Result) { r.DueReset++ })
	e.emit(ctx, current, cad, models.ActionDueReset, &next)

	log.Info("Revived timer card",
		zap.String("cadence", cad.Name),
		zap.Time("nextDue", next),
	)
}

func (e *Engine) emit(ctx context.Context, card models.Card, cad models.Cadence, action models.Action, due *time.Time) {
	if e.Sink == nil {
		return
	}
	ev := models.Event{
		Timestamp: e.Now(),
		CardID:    card.ID,
		CardName:  card.Name,
		CardURL:   card.ShortURL,
		Action:    action,
		Cadence:   cad.Name,
		Category:  cad.Category,
		ListID:    e.Scope.ListID,
		Due:       due,
	}
	if err := e.Sink.Record(ctx, ev); err != nil {
		e.Logger.Warn("Failed to record metrics event",
			zap.String("cardID", card.ID),
			zap.String("action", string(action)),
			zap.Error(err),
		)
	}
}

func (e *Engine) getClassifier() *Classifier {
	if e.classifier == nil {
		return NewClassifier(e.Config)
	}
	return e.classifier
}

// forEach runs fn per card with at most Workers in flight.
func (e *Engine) forEach(ctx context.Context, cards []models.Card, fn func(models.Card)) {
	workers := e.Workers
	if workers < 1 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for _, card := range cards {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			fn(card)
			return nil
		})
	}
	_ = g.Wait()
}

type accumulator struct {
	mu  sync.Mutex
	res *models.Result
}

func (a *accumulator) add(fn func(*models.Result)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(a.res)
}

func (a *accumulator) fail(cardID string, action models.Action, err error) {
	a.add(func(r *models.Result) {
		r.Errors = append(r.Errors, models.CardError{CardID: cardID, Action: action, Err: err})
	})
}
