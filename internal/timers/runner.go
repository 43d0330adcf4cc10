package timers

import (
	"context"
	"errors"
	"time"

	"github.com/chxlky/trello-timers/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrPassInProgress is returned by TryRun while another pass holds the gate.
var ErrPassInProgress = errors.New("a reconciliation pass is already running")

type RunRecorder interface {
	SaveRun(ctx context.Context, run *models.RunRecord) error
}

// Runner executes passes and records each one. Passes started through the
// same Runner never overlap; separate processes may.
type Runner struct {
	Engine *Engine
	Runs   RunRecorder
	Logger *zap.Logger

	gate chan struct{}
}

func NewRunner(engine *Engine, runs RunRecorder, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{Engine: engine, Runs: runs, Logger: logger, gate: make(chan struct{}, 1)}
}

// Run waits for the gate, then performs one pass.
func (r *Runner) Run(ctx context.Context) (models.Result, error) {
	select {
	case r.gate <- struct{}{}:
	case <-ctx.Done():
		return models.Result{}, ctx.Err()
	}
	defer func() { <-r.gate }()
	return r.pass(ctx)
}

// TryRun performs one pass unless one is already running.
func (r *Runner) TryRun(ctx context.Context) (models.Result, error) {
	select {
	case r.gate <- struct{}{}:
	default:
		return models.Result{}, ErrPassInProgress
	}
	defer func() { <-r.gate }()
	return r.pass(ctx)
}

func (r *Runner) pass(ctx context.Context) (models.Result, error) {
	record := &models.RunRecord{ID: uuid.NewString(), StartedAt: time.Now()}
	log := r.Logger.With(zap.String("runID", record.ID))
	log.Debug("Reconciliation pass started")

	res, err := r.Engine.Run(ctx)

	record.FinishedAt = time.Now()
	record.Recovered = res.Recovered
	record.DueReset = res.DueReset
	record.Bumped = res.Bumped
	record.Skipped = res.Skipped
	record.CleanedClones = res.CleanedClones
	record.Failures = len(res.Errors)
	if err != nil {
		record.Error = err.Error()
		log.Error("Reconciliation pass failed", zap.Error(err))
	} else {
		for _, cardErr := range res.Errors {
			log.Warn("Card mutation failed", zap.String("cardID", cardErr.CardID), zap.String("action", string(cardErr.Action)), zap.Error(cardErr.Err))
		}
		log.Info(res.Summary(), zap.Int("failures", len(res.Errors)), zap.Duration("took", record.FinishedAt.Sub(record.StartedAt)))
	}

	if r.Runs != nil {
		if saveErr := r.Runs.SaveRun(context.WithoutCancel(ctx), record); saveErr != nil {
			log.Warn("Failed to save run record", zap.Error(saveErr))
		}
	}
	return res, err
}
