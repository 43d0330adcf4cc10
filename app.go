package main

import (
	"context"
	"fmt"

	"github.com/chxlky/trello-timers/database"
	"github.com/chxlky/trello-timers/integrations"
	"github.com/chxlky/trello-timers/internal/config"
	"github.com/chxlky/trello-timers/internal/metrics"
	"github.com/chxlky/trello-timers/internal/timers"
	"go.uber.org/zap"
)

type app struct {
	cfg    config.Config
	logger *zap.Logger
	store  *database.Store
	runner *timers.Runner
	close  []func() error
}

func (a *app) Close() {
	for i := len(a.close) - 1; i >= 0; i-- {
		if err := a.close[i](); err != nil {
			a.logger.Error("Error during cleanup", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

// setup validates everything a pass needs. Any error here is fatal and
// happens before the first board mutation.
func setup(ctx context.Context, cfgPath string) (*app, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.Verbose)
	zap.ReplaceGlobals(logger)
	a := &app{cfg: cfg, logger: logger}

	db, err := database.Init(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access database handle: %w", err)
	}
	a.close = append(a.close, sqlDB.Close)
	a.store = database.NewStore(db)

	trelloClient := integrations.NewTrelloClient(cfg.Trello.Key, cfg.Trello.Token, cfg.Retry, cfg.Trello.RateLimit, logger)
	scope, err := trelloClient.ResolveScope(ctx, cfg.Trello.BoardID, cfg.Trello.ListID, cfg.ListName)
	if err != nil {
		a.Close()
		return nil, err
	}

	sinks := metrics.Multi{metrics.StoreSink{Store: a.store}}
	if cfg.Metrics.Enable {
		csvSink, err := metrics.NewCSVSink(cfg.Metrics.CSVPath, cfg.Location)
		if err != nil {
			a.Close()
			return nil, &config.ConfigError{Key: "metrics.csv_path", Msg: "unable to prepare metrics file", Err: err}
		}
		sinks = append(sinks, csvSink)
	}
	if cfg.Calendar.Enable {
		calClient, err := integrations.NewCalendarClient(ctx, cfg.Calendar.ServiceAccount, cfg.Calendar.CalendarID, cfg.Timezone, a.store, logger)
		if err != nil {
			a.Close()
			return nil, &config.ConfigError{Key: "google.service_account", Msg: "failed to initialise Google Calendar client", Err: err}
		}
		logger.Info("Successfully authenticated with Google Calendar API.")
		sinks = append(sinks, calClient)
	}

	engine := timers.NewEngine(trelloClient, scope, cfg, logger, sinks)
	a.runner = timers.NewRunner(engine, a.store, logger)
	return a, nil
}
