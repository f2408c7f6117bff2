package backtest

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	stratcfg "newsbacktest/src/config"
	"newsbacktest/src/data"
	"newsbacktest/src/engine"
	"newsbacktest/src/model"
	"newsbacktest/src/repository"
)

// Calendar days of bar history loaded ahead of the run window; enough for
// the 20-day liquidity gate and any reasonable volatility window.
const barHistoryLookbackDays = 90

// Backtest loads data, runs the daily scheduler loop, and persists the
// resulting pnl and position records under a fresh run id.
type Backtest struct {
	Log    *logger.Entry
	DB     *gorm.DB
	Config *Config
}

func (b *Backtest) Start(ctx context.Context) error {
	if b.Config == nil {
		b.Config = GetConfig()
	}
	if b.Log == nil {
		b.Log = logger.WithField("cmd", "backtest")
	}

	strategy, err := stratcfg.Load(b.Config.StrategyPath)
	if err != nil {
		return err
	}

	provider, err := b.loadProvider(ctx, strategy)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	configJSON, err := json.Marshal(strategy)
	if err != nil {
		return err
	}

	name := b.Config.RunName
	if name == "" {
		name = strategy.Name
	}

	runRepo := repository.NewRunRepositoryWithDB(b.DB)
	run := &model.BacktestRun{
		ID:         runID,
		Name:       name,
		ConfigJSON: string(configJSON),
		StartDate:  model.Day(b.Config.StartDt),
		EndDate:    model.Day(b.Config.EndDt),
		Status:     model.RunStatusRunning,
	}
	if err := runRepo.Create(ctx, run); err != nil {
		return err
	}

	b.Log.WithFields(logger.Fields{
		"run_id": runID,
		"start":  run.StartDate.Format("2006-01-02"),
		"end":    run.EndDate.Format("2006-01-02"),
	}).Info("Starting backtest run")

	sink := &runSink{runID: runID}
	scheduler := engine.NewScheduler(strategy, provider, b.Log.WithField("run_id", runID))

	if err := scheduler.Run(ctx, run.StartDate, run.EndDate, sink); err != nil {
		b.recordFailure(ctx, runRepo, runID, err)
		return err
	}

	if err := repository.NewPnLRepositoryWithDB(b.DB).SaveBatch(ctx, sink.pnl); err != nil {
		b.recordFailure(ctx, runRepo, runID, err)
		return err
	}
	if err := repository.NewPositionRepositoryWithDB(b.DB).SaveBatch(ctx, sink.positions); err != nil {
		b.recordFailure(ctx, runRepo, runID, err)
		return err
	}

	if err := runRepo.MarkFinished(ctx, runID, model.RunStatusCompleted, ""); err != nil {
		return err
	}

	if b.Config.ExportDir != "" {
		if err := exportRun(b.Config.ExportDir, runID, sink.pnl, sink.positions); err != nil {
			b.Log.WithError(err).Error("CSV export failed")
			return err
		}
	}

	b.Log.WithFields(logger.Fields{
		"run_id":       runID,
		"trading_days": len(sink.pnl),
	}).Info("Backtest run completed")

	return nil
}

func (b *Backtest) loadProvider(ctx context.Context, strategy *stratcfg.StrategyConfig) (*data.Provider, error) {
	var (
		bars []model.Bar
		news []model.NewsItem
		err  error
	)

	if b.Config.BarsCSV != "" {
		bars, err = data.LoadBarsCSV(b.Config.BarsCSV)
	} else {
		// Reach back far enough that the liquidity and volatility windows
		// have history on the first trading day.
		lookback := b.Config.StartDt.AddDate(0, 0, -barHistoryLookbackDays)
		bars, err = repository.NewBarRepositoryWithDB(b.DB).ListRange(ctx, lookback, b.Config.EndDt)
	}
	if err != nil {
		return nil, err
	}

	if b.Config.NewsCSV != "" {
		news, err = data.LoadNewsCSV(b.Config.NewsCSV)
	} else {
		news, err = repository.NewNewsRepositoryWithDB(b.DB).ListRange(ctx, b.Config.StartDt, b.Config.EndDt)
	}
	if err != nil {
		return nil, err
	}

	normalizer := engine.NewNormalizer(strategy.ScoreMap, strategy.DoIntraday)
	signals := normalizer.Normalize(news)

	b.Log.WithFields(logger.Fields{
		"bars":    len(bars),
		"news":    len(news),
		"signals": len(signals),
	}).Info("Data loaded")

	return data.NewProvider(bars, signals), nil
}

func (b *Backtest) recordFailure(ctx context.Context, runRepo *repository.RunRepository, runID string, cause error) {
	if err := runRepo.MarkFinished(ctx, runID, model.RunStatusAborted, cause.Error()); err != nil {
		b.Log.WithError(err).Error("Failed to mark run aborted")
	}

	exc := &model.Exception{
		Service: "backtest",
		Module:  "scheduler",
		Method:  "Run",
		Message: cause.Error(),
		Level:   "error",
		Context: `{"run_id":"` + runID + `"}`,
	}
	if err := repository.NewExceptionRepositoryWithDB(b.DB).Create(ctx, exc); err != nil {
		b.Log.WithError(err).Error("Failed to persist exception")
	}
}

// runSink accumulates one pnl row and the day's position rows per committed
// trading day. Everything is written in one batch after the run finishes so
// an aborted run leaves no partial records behind.
type runSink struct {
	runID     string
	pnl       []model.PnLRecord
	positions []model.PositionRecord
}

func (s *runSink) RecordDay(result engine.DayResult) error {
	snap := result.Snapshot

	s.pnl = append(s.pnl, model.PnLRecord{
		RunID:         s.runID,
		Date:          snap.Date,
		Scope:         model.PnLScopePortfolio,
		NewTradePnL:   snap.NewTradePnL,
		PositionalPnL: snap.PositionalPnL,
		RealizedPnL:   snap.RealizedPnL,
		UnrealizedPnL: snap.UnrealizedPnL,
		CashBalance:   snap.CashBalance,
		Annotations:   strings.Join(result.Annotations, "; "),
	})

	for _, p := range snap.Positions {
		p.RunID = s.runID
		s.positions = append(s.positions, p)
	}

	return nil
}
