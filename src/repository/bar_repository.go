package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"newsbacktest/src/database"
	"newsbacktest/src/model"
)

type BarRepository struct {
	db *gorm.DB
}

func NewBarRepository() *BarRepository {
	return &BarRepository{db: database.MainDB}
}

func NewBarRepositoryWithDB(db *gorm.DB) *BarRepository {
	return &BarRepository{db: db}
}

// UpsertBatch writes bars, replacing any existing (symbol, date) rows so a
// re-download refreshes the table idempotently.
func (r *BarRepository) UpsertBatch(ctx context.Context, bars []model.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	for i := range bars {
		bars[i].Date = model.Day(bars[i].Date)
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "symbol"}, {Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"open", "high", "low", "close", "volume", "vwap", "n_transactions",
			}),
		}).
		Create(&bars).Error
	if err != nil {
		logger.WithError(err).WithField("count", len(bars)).Error("bar upsert failed")
	}
	return err
}

// ListRange loads every bar with a date inside [from, to], for all symbols,
// ordered for deterministic provider construction.
func (r *BarRepository) ListRange(ctx context.Context, from, to time.Time) ([]model.Bar, error) {
	var bars []model.Bar
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", model.Day(from), model.Day(to)).
		Order("symbol ASC, date ASC").
		Find(&bars).Error
	return bars, err
}
