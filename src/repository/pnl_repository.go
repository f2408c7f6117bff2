package repository

import (
	"context"

	"gorm.io/gorm"

	"newsbacktest/src/database"
	"newsbacktest/src/model"
)

type PnLRepository struct {
	db *gorm.DB
}

func NewPnLRepository() *PnLRepository {
	return &PnLRepository{db: database.MainDB}
}

func NewPnLRepositoryWithDB(db *gorm.DB) *PnLRepository {
	return &PnLRepository{db: db}
}

// SaveBatch appends the day's records. PnL rows are append-only; nothing
// ever updates them after their date has closed out.
func (r *PnLRepository) SaveBatch(ctx context.Context, records []model.PnLRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *PnLRepository) ListByRun(ctx context.Context, runID string) ([]model.PnLRecord, error) {
	var records []model.PnLRecord
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("date ASC, scope ASC").
		Find(&records).Error
	return records, err
}
