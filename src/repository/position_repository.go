package repository

import (
	"context"

	"gorm.io/gorm"

	"newsbacktest/src/database"
	"newsbacktest/src/model"
)

type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepository() *PositionRepository {
	return &PositionRepository{db: database.MainDB}
}

func NewPositionRepositoryWithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

func (r *PositionRepository) SaveBatch(ctx context.Context, records []model.PositionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&records).Error
}

func (r *PositionRepository) ListByRun(ctx context.Context, runID string) ([]model.PositionRecord, error) {
	var records []model.PositionRecord
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("date ASC, symbol ASC").
		Find(&records).Error
	return records, err
}
