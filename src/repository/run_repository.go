package repository

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"newsbacktest/src/database"
	"newsbacktest/src/model"
)

type RunRepository struct {
	db *gorm.DB
}

// NewRunRepository creates a repository bound to the package database.
func NewRunRepository() *RunRepository {
	return &RunRepository{db: database.MainDB}
}

func NewRunRepositoryWithDB(db *gorm.DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, run *model.BacktestRun) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*model.BacktestRun, error) {
	var run model.BacktestRun
	if err := r.db.WithContext(ctx).First(&run, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *RunRepository) List(ctx context.Context, limit int) ([]model.BacktestRun, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []model.BacktestRun
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

// MarkFinished stamps a terminal status on the run. errMsg is stored only
// for aborted runs.
func (r *RunRepository) MarkFinished(ctx context.Context, id, status, errMsg string) error {
	now := time.Now().UTC()
	updates := map[string]any{
		"status":      status,
		"finished_at": &now,
	}
	if errMsg != "" {
		updates["error"] = errMsg
	}

	res := r.db.WithContext(ctx).
		Model(&model.BacktestRun{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		logger.WithField("run_id", id).Warn("MarkFinished matched no run")
	}
	return nil
}
