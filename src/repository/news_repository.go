package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"newsbacktest/src/database"
	"newsbacktest/src/model"
)

type NewsRepository struct {
	db *gorm.DB
}

func NewNewsRepository() *NewsRepository {
	return &NewsRepository{db: database.MainDB}
}

func NewNewsRepositoryWithDB(db *gorm.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

func (r *NewsRepository) SaveBatch(ctx context.Context, items []model.NewsItem) error {
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].Date = model.Day(items[i].Date)
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// ListRange loads classified releases with trading dates inside [from, to],
// in insertion order so last-write-wins aggregation stays stable.
func (r *NewsRepository) ListRange(ctx context.Context, from, to time.Time) ([]model.NewsItem, error) {
	var items []model.NewsItem
	err := r.db.WithContext(ctx).
		Where("date >= ? AND date <= ?", model.Day(from), model.Day(to)).
		Order("id ASC").
		Find(&items).Error
	return items, err
}
