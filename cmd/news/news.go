package news

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"newsbacktest/src/data"
	"newsbacktest/src/repository"
)

// News imports classified press-release rows from a CSV file into the
// press_releases table. Rows are appended in file order so later rows win
// when the normalizer collapses duplicates.
type News struct {
	Log    *logger.Entry
	DB     *gorm.DB
	Config *Config
}

func (n *News) Start(ctx context.Context) error {
	if n.Config == nil {
		n.Config = GetConfig()
	}
	if n.Log == nil {
		n.Log = logger.WithField("cmd", "news")
	}

	items, err := data.LoadNewsCSV(n.Config.NewsCSV)
	if err != nil {
		n.Log.WithError(err).Error("CSV load failed")
		return err
	}
	if len(items) == 0 {
		n.Log.Warn("No news rows in file")
		return nil
	}

	if err := repository.NewNewsRepositoryWithDB(n.DB).SaveBatch(ctx, items); err != nil {
		n.Log.WithError(err).Error("Save failed")
		return err
	}

	n.Log.WithField("rows", len(items)).Info("Press releases imported")
	return nil
}
