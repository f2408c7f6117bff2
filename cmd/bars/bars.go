package bars

import (
	"context"
	"strings"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"newsbacktest/src/connectors"
	"newsbacktest/src/repository"
)

// Bars downloads daily aggregates from Polygon for every configured symbol
// and upserts them into the daily_bars table.
type Bars struct {
	Log    *logger.Entry
	DB     *gorm.DB
	Config *Config
}

func (b *Bars) Start(ctx context.Context) error {
	if b.Config == nil {
		b.Config = GetConfig()
	}
	if b.Log == nil {
		b.Log = logger.WithField("cmd", "bars")
	}

	client := connectors.NewPolygonClient(b.Config.PolygonAPIKey, b.Config.PolygonBaseURL)
	repo := repository.NewBarRepositoryWithDB(b.DB)

	for _, symbol := range b.Config.Symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if symbol == "" {
			continue
		}

		downloaded, err := client.DailyBars(ctx, symbol, b.Config.StartDt, b.Config.EndDt)
		if err != nil {
			b.Log.WithError(err).WithField("symbol", symbol).Error("Download failed")
			return err
		}
		if len(downloaded) == 0 {
			b.Log.WithField("symbol", symbol).Warn("No bars returned")
			continue
		}

		if err := repo.UpsertBatch(ctx, downloaded); err != nil {
			b.Log.WithError(err).WithField("symbol", symbol).Error("Upsert failed")
			return err
		}

		b.Log.WithFields(logger.Fields{
			"symbol": symbol,
			"bars":   len(downloaded),
		}).Info("Bars stored")
	}

	return nil
}
