package backtest

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	StrategyPath string    `envconfig:"STRATEGY_CONFIG" default:"strategy.json"`
	StartDt      time.Time `envconfig:"START_DATE" default:"2014-01-02T00:00:00Z"`
	EndDt        time.Time `envconfig:"END_DATE" default:"2016-12-30T00:00:00Z"`
	RunName      string    `envconfig:"RUN_NAME" default:""`
	BarsCSV      string    `envconfig:"BARS_CSV" default:""`
	NewsCSV      string    `envconfig:"NEWS_CSV" default:""`
	ExportDir    string    `envconfig:"EXPORT_DIR" default:""`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
