package bars

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	PolygonAPIKey  string    `envconfig:"POLYGON_API_KEY" required:"true"`
	PolygonBaseURL string    `envconfig:"POLYGON_BASE_URL" default:""`
	Symbols        []string  `envconfig:"SYMBOLS" required:"true"`
	StartDt        time.Time `envconfig:"START_DATE" default:"2014-01-02T00:00:00Z"`
	EndDt          time.Time `envconfig:"END_DATE" default:"2016-12-30T00:00:00Z"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
