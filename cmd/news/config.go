package news

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	NewsCSV string `envconfig:"NEWS_CSV" required:"true"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
