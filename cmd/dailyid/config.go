package dailyid

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Count int           `envconfig:"DAILY_ID_COUNT" default:"1"`
	Every time.Duration `envconfig:"DAILY_ID_EVERY" default:"1s"`
}

func GetConfig() *Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return &config
}
