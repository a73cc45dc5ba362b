package client

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	BaseURL   string        `envconfig:"ORDERS_API_URL" default:"http://localhost:3000"`
	Timeout   time.Duration `envconfig:"ORDERS_API_TIMEOUT" default:"15s"`
	AccountNo string        `envconfig:"ORDERS_ACCOUNT_NO"` // sent on every request when set
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
