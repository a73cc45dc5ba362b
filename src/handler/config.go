package handler

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	SubscriberCheck    bool `envconfig:"SUBSCRIBER_CHECK" default:"false"`
	DefaultLatestLimit int  `envconfig:"DEFAULT_LATEST_LIMIT" default:"1"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
