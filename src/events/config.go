package events

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	KafkaBrokers      []string      `envconfig:"KAFKA_BROKERS"` // empty disables publishing
	KafkaTopic        string        `envconfig:"KAFKA_TOPIC" default:"orders_log"`
	KafkaWriteTimeout time.Duration `envconfig:"KAFKA_WRITE_TIMEOUT" default:"10s"`
}

func GetConfig() Config {
	var config Config
	if err := envconfig.Process("", &config); err != nil {
		panic(fmt.Errorf("error processing env config: %w", err))
	}
	return config
}
