package mq

import (
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConsumerConfig tunes queue consumption and reconnect behavior.
type ConsumerConfig struct {
	Queue           string        `yaml:"queue"`
	Prefetch        int           `yaml:"prefetch"`
	RedeliveryLimit int           `yaml:"redelivery_limit"`
	ReconnectMin    time.Duration `yaml:"reconnect_min"`
	ReconnectMax    time.Duration `yaml:"reconnect_max"`
}

const defaultQueue = "telemetry.history.save"

func (c ConsumerConfig) withDefaults() ConsumerConfig {
	if c.Queue == "" {
		c.Queue = defaultQueue
	}
	if c.Prefetch <= 0 {
		c.Prefetch = 10
	}
	if c.ReconnectMin <= 0 {
		c.ReconnectMin = time.Second
	}
	if c.ReconnectMax <= 0 {
		c.ReconnectMax = 30 * time.Second
	}
	return c
}

// LoadConsumerConfig builds the consumer config from defaults, an
// optional yaml file (MQ_CONFIG), and env overrides, in that order.
func LoadConsumerConfig() (ConsumerConfig, error) {
	cfg := ConsumerConfig{}.withDefaults()

	if path := os.Getenv("MQ_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if value := os.Getenv("MQ_QUEUE"); value != "" {
		cfg.Queue = value
	}
	if value := os.Getenv("MQ_PREFETCH"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			cfg.Prefetch = parsed
		}
	}
	if value := os.Getenv("MQ_REDELIVERY_LIMIT"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			cfg.RedeliveryLimit = parsed
		}
	}
	return cfg.withDefaults(), nil
}
