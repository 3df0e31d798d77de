package config

import (
	"fmt"
	"time"
)

type QueueConfig struct {
	User           string        `mapstructure:"user"`
	Password       string        `mapstructure:"password"`
	Url            string        `mapstructure:"url"`
	QueueName      string        `mapstructure:"queue-name"`
	PublishTimeout time.Duration `mapstructure:"publish-timeout"`
	MaxRetryTimes  uint          `mapstructure:"max-retry-times"`
	RetryInterval  time.Duration `mapstructure:"retry-interval"`
}

func (cfg *QueueConfig) Validate() error {
	if cfg.User == "" {
		return fmt.Errorf("queue user is required")
	}
	if cfg.Password == "" {
		return fmt.Errorf("queue password is required")
	}
	if cfg.Url == "" {
		return fmt.Errorf("queue url is required")
	}
	if cfg.QueueName == "" {
		return fmt.Errorf("queue name is required")
	}
	if cfg.PublishTimeout <= 0 {
		return fmt.Errorf("queue publish-timeout should be positive")
	}
	if cfg.MaxRetryTimes == 0 {
		return fmt.Errorf("queue max-retry-times should be positive")
	}
	if cfg.RetryInterval <= 0 {
		return fmt.Errorf("queue retry-interval should be positive")
	}

	return nil
}

func (cfg *QueueConfig) AmqpURI() string {
	return fmt.Sprintf("amqp://%s:%s@%s", cfg.User, cfg.Password, cfg.Url)
}
