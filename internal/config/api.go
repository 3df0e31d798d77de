package config

import (
	"fmt"
	"time"
)

type ApiConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read-timeout"`
	WriteTimeout time.Duration `mapstructure:"write-timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle-timeout"`
}

func (cfg *ApiConfig) Validate() error {
	if cfg.Host == "" {
		return fmt.Errorf("api host is required")
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("api port must be between 1 and 65535")
	}
	if cfg.ReadTimeout <= 0 {
		return fmt.Errorf("api read-timeout should be positive")
	}
	if cfg.WriteTimeout <= 0 {
		return fmt.Errorf("api write-timeout should be positive")
	}
	if cfg.IdleTimeout <= 0 {
		return fmt.Errorf("api idle-timeout should be positive")
	}

	return nil
}

func (cfg *ApiConfig) Address() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}
