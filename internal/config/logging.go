package config

import "github.com/caarlos0/env/v11"

// LogConfig drives logging.Init. Service is stamped on every line so the
// server and observer logs can share one collector.
type LogConfig struct {
	Level       string `env:"LOG_LEVEL" envDefault:"info"`
	Service     string `env:"LOG_SERVICE" envDefault:"match-server"`
	Pretty      bool   `env:"LOG_PRETTY" envDefault:"false"`
	SampleEvery int    `env:"LOG_SAMPLE_EVERY" envDefault:"0"`
	File        string `env:"LOG_FILE"`
	MaxMB       int    `env:"LOG_MAX_MB" envDefault:"10"`
}

func LoadLog() (LogConfig, error) {
	var cfg LogConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if cfg.MaxMB <= 0 {
		cfg.MaxMB = 10
	}
	return cfg, nil
}
