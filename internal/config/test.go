package config

import "github.com/caarlos0/env/v11"

// TestConfig points database tests at a scratch Postgres. KeepSchema leaves
// each test's schema behind for inspection.
type TestConfig struct {
	PostgresDSN string `env:"TEST_POSTGRES_DSN,required,notEmpty"`
	KeepSchema  bool   `env:"TEST_KEEP_SCHEMA" envDefault:"false"`
}

func LoadTest() (TestConfig, error) {
	var cfg TestConfig
	err := env.Parse(&cfg)
	return cfg, err
}
