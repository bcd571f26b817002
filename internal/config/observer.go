package config

import "github.com/caarlos0/env/v11"

type ObserverConfig struct {
	WSURL     string `env:"WS_URL" envDefault:"ws://localhost:8080/ws/sessions"`
	SessionID string `env:"SESSION_ID" envDefault:"default"`
}

func LoadObserver() (ObserverConfig, error) {
	var cfg ObserverConfig
	err := env.Parse(&cfg)
	return cfg, err
}
