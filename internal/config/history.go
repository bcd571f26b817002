package config

import "github.com/caarlos0/env/v11"

type HistoryConfig struct {
	WebhookURL       string `env:"HISTORY_WEBHOOK_URL"`
	WebhookTimeoutMS int    `env:"HISTORY_WEBHOOK_TIMEOUT_MS" envDefault:"5000"`
	NATSSubject      string `env:"HISTORY_NATS_SUBJECT" envDefault:"trileague.matches"`
	GoalSubject      string `env:"GOAL_NATS_SUBJECT" envDefault:"trileague.goals.*"`

	OutputWorkers     int `env:"HISTORY_OUTPUT_WORKERS" envDefault:"2"`
	OutputBuffer      int `env:"HISTORY_OUTPUT_BUFFER" envDefault:"256"`
	OutputRetryMax    int `env:"HISTORY_OUTPUT_RETRY_MAX" envDefault:"5"`
	OutputRetryBaseMS int `env:"HISTORY_OUTPUT_RETRY_BASE_MS" envDefault:"500"`
}

func LoadHistory() (HistoryConfig, error) {
	var cfg HistoryConfig
	err := env.Parse(&cfg)
	return cfg, err
}
