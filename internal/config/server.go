package config

import "github.com/caarlos0/env/v11"

type ServerConfig struct {
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`
	PostgresDSN string `env:"POSTGRES_DSN"`
	NATSURL     string `env:"NATS_URL"`

	AdminAPIKey        string   `env:"ADMIN_API_KEY"`
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	SSEPingIntervalSec int  `env:"SSE_PING_INTERVAL_SEC" envDefault:"15"`
	WSCommandsEnabled  bool `env:"WS_COMMANDS_ENABLED" envDefault:"true"`
	SessionIdleTTLSec  int  `env:"SESSION_IDLE_TTL_SEC" envDefault:"1800"`
}

func LoadServer() (ServerConfig, error) {
	var cfg ServerConfig
	err := env.Parse(&cfg)
	return cfg, err
}
