package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// MatchConfig holds the countdown length, scoring table and roster source
// shared by every session.
type MatchConfig struct {
	DurationSec       int  `env:"MATCH_DURATION_SEC" envDefault:"600"`
	AlarmThresholdSec int  `env:"ALARM_THRESHOLD_SEC" envDefault:"60"`
	OutrightWinGoals  int  `env:"OUTRIGHT_WIN_GOALS" envDefault:"2"`
	WinPoints         int  `env:"WIN_POINTS" envDefault:"3"`
	TimeWinPoints     int  `env:"TIME_WIN_POINTS" envDefault:"2"`
	DrawPoints        int  `env:"DRAW_POINTS" envDefault:"1"`
	AutoConfirm       bool `env:"AUTO_CONFIRM" envDefault:"false"`

	RosterPath   string   `env:"ROSTER_PATH"`
	DefaultTeams []string `env:"DEFAULT_TEAMS" envSeparator:"," envDefault:"Red,Blue,Green"`
}

func LoadMatch() (MatchConfig, error) {
	var cfg MatchConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c MatchConfig) Validate() error {
	if c.DurationSec <= 0 {
		return fmt.Errorf("MATCH_DURATION_SEC must be positive, got %d", c.DurationSec)
	}
	if c.AlarmThresholdSec < 0 || c.AlarmThresholdSec > c.DurationSec {
		return fmt.Errorf("ALARM_THRESHOLD_SEC must be within [0, %d], got %d", c.DurationSec, c.AlarmThresholdSec)
	}
	if c.OutrightWinGoals <= 0 {
		return fmt.Errorf("OUTRIGHT_WIN_GOALS must be positive, got %d", c.OutrightWinGoals)
	}
	if c.RosterPath == "" && len(c.DefaultTeams) != 3 {
		return fmt.Errorf("DEFAULT_TEAMS must list exactly 3 teams, got %d", len(c.DefaultTeams))
	}
	return nil
}
