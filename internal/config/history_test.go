package config

import "testing"

func TestLoadHistoryDefaults(t *testing.T) {
	cfg, err := LoadHistory()
	if err != nil {
		t.Fatalf("LoadHistory() error = %v", err)
	}
	if cfg.WebhookURL != "" {
		t.Fatalf("WebhookURL = %q, want empty", cfg.WebhookURL)
	}
	if cfg.WebhookTimeoutMS != 5000 {
		t.Fatalf("WebhookTimeoutMS = %d, want 5000", cfg.WebhookTimeoutMS)
	}
	if cfg.NATSSubject != "trileague.matches" || cfg.GoalSubject != "trileague.goals.*" {
		t.Fatalf("unexpected subjects: %+v", cfg)
	}
	if cfg.OutputWorkers != 2 || cfg.OutputBuffer != 256 || cfg.OutputRetryMax != 5 || cfg.OutputRetryBaseMS != 500 {
		t.Fatalf("unexpected output settings: %+v", cfg)
	}
}

func TestLoadHistoryOutputOverrides(t *testing.T) {
	t.Setenv("HISTORY_OUTPUT_RETRY_MAX", "0")
	t.Setenv("HISTORY_OUTPUT_RETRY_BASE_MS", "250")
	cfg, err := LoadHistory()
	if err != nil {
		t.Fatalf("LoadHistory() error = %v", err)
	}
	if cfg.OutputRetryMax != 0 || cfg.OutputRetryBaseMS != 250 {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
}
