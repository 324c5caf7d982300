package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestParseYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  poll_timeout: "10s"
logging:
  level: debug
  console: true
storage:
  path: ./data/bot.db
  busy_timeout: "5s"
reminders:
  repeat_interval: "3m"
  default_timezone: Asia/Bangkok
  default_hour: 10
limits:
  task_text_max_len: 300
  max_tasks_per_chat: 100
`)

	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Telegram.Token != "123:abc" {
		t.Errorf("token = %q", cfg.Telegram.Token)
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.Console {
		t.Errorf("logging = %+v", cfg.Logging)
	}
	if cfg.Reminders.DefaultTimezone != "Asia/Bangkok" || cfg.Reminders.DefaultHour != 10 {
		t.Errorf("reminders = %+v", cfg.Reminders)
	}
	if cfg.Limits.TaskTextMaxLen != 300 || cfg.Limits.MaxTasksPerChat != 100 {
		t.Errorf("limits = %+v", cfg.Limits)
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
telegram:
  token: "123:abc"
  pol_timeout: "10s"
`)
	if _, err := NewManager(path).Parse(); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestParseJSON(t *testing.T) {
	path := writeConfig(t, "config.json", `{"telegram":{"token":"t"},"logging":{"level":"info","console":true,"file":{"enabled":false,"path":""},"telegram":{"enabled":false,"chat_id":0,"thread_id":0,"min_level":"","rate_per_sec":0}},"storage":{"path":"x.db"},"reminders":{},"limits":{}}`)
	cfg, err := NewManager(path).Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Storage.Path != "x.db" {
		t.Errorf("storage path = %q", cfg.Storage.Path)
	}
}

func TestParseRejectsTrailingData(t *testing.T) {
	path := writeConfig(t, "config.json", `{"telegram":{"token":"t"}} {"extra":1}`)
	_, err := NewManager(path).Parse()
	if err == nil || !strings.Contains(err.Error(), "trailing") {
		t.Fatalf("expected trailing data error, got %v", err)
	}
}

func TestLoadCommitsAndGetReturns(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
telegram:
  token: "t"
`)
	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := m.Get(); got != cfg {
		t.Error("Get returned a different config than Load committed")
	}
}

func TestParseDurationField(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    time.Duration
		wantErr bool
	}{
		{"empty means zero", "", 0, false},
		{"plain seconds", "30s", 30 * time.Second, false},
		{"minutes", "3m", 3 * time.Minute, false},
		{"garbage", "soon", 0, true},
		{"negative", "-5s", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDurationField("reminders.repeat_interval", tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr = %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDurationOrDefault(t *testing.T) {
	got, err := ParseDurationOrDefault("limits.flash_delay", "", 2*time.Second)
	if err != nil || got != 2*time.Second {
		t.Fatalf("empty: got %v, %v", got, err)
	}
	got, err = ParseDurationOrDefault("limits.flash_delay", "5s", 2*time.Second)
	if err != nil || got != 5*time.Second {
		t.Fatalf("set: got %v, %v", got, err)
	}
	if _, err := ParseDurationOrDefault("limits.flash_delay", "nope", 2*time.Second); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestSummarizeConfigChangeNeverLeaksToken(t *testing.T) {
	oldCfg := &Config{}
	newCfg := &Config{}
	newCfg.Telegram.Token = "123456:secret-token-value"
	newCfg.Logging.Level = "debug"

	lines, fields := SummarizeConfigChange(oldCfg, newCfg)
	for _, l := range lines {
		if strings.Contains(l, "secret-token-value") {
			t.Fatalf("token leaked in summary line %q", l)
		}
	}
	_ = fields
	if len(lines) == 0 {
		t.Fatal("expected change lines for token and level")
	}
}
