package config

import (
	"reflect"
	"sort"
	"strings"

	logx "taskbot/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections plus safe
// structured attrs for logging. Secrets (the bot token) are never included.
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 5)
	attrs := make([]logx.Field, 0, 16)

	// Telegram (never log token)
	if strings.TrimSpace(oldCfg.Telegram.PollTimeout) != strings.TrimSpace(newCfg.Telegram.PollTimeout) ||
		(strings.TrimSpace(oldCfg.Telegram.Token) != "") != (strings.TrimSpace(newCfg.Telegram.Token) != "") {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.String("telegram.poll_timeout", strings.TrimSpace(newCfg.Telegram.PollTimeout)),
			logx.Bool("telegram.token_set", strings.TrimSpace(newCfg.Telegram.Token) != ""),
		)
	}

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logx.level", newCfg.Logging.Level),
			logx.Bool("logx.console", newCfg.Logging.Console),
			logx.Bool("logx.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logx.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.Bool("storage.path_set", strings.TrimSpace(newCfg.Storage.Path) != ""),
			logx.String("storage.busy_timeout", strings.TrimSpace(newCfg.Storage.BusyTimeout)),
		)
	}

	if !reflect.DeepEqual(oldCfg.Reminders, newCfg.Reminders) {
		changed = append(changed, "reminders")
		attrs = append(attrs,
			logx.String("reminders.repeat_interval", strings.TrimSpace(newCfg.Reminders.RepeatInterval)),
			logx.String("reminders.sweep_interval", strings.TrimSpace(newCfg.Reminders.SweepInterval)),
			logx.String("reminders.default_timezone", strings.TrimSpace(newCfg.Reminders.DefaultTimezone)),
			logx.Int("reminders.default_hour", newCfg.Reminders.DefaultHour),
		)
	}

	if !reflect.DeepEqual(oldCfg.Limits, newCfg.Limits) {
		changed = append(changed, "limits")
		attrs = append(attrs,
			logx.Int("limits.task_text_max_len", newCfg.Limits.TaskTextMaxLen),
			logx.Int("limits.max_tasks_per_chat", newCfg.Limits.MaxTasksPerChat),
		)
	}

	sort.Strings(changed)
	return changed, attrs
}
