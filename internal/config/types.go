package config

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Logging  LoggingConfig  `json:"logging"`
	Storage  StorageConfig  `json:"storage"`

	// Reminders controls the one-off reminder engine and the recurring sweep.
	Reminders RemindersConfig `json:"reminders"`

	// Limits bounds user input and list sizes.
	Limits LimitsConfig `json:"limits"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// PollTimeout is a Go duration string (e.g. "10s", "2m").
	PollTimeout string `json:"poll_timeout"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// LoggingTelegram forwards warnings and errors to a chat. Useful when the bot
// runs unattended on a VPS.
type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

type StorageConfig struct {
	Path string `json:"path"`
	// BusyTimeout is a Go duration string (sqlite busy_timeout pragma).
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// RemindersConfig tunes the reminder engine.
//
// All durations are Go duration strings (e.g. "30s", "3m").
//
// Defaults (when fields are omitted/zero):
//   - repeat_interval: "3m"
//   - snooze_delay: "30m"
//   - restore_floor: "3s"
//   - sweep_interval: "1m"
//   - default_timezone: the host's local zone
//   - default_hour: 10
type RemindersConfig struct {
	RepeatInterval string `json:"repeat_interval,omitempty"`
	SnoozeDelay    string `json:"snooze_delay,omitempty"`
	RestoreFloor   string `json:"restore_floor,omitempty"`
	SweepInterval  string `json:"sweep_interval,omitempty"`

	// DefaultTimezone is an IANA zone name used for chats without an own
	// /timezone setting.
	DefaultTimezone string `json:"default_timezone,omitempty"`
	DefaultHour     int    `json:"default_hour,omitempty"`
	DefaultMinute   int    `json:"default_minute,omitempty"`
}

// LimitsConfig bounds user input and panel list sizes.
//
// Defaults (when fields are omitted/zero):
//   - task_text_max_len: 300
//   - max_tasks_per_chat: 100
//   - list_limit / pick_limit: 20
//   - history_limit: 25
//   - flash_delay: "2s"
//   - service_msg_ttl: "15s"
type LimitsConfig struct {
	TaskTextMaxLen  int `json:"task_text_max_len,omitempty"`
	MaxTasksPerChat int `json:"max_tasks_per_chat,omitempty"`
	ListLimit       int `json:"list_limit,omitempty"`
	PickLimit       int `json:"pick_limit,omitempty"`
	HistoryLimit    int `json:"history_limit,omitempty"`

	FlashDelay    string `json:"flash_delay,omitempty"`
	ServiceMsgTTL string `json:"service_msg_ttl,omitempty"`
}
