package transport

import "context"

type UpdateKind string

const (
	UpdateMessage  UpdateKind = "message"
	UpdateCallback UpdateKind = "callback"
	UpdateCommand  UpdateKind = "command"
)

type Update struct {
	Kind     UpdateKind
	Message  *Message
	Callback *Callback
}

type Message struct {
	ID           int
	ChatID       int64
	ThreadID     int // telegram forum topic thread id (0 if none)
	FromID       int64
	FromName     string
	FromUsername string
	Text         string
	Command      string // without leading slash; empty for plain text
	Args         string // raw text after the command
	IsGroup      bool
	IsPrivate    bool
}

type Callback struct {
	ID        string
	FromID    int64
	FromName  string
	ChatID    int64
	ThreadID  int
	MessageID int
	Data      string
	IsGroup   bool
	IsPrivate bool
}

type ChatTarget struct {
	ChatID   int64
	ThreadID int
}

type MessageRef struct {
	ChatID    int64
	ThreadID  int
	MessageID int
}

type SendOptions struct {
	ParseMode          string
	DisablePreview     bool
	ReplyMarkupAdapter any // adapter-specific markup (Telegram: *telebot.ReplyMarkup)
}

// Adapter is the messaging surface the bot core talks to. Edit and Delete
// must report "already gone" targets via ErrMessageGone so callers can fall
// back to sending fresh messages.
type Adapter interface {
	Start(ctx context.Context, out chan<- Update) error
	Stop(ctx context.Context) error

	SendText(ctx context.Context, to ChatTarget, text string, opt *SendOptions) (MessageRef, error)
	EditText(ctx context.Context, ref MessageRef, text string, opt *SendOptions) error
	DeleteMessage(ctx context.Context, ref MessageRef) error
	AnswerCallback(ctx context.Context, callbackID string, text string) error

	// IsChatAdmin reports whether the user is an administrator or the owner
	// of the chat. Lookup failures are returned as errors; callers decide
	// how to degrade.
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}
