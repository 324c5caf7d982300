package bot

import (
	"context"

	logx "taskbot/pkg/logx"
)

// action identifiers for permission checks and audit rows.
const (
	actionAdd    = "ADD"
	actionDone   = "DONE"
	actionDelete = "DELETE"
	actionRemind = "REM"
)

// adminChecker is the adapter lookup used by canAction.
type adminChecker interface {
	IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error)
}

// canAction applies the group permission rules. Private chats allow
// everything. In groups, adding and completing are open to everyone;
// reminders and deletion belong to the task author or a chat admin.
// An admin lookup failure counts as not-admin.
func canAction(ctx context.Context, ad adminChecker, log logx.Logger, isGroup bool, chatID, actorID int64, action string, ownerID int64) bool {
	if !isGroup {
		return true
	}
	switch action {
	case actionAdd, actionDone:
		return true
	case actionRemind, actionDelete:
		if ownerID != 0 && actorID == ownerID {
			return true
		}
		ok, err := ad.IsChatAdmin(ctx, chatID, actorID)
		if err != nil {
			log.Warn("admin lookup failed",
				logx.Int64("chat_id", chatID), logx.Int64("user_id", actorID), logx.Err(err))
			return false
		}
		return ok
	default:
		return false
	}
}
