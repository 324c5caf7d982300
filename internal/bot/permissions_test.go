package bot

import (
	"context"
	"errors"
	"testing"

	logx "taskbot/pkg/logx"
)

type stubAdmin struct {
	admin bool
	err   error
}

func (s stubAdmin) IsChatAdmin(ctx context.Context, chatID, userID int64) (bool, error) {
	return s.admin, s.err
}

func TestCanAction(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	tests := []struct {
		name    string
		isGroup bool
		actor   int64
		action  string
		owner   int64
		admin   stubAdmin
		want    bool
	}{
		{"private allows everything", false, 2, actionDelete, 1, stubAdmin{}, true},
		{"group add open to all", true, 2, actionAdd, 1, stubAdmin{}, true},
		{"group done open to all", true, 2, actionDone, 1, stubAdmin{}, true},
		{"group delete by author", true, 1, actionDelete, 1, stubAdmin{}, true},
		{"group delete by admin", true, 2, actionDelete, 1, stubAdmin{admin: true}, true},
		{"group delete by stranger", true, 2, actionDelete, 1, stubAdmin{}, false},
		{"group remind by author", true, 1, actionRemind, 1, stubAdmin{}, true},
		{"group remind by stranger", true, 2, actionRemind, 1, stubAdmin{}, false},
		{"lookup failure counts as not admin", true, 2, actionRemind, 1, stubAdmin{admin: true, err: errors.New("api down")}, false},
		{"unknown action denied", true, 1, "WAT", 1, stubAdmin{admin: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := canAction(ctx, tt.admin, logx.Nop(), tt.isGroup, -50, tt.actor, tt.action, tt.owner)
			if got != tt.want {
				t.Errorf("canAction = %v, want %v", got, tt.want)
			}
		})
	}
}
