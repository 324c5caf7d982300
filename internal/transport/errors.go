package transport

import "errors"

// ErrMessageGone marks edit/delete targets that no longer exist or can no
// longer be touched (deleted by a user, too old, never sent). Callers treat
// it as non-fatal.
var ErrMessageGone = errors.New("message is gone")

// ErrNotModified is returned by EditText when the message already has the
// requested content. Harmless; callers usually ignore it.
var ErrNotModified = errors.New("message not modified")
