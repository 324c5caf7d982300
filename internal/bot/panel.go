package bot

import (
	"context"
	"errors"
	"time"

	tele "gopkg.in/telebot.v4"

	"taskbot/internal/transport"
	logx "taskbot/pkg/logx"
)

// ensurePanelLocked posts the panel message if the chat has none yet.
// Call with the chat panel lock held.
func (b *Bot) ensurePanelLocked(ctx context.Context, chatID int64) (int, error) {
	mid, err := b.st.PanelMessageID(ctx, chatID)
	if err != nil {
		return 0, err
	}
	if mid != 0 {
		return mid, nil
	}

	ref, err := b.ad.SendText(ctx, transport.ChatTarget{ChatID: chatID}, b.formatTasksText(ctx, chatID),
		&transport.SendOptions{DisablePreview: true, ReplyMarkupAdapter: panelKeyboard().Markup()})
	if err != nil {
		return 0, err
	}
	if err := b.st.SetPanelMessageID(ctx, chatID, ref.MessageID); err != nil {
		return 0, err
	}
	return ref.MessageID, nil
}

// editPanel rewrites the panel message under the chat lock, recreating it
// when the old message was deleted by the user.
func (b *Bot) editPanel(ctx context.Context, chatID int64, text string, markup *tele.ReplyMarkup) {
	p := b.panel(chatID)
	p.mu.Lock()
	defer p.mu.Unlock()

	mid, err := b.ensurePanelLocked(ctx, chatID)
	if err != nil {
		b.log.Warn("panel ensure failed", logxChat(chatID), logxErr(err))
		return
	}

	opt := &transport.SendOptions{DisablePreview: true, ReplyMarkupAdapter: markup}
	ref := transport.MessageRef{ChatID: chatID, MessageID: mid}
	err = b.ad.EditText(ctx, ref, text, opt)
	switch {
	case err == nil, errors.Is(err, transport.ErrNotModified):
		return
	case errors.Is(err, transport.ErrMessageGone):
		// recreate below
	default:
		b.log.Warn("panel edit failed", logxChat(chatID), logxErr(err))
		return
	}

	newRef, err := b.ad.SendText(ctx, transport.ChatTarget{ChatID: chatID}, text, opt)
	if err != nil {
		b.log.Warn("panel resend failed", logxChat(chatID), logxErr(err))
		return
	}
	if err := b.st.SetPanelMessageID(ctx, chatID, newRef.MessageID); err != nil {
		b.log.Warn("panel id persist failed", logxChat(chatID), logxErr(err))
	}
}

// showScreen renders a screen onto the panel.
func (b *Bot) showScreen(ctx context.Context, chatID int64, sc screen) {
	text, markup := b.render(ctx, chatID, sc)
	b.editPanel(ctx, chatID, text, markup)
}

// flashPanel shows a one-line confirmation above the task list and restores
// the plain list shortly after. A newer flash replaces a pending restore.
func (b *Bot) flashPanel(ctx context.Context, chatID int64, line string) {
	b.showScreen(ctx, chatID, screen{kind: screenFlash, flashLine: line})

	p := b.panel(chatID)
	p.mu.Lock()
	if p.flash != nil {
		p.flash.Stop()
	}
	p.flash = time.AfterFunc(b.cfg.FlashDelay, func() {
		rctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.showScreen(rctx, chatID, screen{kind: screenList})
	})
	p.mu.Unlock()
}

// tryDeleteMessage removes a user's service message, best-effort.
func (b *Bot) tryDeleteMessage(ctx context.Context, chatID int64, messageID int) {
	ref := transport.MessageRef{ChatID: chatID, MessageID: messageID}
	if err := b.ad.DeleteMessage(ctx, ref); err != nil && !errors.Is(err, transport.ErrMessageGone) {
		b.log.Debug("service message delete failed",
			logxChat(chatID), logx.Int("message_id", messageID), logxErr(err))
	}
}

// deleteLater removes a bot reply after the configured TTL so hint messages
// do not pile up in the chat.
func (b *Bot) deleteLater(chatID int64, messageID int, after time.Duration) {
	if after <= 0 {
		after = b.cfg.ServiceMsgTTL
	}
	time.AfterFunc(after, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		b.tryDeleteMessage(ctx, chatID, messageID)
	})
}
