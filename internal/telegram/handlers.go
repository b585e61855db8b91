package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/ykvlv/remind-bot/internal/domain"
)

// --- Generic helpers ---

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if err := r.SendMessage(ctx, chatID, text); err != nil {
		r.log.Warn("reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (r *Router) replyWithMenu(ctx context.Context, chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = mainMenuKeyboard()
	if err := r.send(ctx, msg); err != nil {
		r.log.Warn("reply failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

// replyError turns a service error into a user-facing message.
func (r *Router) replyError(ctx context.Context, chatID int64, err error) {
	if errors.Is(err, domain.ErrPersistence) || userErrorText(err) == internalErrorText {
		r.log.Error("request failed", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	r.reply(ctx, chatID, userErrorText(err))
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, chatID int64) {
	r.replyWithMenu(ctx, chatID, startText+"\n\n"+helpText)
}

func (r *Router) handleHelp(ctx context.Context, chatID int64) {
	r.replyWithMenu(ctx, chatID, helpText)
}

// --- Reminder creation ---

func (r *Router) handleRemind(ctx context.Context, c conv, args string) {
	when, text, ok := parseRemindArgs(args)
	if !ok {
		r.reply(ctx, c.chatID, remindUsageText)
		return
	}
	r.addReminder(ctx, c, text, when, true)
}

// addReminder creates the reminder and reports the outcome. When the time
// cannot be parsed and allowPrompt is set, the text is kept and the chat is
// asked for a structured time instead.
func (r *Router) addReminder(ctx context.Context, c conv, text, when string, allowPrompt bool) {
	rem, err := r.svc.AddReminder(ctx, c.owner, text, when, "")
	switch {
	case err == nil:
		r.reply(ctx, c.chatID, fmt.Sprintf(reminderSetFmt,
			domain.FormatLocal(rem.At, rem.Timezone),
			domain.FormatUntil(r.svc.Now(), rem.At),
			rem.Text,
		))
	case allowPrompt && errors.Is(err, domain.ErrParseFailure):
		r.setPending(c, text)
		r.reply(ctx, c.chatID, fmt.Sprintf(askStructuredFmt, r.svc.GetTimezone(c.owner)))
	default:
		r.replyError(ctx, c.chatID, err)
	}
}

// --- Free-form dispatcher (structured time after a failed parse) ---

func (r *Router) handleFreeForm(ctx context.Context, c conv, text string) {
	pending, ok := r.takePending(c)
	if !ok {
		r.reply(ctx, c.chatID, freeFormHintText)
		return
	}
	r.addReminder(ctx, c, pending, text, false)
}

// --- Listing ---

func (r *Router) handleList(ctx context.Context, c conv) {
	rems := r.svc.ListReminders(c.owner)
	if len(rems) == 0 {
		r.reply(ctx, c.chatID, noRemindersText)
		return
	}
	now := r.svc.Now()
	var b strings.Builder
	b.WriteString(listTitle)
	for i, rem := range rems {
		fmt.Fprintf(&b, "\n%d. %s (in %s): %s",
			i+1,
			domain.FormatLocal(rem.At, rem.Timezone),
			domain.FormatUntil(now, rem.At),
			rem.Text,
		)
	}
	r.reply(ctx, c.chatID, b.String())
}

func (r *Router) handleNext(ctx context.Context, c conv) {
	rem, ok := r.svc.NextReminder(c.owner)
	if !ok {
		r.reply(ctx, c.chatID, noRemindersText)
		return
	}
	r.reply(ctx, c.chatID, fmt.Sprintf(nextFmt,
		domain.FormatLocal(rem.At, rem.Timezone),
		domain.FormatUntil(r.svc.Now(), rem.At),
		rem.Text,
	))
}

// --- Cancellation ---

func (r *Router) handleCancel(ctx context.Context, c conv, args string) {
	n, err := strconv.Atoi(strings.TrimSpace(args))
	if err != nil || n < 1 {
		r.reply(ctx, c.chatID, cancelUsageText)
		return
	}
	rems := r.svc.ListReminders(c.owner)
	if n > len(rems) {
		r.replyError(ctx, c.chatID, domain.ErrNotFound)
		return
	}
	text, err := r.svc.CancelReminder(ctx, c.owner, rems[n-1].At)
	if err != nil {
		r.replyError(ctx, c.chatID, err)
		return
	}
	r.reply(ctx, c.chatID, fmt.Sprintf(cancelledFmt, text))
}

func (r *Router) handleClear(ctx context.Context, c conv) {
	n, err := r.svc.ClearReminders(ctx, c.owner)
	if err != nil {
		r.replyError(ctx, c.chatID, err)
		return
	}
	if n == 0 {
		r.reply(ctx, c.chatID, noRemindersText)
		return
	}
	r.reply(ctx, c.chatID, fmt.Sprintf(clearedFmt, n))
}

// --- Timezone ---

func (r *Router) handleTimezone(ctx context.Context, c conv, args string) {
	if args == "" {
		r.reply(ctx, c.chatID, fmt.Sprintf(timezoneShowFmt, r.svc.GetTimezone(c.owner)))
		return
	}
	tz, err := r.svc.SetTimezone(ctx, c.owner, args)
	if err != nil {
		r.replyError(ctx, c.chatID, err)
		return
	}
	r.reply(ctx, c.chatID, fmt.Sprintf(timezoneSetFmt, tz))
}

// parseRemindArgs splits "<when> | <text>". Both halves must be non-empty.
func parseRemindArgs(args string) (when, text string, ok bool) {
	when, text, found := strings.Cut(args, "|")
	when, text = strings.TrimSpace(when), strings.TrimSpace(text)
	if !found || when == "" || text == "" {
		return "", "", false
	}
	return when, text, true
}
