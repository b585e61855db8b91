package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ykvlv/remind-bot/internal/domain"
	"github.com/ykvlv/remind-bot/internal/reminder"
)

// Bot is the part of *tgbotapi.BotAPI the router needs.
type Bot interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Router wires Telegram updates to handlers and holds minimal in-memory state.
type Router struct {
	bot     Bot
	log     *zap.Logger
	svc     *reminder.Service
	limiter *rate.Limiter

	mu    sync.RWMutex
	state map[conv]string // reminder text awaiting a structured time
}

// NewRouter creates a new Telegram router. All outgoing messages share limiter.
func NewRouter(bot Bot, log *zap.Logger, svc *reminder.Service, limiter *rate.Limiter) *Router {
	return &Router{
		bot:     bot,
		log:     log,
		svc:     svc,
		limiter: limiter,
		state:   make(map[conv]string),
	}
}

// conv identifies where a message came from: replies go to chatID, reminders
// belong to owner and are delivered to the owner's private chat.
type conv struct {
	chatID int64
	owner  int64
}

// ownerOf returns the sending user, falling back to the chat for messages
// without a sender (channel posts).
func ownerOf(msg *tgbotapi.Message) int64 {
	if msg.From != nil {
		return msg.From.ID
	}
	return msg.Chat.ID
}

// setPending remembers reminder text until the user sends a structured time in that chat.
func (r *Router) setPending(c conv, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state[c] = text
}

// takePending returns and clears the pending text for a user in a chat.
func (r *Router) takePending(c conv) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	text, ok := r.state[c]
	delete(r.state, c)
	return text, ok
}

// HandleUpdate routes a single update to the appropriate handler.
func (r *Router) HandleUpdate(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message
	if msg == nil || msg.Chat == nil {
		return
	}
	c := conv{chatID: msg.Chat.ID, owner: ownerOf(msg)}
	text := strings.TrimSpace(msg.Text)

	cmd, args, ok := splitCommand(text)
	if !ok {
		r.handleFreeForm(ctx, c, text)
		return
	}
	// Any command abandons a pending structured-time prompt.
	r.takePending(c)

	switch cmd {
	case "start":
		r.handleStart(ctx, c.chatID)
	case "help":
		r.handleHelp(ctx, c.chatID)
	case "remind":
		r.handleRemind(ctx, c, args)
	case "reminders", "list":
		r.handleList(ctx, c)
	case "next":
		r.handleNext(ctx, c)
	case "cancel":
		r.handleCancel(ctx, c, args)
	case "clear":
		r.handleClear(ctx, c)
	case "timezone", "tz":
		r.handleTimezone(ctx, c, args)
	default:
		r.reply(ctx, c.chatID, unknownCommandText)
	}
}

// SendMessage sends a plain text message to the given chat, waiting for the
// shared rate limiter first. Errors meaning the chat can never be reached wrap
// domain.ErrRecipientUnreachable. This makes Router satisfy scheduler.Sender.
func (r *Router) SendMessage(ctx context.Context, chatID int64, text string) error {
	return r.send(ctx, tgbotapi.NewMessage(chatID, text))
}

func (r *Router) send(ctx context.Context, c tgbotapi.Chattable) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	_, err := r.bot.Send(c)
	return classifySendError(err)
}

// classifySendError marks Telegram answers that will not change on retry.
func classifySendError(err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	switch {
	case apiErr.Code == http.StatusForbidden,
		apiErr.Code == http.StatusBadRequest && strings.Contains(strings.ToLower(apiErr.Message), "chat not found"):
		return fmt.Errorf("%w: %s", domain.ErrRecipientUnreachable, apiErr.Message)
	default:
		return err
	}
}

// splitCommand splits "/cmd@bot args" into a lowercase command name and its
// trimmed arguments. ok is false for anything that is not a command.
func splitCommand(text string) (cmd, args string, ok bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest, _ := strings.Cut(text[1:], " ")
	if i := strings.IndexByte(head, '@'); i >= 0 {
		head = head[:i]
	}
	if head == "" {
		return "", "", false
	}
	return strings.ToLower(head), strings.TrimSpace(rest), true
}
