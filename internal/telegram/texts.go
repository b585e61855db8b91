package telegram

import (
	"errors"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/ykvlv/remind-bot/internal/domain"
)

// UI texts in English
const (
	startText = "👋 I am a reminder bot. Tell me when, and I will message you."
	helpText  = "Commands:\n" +
		"• /remind <when> | <text> — e.g. /remind in 20 minutes | stretch\n" +
		"• /reminders — your pending reminders\n" +
		"• /next — the closest one\n" +
		"• /cancel <n> — cancel reminder number n from /reminders\n" +
		"• /clear — cancel everything\n" +
		"• /timezone [Region/City] — show or set your timezone\n\n" +
		"<when> understands: in 10 minutes, in an hour, tomorrow, tomorrow at 18:30, " +
		"tonight, noon, midnight, friday, next monday at 8am, 2030-01-01 09:00:00"

	remindUsageText    = "Usage: /remind <when> | <text>\nExample: /remind tomorrow at 9am | call mom"
	cancelUsageText    = "Usage: /cancel <n>, where n is the number shown by /reminders."
	unknownCommandText = "Unknown command. See /help."
	freeFormHintText   = "To set a reminder use /remind <when> | <text>. See /help."
	noRemindersText    = "You have no pending reminders."
	internalErrorText  = "Something went wrong on my side. Please try again later."

	reminderSetFmt   = "⏰ Reminder set for %s (in %s):\n%s"
	askStructuredFmt = "I could not understand that time. Send it as YYYY-MM-DD HH:MM:SS (timezone %s)."
	listTitle        = "🧾 Your reminders:"
	nextFmt          = "Next: %s (in %s)\n%s"
	cancelledFmt     = "Cancelled: %s"
	clearedFmt       = "Cancelled %d reminder(s)."
	timezoneShowFmt  = "Your timezone: %s\nChange it with /timezone Region/City."
	timezoneSetFmt   = "Timezone updated: %s"
)

var userErrors = []struct {
	err  error
	text string
}{
	{domain.ErrParseFailure, "I could not understand that time. Try YYYY-MM-DD HH:MM:SS."},
	{domain.ErrPastTime, "That time is already in the past."},
	{domain.ErrQuotaExceeded, "You have too many pending reminders. Cancel some with /cancel first."},
	{domain.ErrDuplicateTrigger, "You already have a reminder at exactly that time."},
	{domain.ErrNotFound, "No such reminder. It may have already fired."},
	{domain.ErrInvalidTimezone, "Unknown timezone. Example: Europe/Berlin"},
	{domain.ErrEmptyText, "The reminder text is empty."},
	{domain.ErrTextTooLong, "The reminder text is too long."},
	{domain.ErrPersistence, "Could not save your change. Please try again later."},
}

// userErrorText maps a domain error to what the chat sees.
func userErrorText(err error) string {
	for _, ue := range userErrors {
		if errors.Is(err, ue.err) {
			return ue.text
		}
	}
	return internalErrorText
}

// mainMenuKeyboard builds the reply keyboard shown after /start and /help.
func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/reminders"),
			tgbotapi.NewKeyboardButton("/next"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/timezone"),
			tgbotapi.NewKeyboardButton("/help"),
		),
	)
}
