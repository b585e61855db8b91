package domain

import "errors"

// Errors returned to the front end. Callers match them with errors.Is.
var (
	ErrParseFailure     = errors.New("unrecognized time expression")
	ErrPastTime         = errors.New("time is not in the future")
	ErrQuotaExceeded    = errors.New("too many pending reminders")
	ErrDuplicateTrigger = errors.New("a reminder already exists at that time")
	ErrNotFound         = errors.New("reminder not found")
	ErrInvalidTimezone  = errors.New("unknown timezone")
	ErrEmptyText        = errors.New("empty reminder text")
	ErrTextTooLong      = errors.New("reminder text too long")
	ErrPersistence      = errors.New("persist state")
)

// ErrRecipientUnreachable marks a delivery error after which the owner cannot be
// reached for the rest of the process lifetime (e.g. the bot was blocked).
// Senders wrap it; the dispatcher treats anything else as transient.
var ErrRecipientUnreachable = errors.New("recipient unreachable")
