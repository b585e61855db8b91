package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/remind-bot/internal/domain"
)

// Sender is a minimal interface the dispatcher needs to send a direct message.
// telegram.Router implements it. Errors wrapping domain.ErrRecipientUnreachable
// are permanent; all others are transient.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Outcome classifies one delivery.
type Outcome int

const (
	OutcomeDelivered Outcome = iota
	OutcomeSuppressed
	OutcomePermanentFailure
	OutcomeTransientFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDelivered:
		return "delivered"
	case OutcomeSuppressed:
		return "suppressed"
	case OutcomePermanentFailure:
		return "permanent_failure"
	case OutcomeTransientFailure:
		return "transient_failure"
	}
	return "unknown"
}

const sendTimeout = 15 * time.Second

// FormatReminder renders the direct message body for a reminder.
func FormatReminder(text string) string {
	return "Reminder: " + text
}

// Dispatcher makes exactly one delivery attempt per reminder and remembers,
// for the life of the process, owners that cannot be reached.
type Dispatcher struct {
	sender Sender
	log    *zap.Logger

	mu         sync.Mutex
	suppressed map[int64]struct{}
}

// NewDispatcher creates a dispatcher with no suppressed owners.
func NewDispatcher(sender Sender, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		sender:     sender,
		log:        log,
		suppressed: make(map[int64]struct{}),
	}
}

// Deliver sends rem to its owner unless the owner is suppressed. It never retries.
func (d *Dispatcher) Deliver(ctx context.Context, rem domain.Reminder) Outcome {
	if d.Suppressed(rem.Owner) {
		d.log.Debug("skipping suppressed owner", zap.Int64("owner", rem.Owner), zap.Time("at", rem.At))
		return OutcomeSuppressed
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	err := d.sender.SendMessage(ctx, rem.Owner, FormatReminder(rem.Text))
	switch {
	case err == nil:
		d.log.Info("reminder delivered", zap.Int64("owner", rem.Owner), zap.Time("at", rem.At))
		return OutcomeDelivered
	case errors.Is(err, domain.ErrRecipientUnreachable):
		d.suppress(rem.Owner)
		d.log.Warn("owner unreachable, suppressing further deliveries",
			zap.Int64("owner", rem.Owner), zap.Time("at", rem.At), zap.Error(err))
		return OutcomePermanentFailure
	default:
		d.log.Error("reminder delivery failed",
			zap.Int64("owner", rem.Owner), zap.Time("at", rem.At), zap.Error(err))
		return OutcomeTransientFailure
	}
}

// Suppressed reports whether deliveries to owner are skipped.
func (d *Dispatcher) Suppressed(owner int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.suppressed[owner]
	return ok
}

func (d *Dispatcher) suppress(owner int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.suppressed[owner] = struct{}{}
	suppressedOwners.Set(float64(len(d.suppressed)))
}
