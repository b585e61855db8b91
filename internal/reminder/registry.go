package reminder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ykvlv/remind-bot/internal/domain"
	"github.com/ykvlv/remind-bot/internal/store"
)

// Registry is the authoritative set of pending reminders. Every mutation is
// persisted before it becomes visible; a failed save leaves memory as it was.
type Registry struct {
	store store.ReminderStore
	log   *zap.Logger
	limit int

	mu   sync.Mutex
	byAt map[int64]domain.Reminder // key: trigger instant in Unix milliseconds
}

// NewRegistry creates an empty registry allowing at most limit pending reminders per owner.
func NewRegistry(st store.ReminderStore, limit int, log *zap.Logger) *Registry {
	return &Registry{
		store: st,
		log:   log,
		limit: limit,
		byAt:  make(map[int64]domain.Reminder),
	}
}

// Load replaces the in-memory set with the stored one. Entries not after now are
// dropped and the drop is persisted. Undecodable state is logged and treated as empty.
// Entries that share a millisecond are moved apart the way Add does it.
// A failed save leaves the previous in-memory set in place.
func (r *Registry) Load(ctx context.Context, now time.Time) error {
	loaded, err := r.store.LoadReminders(ctx)
	if errors.Is(err, store.ErrCorrupt) {
		r.log.Warn("reminder store unreadable, starting empty", zap.Error(err))
		loaded, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("load reminders: %w", err)
	}

	byAt := make(map[int64]domain.Reminder, len(loaded))
	expired, moved := 0, 0
	for _, rem := range loaded {
		rem.At = domain.TruncateInstant(rem.At)
		if !rem.At.After(now) {
			expired++
			continue
		}
		key := rem.At.UnixMilli()
		for {
			if _, taken := byAt[key]; !taken {
				break
			}
			key++
		}
		if key != rem.At.UnixMilli() {
			r.log.Warn("stored reminders share an instant, moving one",
				zap.Int64("owner", rem.Owner),
				zap.Time("stored_at", rem.At),
				zap.Time("at", time.UnixMilli(key).UTC()),
			)
			rem.At = time.UnixMilli(key).UTC()
			moved++
		}
		byAt[key] = rem
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.byAt
	r.byAt = byAt
	if expired > 0 || moved > 0 {
		if err := r.persistLocked(ctx); err != nil {
			r.byAt = prev
			return err
		}
	}
	r.log.Info("reminders loaded",
		zap.Int("pending", len(byAt)),
		zap.Int("expired", expired),
		zap.Int("moved", moved),
	)
	return nil
}

// Save writes the current set to the store.
func (r *Registry) Save(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistLocked(ctx)
}

// Add stores rem. The same owner may not hold two reminders at one instant;
// a collision with another owner's instant moves rem forward by a millisecond.
// An owner's reminder already moved off the requested instant still counts as
// a duplicate of it.
func (r *Registry) Add(ctx context.Context, rem domain.Reminder) (domain.Reminder, error) {
	rem.At = domain.TruncateInstant(rem.At)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.countLocked(rem.Owner) >= r.limit {
		return domain.Reminder{}, fmt.Errorf("%w: limit is %d", domain.ErrQuotaExceeded, r.limit)
	}

	key := rem.At.UnixMilli()
	for {
		existing, taken := r.byAt[key]
		if !taken {
			break
		}
		if existing.Owner == rem.Owner {
			return domain.Reminder{}, domain.ErrDuplicateTrigger
		}
		key++
	}
	rem.At = time.UnixMilli(key).UTC()

	r.byAt[key] = rem
	if err := r.persistLocked(ctx); err != nil {
		delete(r.byAt, key)
		return domain.Reminder{}, err
	}
	r.log.Info("reminder added",
		zap.Int64("owner", rem.Owner),
		zap.Time("at", rem.At),
		zap.String("tz", rem.Timezone),
	)
	return rem, nil
}

// Cancel removes the owner's reminder at the given instant and returns its text.
func (r *Registry) Cancel(ctx context.Context, owner int64, at time.Time) (string, error) {
	key := domain.TruncateInstant(at).UnixMilli()

	r.mu.Lock()
	defer r.mu.Unlock()

	rem, ok := r.byAt[key]
	if !ok || rem.Owner != owner {
		return "", domain.ErrNotFound
	}
	delete(r.byAt, key)
	if err := r.persistLocked(ctx); err != nil {
		r.byAt[key] = rem
		return "", err
	}
	r.log.Info("reminder cancelled", zap.Int64("owner", owner), zap.Time("at", rem.At))
	return rem.Text, nil
}

// List returns the owner's reminders in ascending trigger order. Never nil.
func (r *Registry) List(owner int64) []domain.Reminder {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]domain.Reminder, 0)
	for _, rem := range r.byAt {
		if rem.Owner == owner {
			res = append(res, rem)
		}
	}
	sortByAt(res)
	return res
}

// Next returns the owner's earliest reminder.
func (r *Registry) Next(owner int64) (domain.Reminder, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		next  domain.Reminder
		found bool
	)
	for _, rem := range r.byAt {
		if rem.Owner == owner && (!found || rem.At.Before(next.At)) {
			next, found = rem, true
		}
	}
	return next, found
}

// Clear removes every reminder of owner with a single save.
func (r *Registry) Clear(ctx context.Context, owner int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := make(map[int64]domain.Reminder)
	for k, rem := range r.byAt {
		if rem.Owner == owner {
			removed[k] = rem
		}
	}
	if len(removed) == 0 {
		return 0, nil
	}
	for k := range removed {
		delete(r.byAt, k)
	}
	if err := r.persistLocked(ctx); err != nil {
		for k, rem := range removed {
			r.byAt[k] = rem
		}
		return 0, err
	}
	r.log.Info("reminders cleared", zap.Int64("owner", owner), zap.Int("count", len(removed)))
	return len(removed), nil
}

// TakeDue removes and returns every reminder whose instant is not after now,
// earliest first. The removal is persisted before returning, so each reminder is
// handed out at most once.
func (r *Registry) TakeDue(ctx context.Context, now time.Time) ([]domain.Reminder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []domain.Reminder
	for _, rem := range r.byAt {
		if !rem.At.After(now) {
			due = append(due, rem)
		}
	}
	if len(due) == 0 {
		return nil, nil
	}
	for _, rem := range due {
		delete(r.byAt, rem.At.UnixMilli())
	}
	if err := r.persistLocked(ctx); err != nil {
		for _, rem := range due {
			r.byAt[rem.At.UnixMilli()] = rem
		}
		return nil, err
	}
	sortByAt(due)
	return due, nil
}

// Len reports the number of pending reminders across all owners.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byAt)
}

func (r *Registry) countLocked(owner int64) int {
	n := 0
	for _, rem := range r.byAt {
		if rem.Owner == owner {
			n++
		}
	}
	return n
}

func (r *Registry) persistLocked(ctx context.Context) error {
	all := make([]domain.Reminder, 0, len(r.byAt))
	for _, rem := range r.byAt {
		all = append(all, rem)
	}
	sortByAt(all)
	if err := r.store.SaveReminders(ctx, all); err != nil {
		r.log.Error("save reminders failed", zap.Error(err))
		return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	return nil
}

func sortByAt(rs []domain.Reminder) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].At.Before(rs[j].At) })
}
