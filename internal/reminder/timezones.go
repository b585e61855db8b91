package reminder

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ykvlv/remind-bot/internal/domain"
	"github.com/ykvlv/remind-bot/internal/store"
)

// Timezones holds per-owner timezone preferences with a process-wide fallback.
type Timezones struct {
	store    store.TimezoneStore
	log      *zap.Logger
	fallback string

	mu      sync.Mutex
	byOwner map[int64]string
}

// NewTimezones creates an empty preference book. fallback must be a valid IANA name.
func NewTimezones(st store.TimezoneStore, fallback string, log *zap.Logger) *Timezones {
	return &Timezones{
		store:    st,
		log:      log,
		fallback: fallback,
		byOwner:  make(map[int64]string),
	}
}

// Load reads stored preferences. Undecodable state is logged and treated as empty;
// entries naming unknown zones are skipped.
func (z *Timezones) Load(ctx context.Context) error {
	loaded, err := z.store.LoadTimezones(ctx)
	if errors.Is(err, store.ErrCorrupt) {
		z.log.Warn("timezone store unreadable, starting empty", zap.Error(err))
		loaded, err = nil, nil
	}
	if err != nil {
		return fmt.Errorf("load timezones: %w", err)
	}

	z.mu.Lock()
	defer z.mu.Unlock()

	z.byOwner = make(map[int64]string, len(loaded))
	for owner, tz := range loaded {
		canonical, err := domain.ValidateTZ(tz)
		if err != nil {
			z.log.Warn("dropping stored timezone", zap.Int64("owner", owner), zap.String("tz", tz))
			continue
		}
		z.byOwner[owner] = canonical
	}
	return nil
}

// Get returns the owner's timezone, or the fallback if none was set.
func (z *Timezones) Get(owner int64) string {
	z.mu.Lock()
	defer z.mu.Unlock()
	if tz, ok := z.byOwner[owner]; ok {
		return tz
	}
	return z.fallback
}

// Set validates and stores the owner's timezone, returning the canonical name.
// On failure the previous preference stays in effect.
func (z *Timezones) Set(ctx context.Context, owner int64, tz string) (string, error) {
	canonical, err := domain.ValidateTZ(tz)
	if err != nil {
		return "", err
	}

	z.mu.Lock()
	defer z.mu.Unlock()

	prev, had := z.byOwner[owner]
	z.byOwner[owner] = canonical
	if err := z.store.SaveTimezones(ctx, z.copyLocked()); err != nil {
		if had {
			z.byOwner[owner] = prev
		} else {
			delete(z.byOwner, owner)
		}
		z.log.Error("save timezones failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}
	z.log.Info("timezone set", zap.Int64("owner", owner), zap.String("tz", canonical))
	return canonical, nil
}

func (z *Timezones) copyLocked() map[int64]string {
	out := make(map[int64]string, len(z.byOwner))
	for k, v := range z.byOwner {
		out[k] = v
	}
	return out
}
