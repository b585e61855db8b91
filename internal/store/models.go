package store

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ykvlv/remind-bot/internal/domain"
)

// instantKey renders a trigger instant as a float Unix timestamp string ("1893488400.0").
func instantKey(t time.Time) string {
	s := strconv.FormatFloat(domain.UnixSeconds(t), 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func parseInstantKey(s string) (time.Time, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("instant key %q: %w", s, err)
	}
	return domain.FromUnixSeconds(f), nil
}

// entry is the persisted value for one reminder: [owner, text, timezone].
type entry struct {
	Owner    int64
	Text     string
	Timezone string
}

func (e entry) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Owner, e.Text, e.Timezone})
}

func (e *entry) UnmarshalJSON(b []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 3 {
		return fmt.Errorf("want 3 fields, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.Owner); err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Text); err != nil {
		return fmt.Errorf("text: %w", err)
	}
	if err := json.Unmarshal(raw[2], &e.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}
