package domain

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxTextRunes bounds reminder text by the delivery channel's message size.
const MaxTextRunes = 4096

// Reminder is a pending one-shot message for an owner.
type Reminder struct {
	At       time.Time // UTC, millisecond precision
	Owner    int64
	Text     string
	Timezone string // IANA name, display only
}

// TruncateInstant normalizes t to the precision used for storage keys.
func TruncateInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// UnixSeconds converts t to fractional Unix seconds.
func UnixSeconds(t time.Time) float64 {
	t = TruncateInstant(t)
	return float64(t.Unix()) + float64(t.Nanosecond()/int(time.Millisecond))/1000
}

// FromUnixSeconds is the inverse of UnixSeconds for millisecond-precision values.
func FromUnixSeconds(f float64) time.Time {
	sec := math.Floor(f)
	ms := math.Round((f - sec) * 1000)
	if ms >= 1000 {
		sec++
		ms -= 1000
	}
	return time.Unix(int64(sec), int64(ms)*int64(time.Millisecond)).UTC()
}

// NormalizeText trims the text and checks it against the message size limit.
func NormalizeText(text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyText
	}
	if utf8.RuneCountInString(text) > MaxTextRunes {
		return "", ErrTextTooLong
	}
	return text, nil
}
