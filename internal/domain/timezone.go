package domain

import (
	"fmt"
	"strings"
	"time"
)

// DisplayLayout is how trigger instants are shown to users.
const DisplayLayout = "Mon, 02 Jan 2006 15:04 MST"

// LoadLocation resolves an IANA name, rejecting the empty string and "Local"
// which time.LoadLocation would otherwise accept.
func LoadLocation(tz string) (*time.Location, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" || strings.EqualFold(tz, "local") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return loc, nil
}

// ValidateTZ checks that the tz is a valid IANA location and returns its canonical name.
func ValidateTZ(tz string) (string, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return loc.String(), nil
}

// LocalizeTime formats t in the given timezone using DisplayLayout.
func LocalizeTime(t time.Time, tz string) (string, error) {
	loc, err := LoadLocation(tz)
	if err != nil {
		return "", err
	}
	return t.In(loc).Format(DisplayLayout), nil
}

// FormatLocal is LocalizeTime that falls back to UTC for unknown zones.
func FormatLocal(t time.Time, tz string) string {
	if s, err := LocalizeTime(t, tz); err == nil {
		return s
	}
	return t.UTC().Format(DisplayLayout)
}

// FormatUntil renders the time left until t, rounded to the minute.
func FormatUntil(now, t time.Time) string {
	d := t.Sub(now).Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	mins := d / time.Minute

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if mins > 0 {
		parts = append(parts, fmt.Sprintf("%dm", mins))
	}
	return strings.Join(parts, " ")
}
