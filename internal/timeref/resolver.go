package timeref

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// displayLayout is the canonical rendering of a resolved instant
const displayLayout = "02.01.2006 15:04"

// absoluteLayouts are the accepted absolute date forms, tried in order
var absoluteLayouts = []string{
	"02.01.2006 15:04",
	"02.01.2006",
	"2006-01-02 15:04",
	"2006-01-02",
}

var relativePattern = regexp.MustCompile(`(?i)^(\d+)\s+(hour|minute|day)s?\s+ago$`)

// ResolvedInstant is an absolute point in time together with its
// canonical display string
type ResolvedInstant struct {
	Time    time.Time
	Epoch   int64
	Display string
}

// ParseError indicates that a time expression matched none of the
// accepted forms. Help returns a user-facing list of valid forms.
type ParseError struct {
	Input string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unrecognized time expression: %q", e.Input)
}

// Help enumerates the accepted time expression forms with examples
func (e *ParseError) Help() string {
	return "Invalid time format. Accepted forms:\n" +
		"• `<n> hours ago` / `<n> minutes ago` / `<n> days ago` (e.g. `2 hours ago`)\n" +
		"• `DD.MM.YYYY HH:MM` (e.g. `20.03.2024 14:30`)\n" +
		"• `DD.MM.YYYY` (e.g. `20.03.2024`)\n" +
		"• `YYYY-MM-DD HH:MM` (e.g. `2024-03-20 14:30`)\n" +
		"• `YYYY-MM-DD` (e.g. `2024-03-20`)"
}

// Resolver parses free-text time expressions into absolute instants.
// Absolute dates are interpreted in the configured location.
type Resolver struct {
	loc *time.Location
	now func() time.Time
}

// NewResolver creates a resolver for the given location
func NewResolver(loc *time.Location) *Resolver {
	return &Resolver{
		loc: loc,
		now: time.Now,
	}
}

// Resolve parses a time expression into a resolved instant.
// Forms are tried in a fixed order, first match wins: the relative form
// is tried before the absolute ones so that an expression like
// "2 hours ago" is never handed to a date parser.
func (r *Resolver) Resolve(text string) (ResolvedInstant, error) {
	text = strings.TrimSpace(text)

	attempts := []func(string) (time.Time, bool){
		r.parseRelative,
		r.parseAbsolute,
	}

	for _, attempt := range attempts {
		if t, ok := attempt(text); ok {
			return r.instant(t), nil
		}
	}

	return ResolvedInstant{}, &ParseError{Input: text}
}

// FromEpoch resolves an instant directly from an epoch timestamp,
// bypassing text parsing
func (r *Resolver) FromEpoch(epochSeconds int64) ResolvedInstant {
	return r.instant(time.Unix(epochSeconds, 0))
}

// FromSlackTS resolves an instant from a Slack message timestamp of the
// form "<epoch>.<sequence>", flooring to whole seconds
func (r *Resolver) FromSlackTS(ts string) (ResolvedInstant, error) {
	seconds, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return ResolvedInstant{}, fmt.Errorf("invalid message timestamp %q: %w", ts, err)
	}
	return r.FromEpoch(int64(math.Floor(seconds))), nil
}

func (r *Resolver) instant(t time.Time) ResolvedInstant {
	t = t.In(r.loc)
	return ResolvedInstant{
		Time:    t,
		Epoch:   t.Unix(),
		Display: t.Format(displayLayout),
	}
}

// parseRelative handles "<n> (hour|minute|day)s ago"
func (r *Resolver) parseRelative(text string) (time.Time, bool) {
	m := relativePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}

	amount, err := strconv.Atoi(m[1])
	if err != nil {
		// Matched digits too large for int
		return time.Time{}, false
	}

	var unit time.Duration
	switch strings.ToLower(m[2]) {
	case "hour":
		unit = time.Hour
	case "minute":
		unit = time.Minute
	case "day":
		unit = 24 * time.Hour
	}

	return r.now().Add(-time.Duration(amount) * unit), true
}

// parseAbsolute tries each accepted absolute layout in order.
// time.ParseInLocation rejects impossible calendar dates (e.g. 30.02.2024),
// so no field overflow can slip through as a rolled-over date.
func (r *Resolver) parseAbsolute(text string) (time.Time, bool) {
	for _, layout := range absoluteLayouts {
		if t, err := time.ParseInLocation(layout, text, r.loc); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
