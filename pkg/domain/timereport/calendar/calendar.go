// Package calendar resolves date arguments ("today", a date, or a from:to range)
// into inclusive day ranges.
package calendar

import (
	"iter"
	"strings"
	"time"
)

const (
	// Today is the alias resolving to the current date.
	Today = "today"
	// RangeSeparator joins the two ends of a range.
	RangeSeparator = ":"
	// DefaultLayout is used when no layout is configured.
	DefaultLayout = "2006-01-02"

	monthLayout = "2006-01"
)

// DateSpec is an inclusive day range. The zero value means "unparseable".
type DateSpec struct {
	From time.Time
	To   time.Time
}

// IsZero reports whether the spec failed to resolve.
func (s DateSpec) IsZero() bool {
	return s.From.IsZero() || s.To.IsZero()
}

// IsSingleDay reports whether From and To are the same day.
func (s DateSpec) IsSingleDay() bool {
	return !s.IsZero() && s.From.Equal(s.To)
}

// Days returns the number of days in the range, 0 for the zero spec.
func (s DateSpec) Days() int {
	if s.IsZero() {
		return 0
	}
	return int(s.To.Sub(s.From).Hours()/24) + 1
}

// Resolver parses date arguments with a fixed layout. Now and Location default to
// time.Now and time.Local.
type Resolver struct {
	Layout   string
	Location *time.Location
	Now      func() time.Time
}

// NewResolver returns a resolver for layout in loc.
func NewResolver(layout string, loc *time.Location) Resolver {
	if layout == "" {
		layout = DefaultLayout
	}
	if loc == nil {
		loc = time.Local
	}
	return Resolver{Layout: layout, Location: loc, Now: time.Now}
}

// Today returns the current date in the resolver's location, as UTC midnight.
func (r Resolver) Today() time.Time {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	loc := r.Location
	if loc == nil {
		loc = time.Local
	}
	return DateOf(now().In(loc))
}

// Parse resolves text into a DateSpec. It never fails: unsupported shapes, dates not
// matching the layout and reversed ranges all yield the zero DateSpec.
func (r Resolver) Parse(text string) DateSpec {
	text = strings.TrimSpace(text)
	if text == Today {
		d := r.Today()
		return DateSpec{From: d, To: d}
	}

	parts := strings.Split(text, RangeSeparator)
	switch len(parts) {
	case 1:
		d, ok := r.parseDay(parts[0])
		if !ok {
			return DateSpec{}
		}
		return DateSpec{From: d, To: d}
	case 2:
		from, ok := r.parseDay(parts[0])
		if !ok {
			return DateSpec{}
		}
		to, ok := r.parseDay(parts[1])
		if !ok || from.After(to) {
			return DateSpec{}
		}
		return DateSpec{From: from, To: to}
	default:
		return DateSpec{}
	}
}

// Format renders spec with the resolver's layout: a single date or "from:to".
// The zero spec renders as "".
func (r Resolver) Format(spec DateSpec) string {
	if spec.IsZero() {
		return ""
	}
	if spec.IsSingleDay() {
		return spec.From.Format(r.layout())
	}
	return spec.From.Format(r.layout()) + RangeSeparator + spec.To.Format(r.layout())
}

// ParseMonth resolves "YYYY-MM" into the spec covering the whole month.
func (r Resolver) ParseMonth(text string) DateSpec {
	t, err := time.Parse(monthLayout, text)
	if err != nil || t.Format(monthLayout) != text {
		return DateSpec{}
	}
	return MonthSpec(t)
}

// CurrentMonth returns the spec of the month containing Today.
func (r Resolver) CurrentMonth() DateSpec {
	return MonthSpec(r.Today())
}

func (r Resolver) layout() string {
	if r.Layout == "" {
		return DefaultLayout
	}
	return r.Layout
}

// parseDay requires the token to be the exact rendering of the parsed date, so that
// formatting the result reproduces the input.
func (r Resolver) parseDay(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(r.layout(), token)
	if err != nil || t.Format(r.layout()) != token {
		return time.Time{}, false
	}
	return DateOf(t), true
}

// DateOf truncates t to its calendar date, expressed as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthSpec returns the spec from the first to the last day of t's month.
func MonthSpec(t time.Time) DateSpec {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DateSpec{From: first, To: first.AddDate(0, 1, -1)}
}

// ExpandDays yields every day of spec in ascending order, both ends included.
// Each call to the returned sequence starts over.
func ExpandDays(spec DateSpec) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		if spec.IsZero() {
			return
		}
		for d := spec.From; !d.After(spec.To); d = d.AddDate(0, 0, 1) {
			if !yield(d) {
				return
			}
		}
	}
}

// MonthsTouched returns the distinct "YYYY-MM" keys covered by spec, ascending.
func MonthsTouched(spec DateSpec) []string {
	if spec.IsZero() {
		return nil
	}
	var months []string
	last := time.Date(spec.To.Year(), spec.To.Month(), 1, 0, 0, 0, 0, time.UTC)
	for m := time.Date(spec.From.Year(), spec.From.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(last); m = m.AddDate(0, 1, 0) {
		months = append(months, m.Format(monthLayout))
	}
	return months
}
