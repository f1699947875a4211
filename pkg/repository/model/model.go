package model

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of event dates ("YYYY-MM-DD").
const DateLayout = "2006-01-02"

// MonthLayout is the wire format of lock months ("YYYY-MM").
const MonthLayout = "2006-01"

// Event is one reported absence for one user and one day.
type Event struct {
	UserID    string
	UserName  string
	Reason    string
	EventDate time.Time // date only, UTC midnight
	Hours     decimal.Decimal
}

// Lock marks a month as closed for reporting.
type Lock struct {
	UserID string
	Month  string // YYYY-MM
}

// CalendarFacts describes the working time of one or more months.
type CalendarFacts struct {
	TotalWorkdays int
	Holidays      map[string]struct{} // YYYY-MM-DD
}

// IsHoliday reports whether day (YYYY-MM-DD) is a public holiday.
func (f CalendarFacts) IsHoliday(day string) bool {
	_, ok := f.Holidays[day]
	return ok
}

// Merge adds the workdays and holidays of o to f and returns the result.
func (f CalendarFacts) Merge(o CalendarFacts) CalendarFacts {
	out := CalendarFacts{
		TotalWorkdays: f.TotalWorkdays + o.TotalWorkdays,
		Holidays:      make(map[string]struct{}, len(f.Holidays)+len(o.Holidays)),
	}
	for d := range f.Holidays {
		out.Holidays[d] = struct{}{}
	}
	for d := range o.Holidays {
		out.Holidays[d] = struct{}{}
	}
	return out
}

// EventStore is the backend event collaborator.
type EventStore interface {
	// CreateEvent stores the event, replacing an existing one of the same user and day.
	CreateEvent(ctx context.Context, e Event) error
	// DeleteEvents removes all events of the user on date and returns how many were removed.
	DeleteEvents(ctx context.Context, userID string, date time.Time) (int64, error)
	// ReadEvents returns the user's events with from <= date <= to, ordered by date.
	ReadEvents(ctx context.Context, userID string, from, to time.Time) ([]Event, error)
	// ReadEvent returns the user's event on date, nil if there is none.
	ReadEvent(ctx context.Context, userID string, date time.Time) (*Event, error)
}

// LockStore is the backend lock collaborator.
type LockStore interface {
	CreateLock(ctx context.Context, l Lock) error
	ReadLocks(ctx context.Context, userID string) ([]Lock, error)
}

// Repo is the full backend.
type Repo interface {
	EventStore
	LockStore
}

// WorkCalendar provides working-time facts for a month ("YYYY-MM").
type WorkCalendar interface {
	GetCalendarFacts(ctx context.Context, yearMonth string) (*CalendarFacts, error)
}
