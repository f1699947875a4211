// Package period aggregates reported absence against a work calendar.
package period

import (
	"sort"
	"time"

	"github.com/napryag/timereport_bot/pkg/repository/model"
	"github.com/shopspring/decimal"
)

// HoursPerWorkday is the fixed length of a working day.
var HoursPerWorkday = decimal.NewFromInt(8)

// Summary is the worked/absent picture of a reporting window.
type Summary struct {
	TotalWorkdays    int
	TotalAbsentHours decimal.Decimal
	PerReasonHours   map[string]decimal.Decimal
}

// TotalWorkHours is the hour budget of the window.
func (s Summary) TotalWorkHours() decimal.Decimal {
	return HoursPerWorkday.Mul(decimal.NewFromInt(int64(s.TotalWorkdays)))
}

// WorkedHours is the budget minus absence.
func (s Summary) WorkedHours() decimal.Decimal {
	return s.TotalWorkHours().Sub(s.TotalAbsentHours)
}

// Reasons returns the reasons with reported hours, sorted.
func (s Summary) Reasons() []string {
	out := make([]string, 0, len(s.PerReasonHours))
	for r := range s.PerReasonHours {
		out = append(out, r)
	}
	sort.Strings(out)
	return out
}

// IsWeekend reports whether t is a Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// FilterReportableEvents drops events on holidays and weekends.
func FilterReportableEvents(events []model.Event, facts model.CalendarFacts) []model.Event {
	out := make([]model.Event, 0, len(events))
	for _, e := range events {
		if IsWeekend(e.EventDate) {
			continue
		}
		if facts.IsHoliday(e.EventDate.Format(model.DateLayout)) {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Summarize sums the reportable hours of events, in total and per reason.
func Summarize(events []model.Event, facts model.CalendarFacts) Summary {
	s := Summary{
		TotalWorkdays:    facts.TotalWorkdays,
		TotalAbsentHours: decimal.Zero,
		PerReasonHours:   make(map[string]decimal.Decimal),
	}
	for _, e := range FilterReportableEvents(events, facts) {
		s.TotalAbsentHours = s.TotalAbsentHours.Add(e.Hours)
		s.PerReasonHours[e.Reason] = s.PerReasonHours[e.Reason].Add(e.Hours)
	}
	return s
}
