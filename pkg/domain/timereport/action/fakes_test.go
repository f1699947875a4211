package action

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/napryag/timereport_bot/pkg/repository/model"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

var errBackend = errors.New("backend unavailable")

type fakeRepo struct {
	mu         sync.Mutex
	events     []model.Event
	locks      []model.Lock
	created    []model.Event
	deletedOn  []string
	failCreate map[string]bool
	failDelete map[string]bool
	locksErr   error
	readErr    error
}

func (f *fakeRepo) CreateEvent(_ context.Context, e model.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate[e.EventDate.Format(model.DateLayout)] {
		return errBackend
	}
	f.created = append(f.created, e)
	f.events = append(f.events, e)
	return nil
}

func (f *fakeRepo) DeleteEvents(_ context.Context, userID string, date time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDelete[date.Format(model.DateLayout)] {
		return 0, errBackend
	}
	f.deletedOn = append(f.deletedOn, date.Format(model.DateLayout))
	var n int64
	kept := f.events[:0]
	for _, e := range f.events {
		if e.UserID == userID && e.EventDate.Equal(date) {
			n++
			continue
		}
		kept = append(kept, e)
	}
	f.events = kept
	return n, nil
}

func (f *fakeRepo) ReadEvents(_ context.Context, userID string, from, to time.Time) ([]model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	var out []model.Event
	for _, e := range f.events {
		if e.UserID == userID && !e.EventDate.Before(from) && !e.EventDate.After(to) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EventDate.Before(out[j].EventDate) })
	return out, nil
}

func (f *fakeRepo) ReadEvent(_ context.Context, userID string, date time.Time) (*model.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	for _, e := range f.events {
		if e.UserID == userID && e.EventDate.Equal(date) {
			ev := e
			return &ev, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) CreateLock(_ context.Context, l model.Lock) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locksErr != nil {
		return f.locksErr
	}
	f.locks = append(f.locks, l)
	return nil
}

func (f *fakeRepo) ReadLocks(_ context.Context, userID string) ([]model.Lock, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locksErr != nil {
		return nil, f.locksErr
	}
	var out []model.Lock
	for _, l := range f.locks {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeRepo) createdDates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.created))
	for _, e := range f.created {
		out = append(out, e.EventDate.Format(model.DateLayout))
	}
	sort.Strings(out)
	return out
}

type sentMessage struct {
	Recipient string
	Text      string
}

type fakeMessenger struct {
	mu        sync.Mutex
	messages  []sentMessage
	prompts   []Proposal
	acks      []string
	promptErr error
}

func (m *fakeMessenger) PostMessage(_ context.Context, recipient, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, sentMessage{Recipient: recipient, Text: text})
	return nil
}

func (m *fakeMessenger) PostInteractivePrompt(_ context.Context, _ string, p Proposal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.promptErr != nil {
		return m.promptErr
	}
	m.prompts = append(m.prompts, p)
	return nil
}

func (m *fakeMessenger) AcknowledgeInteraction(_ context.Context, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acks = append(m.acks, ref)
	return nil
}

func (m *fakeMessenger) lastText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.messages) == 0 {
		return ""
	}
	return m.messages[len(m.messages)-1].Text
}

type fakeCalendar struct {
	facts map[string]model.CalendarFacts
}

func (c *fakeCalendar) GetCalendarFacts(_ context.Context, month string) (*model.CalendarFacts, error) {
	f, ok := c.facts[month]
	if !ok {
		return nil, errBackend
	}
	return &f, nil
}

func testConfig() Config {
	return Config{
		DateLayout:     "2006-01-02",
		Location:       time.UTC,
		ValidReasons:   []string{"vab", "sjuk", "intern", "semester"},
		DefaultHours:   decimal.NewFromInt(8),
		BackendTimeout: time.Second,
		Workers:        4,
	}
}

type harness struct {
	engine *Engine
	repo   *fakeRepo
	msg    *fakeMessenger
	cal    *fakeCalendar
}

// newHarness builds an engine whose "today" is 2020-05-21.
func newHarness(t *testing.T, cfg Config) *harness {
	t.Helper()
	h := &harness{
		repo: &fakeRepo{},
		msg:  &fakeMessenger{},
		cal:  &fakeCalendar{facts: map[string]model.CalendarFacts{}},
	}
	h.engine = New(cfg, h.repo, h.cal, h.msg, zerolog.Nop())
	h.engine.SetClock(func() time.Time { return time.Date(2020, 5, 21, 10, 0, 0, 0, time.UTC) })
	return h
}

func mustDay(s string) time.Time {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func ev(user, date, reason, hours string) model.Event {
	return model.Event{UserID: user, UserName: "alice", Reason: reason, EventDate: mustDay(date), Hours: decimal.RequireFromString(hours)}
}
