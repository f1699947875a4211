// Package workcalendar fetches the number of working days and the public holidays
// of a month from an external calendar service.
package workcalendar

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/napryag/timereport_bot/pkg/repository/model"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
	"github.com/rs/zerolog"
)

const (
	defaultTimeout   = time.Second
	defaultCacheSize = 24
	defaultCacheTTL  = 24 * time.Hour
)

type Options struct {
	// BaseURL is the service root; months are fetched from {BaseURL}/{YYYY-MM}.json.
	BaseURL   string
	Timeout   time.Duration
	CacheSize int
	CacheTTL  time.Duration
}

type monthResponse struct {
	Workdays int `json:"antal_arbetsdagar"`
	Holidays []struct {
		Date string `json:"datum"`
	} `json:"helgdagar"`
}

type Client struct {
	http   *resty.Client
	cache  *expirable.LRU[string, model.CalendarFacts]
	logger zerolog.Logger
}

var _ model.WorkCalendar = (*Client)(nil)

func New(opts Options, logger zerolog.Logger) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = defaultCacheTTL
	}

	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
			SetTimeout(opts.Timeout).
			SetHeader("Accept", "application/json"),
		cache:  expirable.NewLRU[string, model.CalendarFacts](opts.CacheSize, nil, opts.CacheTTL),
		logger: logger.With().Str("component", "workcalendar").Logger(),
	}
}

// GetCalendarFacts returns the facts of yearMonth ("YYYY-MM"). Successful answers are cached.
func (c *Client) GetCalendarFacts(ctx context.Context, yearMonth string) (*model.CalendarFacts, error) {
	if f, ok := c.cache.Get(yearMonth); ok {
		return &f, nil
	}

	if _, err := time.Parse(model.MonthLayout, yearMonth); err != nil {
		return nil, errs.Validation("invalid month %s", yearMonth).Wrap(err)
	}

	var body monthResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("month", yearMonth).
		ForceContentType("application/json").
		SetResult(&body).
		Get("/{month}.json")
	if err != nil {
		return nil, errs.Backend("calendar request failed").Arg("month", yearMonth).Wrap(err)
	}
	if resp.StatusCode() != http.StatusOK {
		c.logger.Debug().Int("status", resp.StatusCode()).Str("month", yearMonth).Msg("unexpected calendar response")
		return nil, errs.Backend("calendar returned status %d", resp.StatusCode()).Arg("month", yearMonth)
	}

	facts := model.CalendarFacts{
		TotalWorkdays: body.Workdays,
		Holidays:      make(map[string]struct{}, len(body.Holidays)),
	}
	for _, h := range body.Holidays {
		facts.Holidays[h.Date] = struct{}{}
	}
	c.cache.Add(yearMonth, facts)

	return &facts, nil
}
