package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/napryag/timereport_bot/pkg/repository/model"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *PGRepo {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, dsn))

	r, err := NewRepo(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = r.pool.Exec(ctx, `DELETE FROM report_event WHERE user_id LIKE 'test-%'`)
		_, _ = r.pool.Exec(ctx, `DELETE FROM report_lock WHERE user_id LIKE 'test-%'`)
		r.Close()
	})
	return r
}

func day(s string) time.Time {
	d, _ := time.Parse(model.DateLayout, s)
	return d
}

func TestPGRepo_Events(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	user := "test-" + time.Now().Format("150405.000000")

	for _, d := range []string{"2020-05-20", "2020-05-21", "2020-06-01"} {
		require.NoError(t, r.CreateEvent(ctx, model.Event{
			UserID: user, UserName: "alice", Reason: "vab", EventDate: day(d), Hours: decimal.RequireFromString("7.25"),
		}))
	}
	// upsert
	require.NoError(t, r.CreateEvent(ctx, model.Event{
		UserID: user, UserName: "alice", Reason: "sjuk", EventDate: day("2020-05-21"), Hours: decimal.NewFromInt(4),
	}))

	events, err := r.ReadEvents(ctx, user, day("2020-05-01"), day("2020-05-31"))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "7.25", events[0].Hours.String())
	assert.Equal(t, "sjuk", events[1].Reason)
	assert.True(t, events[1].EventDate.Equal(day("2020-05-21")))

	e, err := r.ReadEvent(ctx, user, day("2020-05-22"))
	require.NoError(t, err)
	assert.Nil(t, e)

	n, err := r.DeleteEvents(ctx, user, day("2020-05-21"))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = r.DeleteEvents(ctx, user, day("2020-05-21"))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPGRepo_NegativeHours(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	user := "test-neg-" + time.Now().Format("150405.000000")

	require.NoError(t, r.CreateEvent(ctx, model.Event{
		UserID: user, Reason: "intern", EventDate: day("2020-05-20"), Hours: decimal.RequireFromString("-2.5"),
	}))
	e, err := r.ReadEvent(ctx, user, day("2020-05-20"))
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "-2.5", e.Hours.String())
}

func TestPGRepo_Locks(t *testing.T) {
	r := newTestRepo(t)
	ctx := context.Background()
	user := "test-lock-" + time.Now().Format("150405.000000")

	require.NoError(t, r.CreateEvent(ctx, model.Event{
		UserID: user, Reason: "vab", EventDate: day("2020-05-20"), Hours: decimal.NewFromInt(8),
	}))
	require.NoError(t, r.CreateLock(ctx, model.Lock{UserID: user, Month: "2020-05"}))
	require.NoError(t, r.CreateLock(ctx, model.Lock{UserID: user, Month: "2020-05"}))

	locks, err := r.ReadLocks(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []model.Lock{{UserID: user, Month: "2020-05"}}, locks)

	err = r.CreateEvent(ctx, model.Event{UserID: user, Reason: "vab", EventDate: day("2020-05-21"), Hours: decimal.NewFromInt(8)})
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))

	_, err = r.DeleteEvents(ctx, user, day("2020-05-20"))
	assert.Equal(t, errs.KindValidation, errs.KindOf(err))
}
