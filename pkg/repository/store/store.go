// Package store keeps events and locks in Postgres.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/napryag/timereport_bot/pkg/repository/model"
	"github.com/napryag/timereport_bot/pkg/utils/errs"
	"github.com/shopspring/decimal"
)

type PGRepo struct{ pool *pgxpool.Pool }

var _ model.Repo = (*PGRepo)(nil)

func NewRepo(ctx context.Context, dsn string) (*PGRepo, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errs.New("failed to create pool").Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errs.New("failed to ping database").Wrap(err)
	}
	return &PGRepo{pool: pool}, nil
}

func (r *PGRepo) Ping(ctx context.Context) error { return r.pool.Ping(ctx) }

func (r *PGRepo) Close() { r.pool.Close() }

// CreateEvent upserts the event. The insert is skipped when the month is locked,
// which the engine's own lock check cannot guarantee on its own.
func (r *PGRepo) CreateEvent(ctx context.Context, e model.Event) error {
	const q = `
		INSERT INTO report_event (user_id, user_name, reason, event_date, hours)
		SELECT $1, $2, $3, $4::date, $5::numeric
		WHERE NOT EXISTS (
			SELECT 1 FROM report_lock
			WHERE user_id = $1 AND month = to_char($4::date, 'YYYY-MM')
		)
		ON CONFLICT (user_id, event_date) DO UPDATE
		   SET user_name  = EXCLUDED.user_name,
		       reason     = EXCLUDED.reason,
		       hours      = EXCLUDED.hours,
		       updated_at = now()
		RETURNING id;
	`
	var id int64
	err := r.pool.QueryRow(ctx, q, e.UserID, e.UserName, e.Reason, e.EventDate, e.Hours.String()).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		month := e.EventDate.Format(model.MonthLayout)
		return errs.Validation("%s is locked", month).Arg("user_id", e.UserID)
	}
	if err != nil {
		return wrap("create event", err)
	}
	return nil
}

func (r *PGRepo) DeleteEvents(ctx context.Context, userID string, date time.Time) (int64, error) {
	var n int64
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var locked bool
		if err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM report_lock WHERE user_id=$1 AND month=to_char($2::date, 'YYYY-MM'))`,
			userID, date,
		).Scan(&locked); err != nil {
			return err
		}
		if locked {
			return errs.Validation("%s is locked", date.Format(model.MonthLayout)).Arg("user_id", userID)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM report_event WHERE user_id=$1 AND event_date=$2::date`, userID, date)
		if err != nil {
			return err
		}
		n = tag.RowsAffected()
		return nil
	})
	if err != nil {
		if errs.KindOf(err) == errs.KindValidation {
			return 0, err
		}
		return 0, wrap("delete events", err)
	}
	return n, nil
}

func (r *PGRepo) ReadEvents(ctx context.Context, userID string, from, to time.Time) ([]model.Event, error) {
	const q = `
		SELECT user_id, user_name, reason, event_date, hours::text
		FROM report_event
		WHERE user_id=$1 AND event_date BETWEEN $2::date AND $3::date
		ORDER BY event_date;
	`
	rows, err := r.pool.Query(ctx, q, userID, from, to)
	if err != nil {
		return nil, wrap("read events", err)
	}
	defer rows.Close()
	var out []model.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("read events", err)
	}
	return out, nil
}

func (r *PGRepo) ReadEvent(ctx context.Context, userID string, date time.Time) (*model.Event, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT user_id, user_name, reason, event_date, hours::text
		FROM report_event
		WHERE user_id=$1 AND event_date=$2::date`, userID, date)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *PGRepo) CreateLock(ctx context.Context, l model.Lock) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO report_lock (user_id, month) VALUES ($1,$2) ON CONFLICT (user_id, month) DO NOTHING`,
		l.UserID, l.Month)
	if err != nil {
		return wrap("create lock", err)
	}
	return nil
}

func (r *PGRepo) ReadLocks(ctx context.Context, userID string) ([]model.Lock, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id, month FROM report_lock WHERE user_id=$1 ORDER BY month`, userID)
	if err != nil {
		return nil, wrap("read locks", err)
	}
	defer rows.Close()
	var out []model.Lock
	for rows.Next() {
		var l model.Lock
		if err := rows.Scan(&l.UserID, &l.Month); err != nil {
			return nil, wrap("read locks", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, wrap("read locks", err)
	}
	return out, nil
}

func scanEvent(row pgx.Row) (*model.Event, error) {
	var e model.Event
	var hours string
	if err := row.Scan(&e.UserID, &e.UserName, &e.Reason, &e.EventDate, &hours); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, wrap("scan event", err)
	}
	h, err := decimal.NewFromString(hours)
	if err != nil {
		return nil, errs.New("invalid hours in store").Arg("hours", hours).Wrap(err)
	}
	e.Hours = h
	e.EventDate = time.Date(e.EventDate.Year(), e.EventDate.Month(), e.EventDate.Day(), 0, 0, 0, 0, time.UTC)
	return &e, nil
}

func wrap(op string, err error) error {
	ce := errs.Backend("%s failed", op)
	var pgerr *pgconn.PgError
	if errors.As(err, &pgerr) {
		ce = ce.Arg("code", pgerr.Code).Arg("constraint", pgerr.ConstraintName)
	}
	return ce.Wrap(err)
}
