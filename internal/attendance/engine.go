// Package attendance implements the daily clock-in/clock-out state machine.
// Per (user, civil day) the lifecycle is NO_RECORD -> CLOCKED_IN ->
// CLOCKED_OUT, terminal for the day. Both transitions run under a
// short-lived Redis lock so a double-tap on a slow connection cannot
// create two records or apply clock-out twice.
package attendance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minsu-dev/factory-ops/internal/cache"
	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/repository"
)

// State machine violations. Handlers map these onto HTTP 409 and 404.
var (
	ErrAlreadyClockedIn  = errors.New("already clocked in today")
	ErrAlreadyClockedOut = errors.New("already clocked out today")
	ErrNoClockInRecord   = errors.New("no clock-in record for today")
)

// Store is the attendance persistence the engine needs.
type Store interface {
	FindByUserDate(ctx context.Context, userID uint64, date string) (model.Attendance, error)
	Create(ctx context.Context, rec model.Attendance) (model.Attendance, error)
	SetClockOut(ctx context.Context, id uint64, clockOut time.Time, duration int64) error
}

// Engine serializes clock-in/out per (user, day).
type Engine struct {
	store   Store
	locker  cache.Locker
	loc     *time.Location // fixed business timezone, never server-local
	lockTTL time.Duration
	now     func() time.Time
}

// New returns an Engine. loc is the fixed civil timezone the business day
// is computed in (KST in production).
func New(store Store, locker cache.Locker, loc *time.Location, lockTTL time.Duration) *Engine {
	return &Engine{store: store, locker: locker, loc: loc, lockTTL: lockTTL, now: time.Now}
}

// Today returns the current business date as YYYY-MM-DD.
func (e *Engine) Today() string {
	return e.now().In(e.loc).Format("2006-01-02")
}

func lockKey(op string, userID uint64, date string) string {
	return fmt.Sprintf("lock:attendance:%s:%d:%s", op, userID, date)
}

// CheckIn creates today's record. It fails with ErrAlreadyClockedIn when a
// record exists, and with cache.ErrLockNotObtained when a concurrent
// request holds the lock (the caller retries, it never queues).
func (e *Engine) CheckIn(ctx context.Context, ident model.Identity) (model.Attendance, error) {
	today := e.Today()
	release, err := e.locker.TryLock(ctx, lockKey("check-in", ident.ID, today), e.lockTTL)
	if err != nil {
		return model.Attendance{}, err
	}
	defer release()

	_, err = e.store.FindByUserDate(ctx, ident.ID, today)
	if err == nil {
		return model.Attendance{}, ErrAlreadyClockedIn
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return model.Attendance{}, err
	}

	rec, err := e.store.Create(ctx, model.Attendance{
		UserID:   ident.ID,
		Username: ident.Username,
		Nickname: ident.Nickname,
		Date:     today,
		ClockIn:  e.now(),
	})
	if errors.Is(err, repository.ErrConflict) {
		// Unique (user_id, date) key caught a race the lock missed
		// (e.g. lock TTL expired mid-request).
		return model.Attendance{}, ErrAlreadyClockedIn
	}
	return rec, err
}

// CheckOut closes today's record and fixes the worked duration in whole
// seconds.
func (e *Engine) CheckOut(ctx context.Context, ident model.Identity) (model.Attendance, error) {
	today := e.Today()
	release, err := e.locker.TryLock(ctx, lockKey("check-out", ident.ID, today), e.lockTTL)
	if err != nil {
		return model.Attendance{}, err
	}
	defer release()

	rec, err := e.store.FindByUserDate(ctx, ident.ID, today)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Attendance{}, ErrNoClockInRecord
	}
	if err != nil {
		return model.Attendance{}, err
	}
	if rec.ClockOut != nil {
		return model.Attendance{}, ErrAlreadyClockedOut
	}

	out := e.now()
	dur := Duration(rec.ClockIn, out)
	if err := e.store.SetClockOut(ctx, rec.ID, out, dur); err != nil {
		return model.Attendance{}, err
	}
	rec.ClockOut = &out
	rec.Duration = dur
	return rec, nil
}

// Status returns today's record for the user, or ErrNotFound when the day
// has no record yet.
func (e *Engine) Status(ctx context.Context, ident model.Identity) (model.Attendance, error) {
	return e.store.FindByUserDate(ctx, ident.ID, e.Today())
}

// Duration computes worked seconds, floored.
func Duration(in, out time.Time) int64 {
	return int64(out.Sub(in) / time.Second)
}
