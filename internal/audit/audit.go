// Package audit writes the append-only action log. Every mutating action
// across inventory, calendar, attendance, auth and options records one
// entry synchronously as part of handling the action; a failed write fails
// the request. Retention is enforced by a periodic sweep because MySQL has
// no TTL indexes.
package audit

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/minsu-dev/factory-ops/internal/model"
	"github.com/minsu-dev/factory-ops/internal/repository"
)

// Logger appends audit entries and sweeps expired ones.
type Logger struct {
	logs      *repository.LogRepo
	log       *logrus.Logger
	retention time.Duration
}

// New returns a Logger with the given retention window.
func New(logs *repository.LogRepo, log *logrus.Logger, retentionDays int) *Logger {
	return &Logger{
		logs:      logs,
		log:       log,
		retention: time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Record appends one entry. The returned error must propagate: callers
// treat a lost audit record as a failed action.
func (a *Logger) Record(ctx context.Context, actor, action, category, targetID, details string) error {
	return a.logs.Append(ctx, model.LogEntry{
		User:     actor,
		Action:   action,
		Category: category,
		TargetID: targetID,
		Details:  details,
	})
}

// Sweep deletes entries past the retention window.
func (a *Logger) Sweep(ctx context.Context) {
	n, err := a.logs.DeleteOlderThan(ctx, time.Now().Add(-a.retention))
	if err != nil {
		a.log.WithError(err).Error("audit retention sweep failed")
		return
	}
	if n > 0 {
		a.log.WithField("purged", n).Info("audit retention sweep")
	}
}

// RunRetention sweeps immediately and then once a day until ctx ends.
func (a *Logger) RunRetention(ctx context.Context) {
	a.Sweep(ctx)
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.Sweep(ctx)
		}
	}
}
