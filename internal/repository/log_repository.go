package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/minsu-dev/factory-ops/internal/model"
)

const logCols = "id,user,action,category,target_id,details,timestamp"

// LogRepo provides access to the append-only 'logs' table. Rows are never
// updated; retention is enforced by DeleteOlderThan.
type LogRepo struct{ DB *sql.DB }

func NewLogRepo(db *sql.DB) *LogRepo { return &LogRepo{DB: db} }

// Append writes one audit entry.
func (r *LogRepo) Append(ctx context.Context, e model.LogEntry) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO logs (user,action,category,target_id,details) VALUES (?,?,?,?,?)",
		e.User, e.Action, e.Category, e.TargetID, e.Details)
	return err
}

// List returns recent entries, newest first, optionally filtered by
// category. limit <= 0 defaults to 500.
func (r *LogRepo) List(ctx context.Context, category string, limit int) ([]model.LogEntry, error) {
	if limit <= 0 {
		limit = 500
	}
	q := "SELECT " + logCols + " FROM logs"
	args := []any{}
	if category != "" {
		q += " WHERE category = ?"
		args = append(args, category)
	}
	q += " ORDER BY timestamp DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []model.LogEntry{}
	for rows.Next() {
		var e model.LogEntry
		if err := rows.Scan(&e.ID, &e.User, &e.Action, &e.Category, &e.TargetID, &e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ListRange returns entries stamped inside [from, to]. Used by filtered
// backup export.
func (r *LogRepo) ListRange(ctx context.Context, from, to time.Time) ([]model.LogEntry, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+logCols+" FROM logs WHERE timestamp >= ? AND timestamp <= ? ORDER BY timestamp",
		from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	entries := []model.LogEntry{}
	for rows.Next() {
		var e model.LogEntry
		if err := rows.Scan(&e.ID, &e.User, &e.Action, &e.Category, &e.TargetID, &e.Details, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteOlderThan purges entries past the retention window and returns how
// many were removed.
func (r *LogRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM logs WHERE timestamp < ?", cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// InsertMany appends entries (backup import; logs are merged, never
// replaced, so history survives a restore).
func (r *LogRepo) InsertMany(ctx context.Context, entries []model.LogEntry) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, e := range entries {
		ts := e.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO logs (user,action,category,target_id,details,timestamp) VALUES (?,?,?,?,?,?)",
			e.User, e.Action, e.Category, e.TargetID, e.Details, ts.UTC()); err != nil {
			return err
		}
	}
	return tx.Commit()
}
