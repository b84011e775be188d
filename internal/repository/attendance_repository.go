package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/minsu-dev/factory-ops/internal/model"
)

const attendanceCols = "id,user_id,username,nickname,date,clock_in,clock_out,duration,created_at"

// AttendanceRepo provides access to the 'attendance' table. The unique
// (user_id, date) key is the durable backstop of the one-record-per-day
// invariant; the engine's lock only narrows the race window.
type AttendanceRepo struct{ DB *sql.DB }

func NewAttendanceRepo(db *sql.DB) *AttendanceRepo { return &AttendanceRepo{DB: db} }

func scanAttendance(row interface{ Scan(...any) error }) (model.Attendance, error) {
	var rec model.Attendance
	var out sql.NullTime
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Username, &rec.Nickname, &rec.Date,
		&rec.ClockIn, &out, &rec.Duration, &rec.CreatedAt)
	if out.Valid {
		t := out.Time
		rec.ClockOut = &t
	}
	return rec, err
}

// FindByUserDate fetches the record for one user on one business date.
func (r *AttendanceRepo) FindByUserDate(ctx context.Context, userID uint64, date string) (model.Attendance, error) {
	rec, err := scanAttendance(r.DB.QueryRowContext(ctx,
		"SELECT "+attendanceCols+" FROM attendance WHERE user_id=? AND date=? LIMIT 1", userID, date))
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	return rec, err
}

// GetByID fetches one record.
func (r *AttendanceRepo) GetByID(ctx context.Context, id uint64) (model.Attendance, error) {
	rec, err := scanAttendance(r.DB.QueryRowContext(ctx,
		"SELECT "+attendanceCols+" FROM attendance WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	return rec, err
}

// Create inserts a clock-in record. A duplicate (user, date) reports
// ErrConflict.
func (r *AttendanceRepo) Create(ctx context.Context, rec model.Attendance) (model.Attendance, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO attendance (user_id,username,nickname,date,clock_in) VALUES (?,?,?,?,?)",
		rec.UserID, rec.Username, rec.Nickname, rec.Date, rec.ClockIn.UTC())
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return rec, ErrConflict
		}
		return rec, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return rec, err
	}
	return r.GetByID(ctx, uint64(id))
}

// SetClockOut closes a record and fixes its duration.
func (r *AttendanceRepo) SetClockOut(ctx context.Context, id uint64, clockOut time.Time, duration int64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE attendance SET clock_out=?, duration=? WHERE id=?",
		clockOut.UTC(), duration, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Edit overwrites nickname and clock times on an existing record (manual
// admin correction). The duration is recomputed by the caller.
func (r *AttendanceRepo) Edit(ctx context.Context, rec model.Attendance) error {
	var out any
	if rec.ClockOut != nil {
		out = rec.ClockOut.UTC()
	}
	res, err := r.DB.ExecContext(ctx,
		"UPDATE attendance SET nickname=?, clock_in=?, clock_out=?, duration=? WHERE id=?",
		rec.Nickname, rec.ClockIn.UTC(), out, rec.Duration, rec.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByID(ctx, rec.ID); err != nil {
			return err
		}
	}
	return nil
}

// ListAll returns every record ordered by clock-in, for the calendar view.
func (r *AttendanceRepo) ListAll(ctx context.Context) ([]model.Attendance, error) {
	return r.query(ctx, "SELECT "+attendanceCols+" FROM attendance ORDER BY clock_in")
}

// Search returns records matching a case-insensitive substring of the
// nickname or username and an optional YYYY-MM month prefix, newest first.
func (r *AttendanceRepo) Search(ctx context.Context, nameQuery, monthPrefix string) ([]model.Attendance, error) {
	q := "SELECT " + attendanceCols + " FROM attendance WHERE 1=1"
	args := []any{}
	if nameQuery = strings.TrimSpace(nameQuery); nameQuery != "" {
		pattern := "%" + strings.ToLower(nameQuery) + "%"
		q += " AND (LOWER(nickname) LIKE ? OR LOWER(username) LIKE ?)"
		args = append(args, pattern, pattern)
	}
	if monthPrefix = strings.TrimSpace(monthPrefix); monthPrefix != "" {
		q += " AND date LIKE ?"
		args = append(args, monthPrefix+"%")
	}
	q += " ORDER BY date DESC, id DESC"
	return r.query(ctx, q, args...)
}

// ListRange returns records with a date inside [from, to] (date strings,
// inclusive). Used by filtered backup export.
func (r *AttendanceRepo) ListRange(ctx context.Context, from, to string) ([]model.Attendance, error) {
	return r.query(ctx,
		"SELECT "+attendanceCols+" FROM attendance WHERE date >= ? AND date <= ? ORDER BY date", from, to)
}

func (r *AttendanceRepo) query(ctx context.Context, q string, args ...any) ([]model.Attendance, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	recs := []model.Attendance{}
	for rows.Next() {
		rec, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// InsertMany appends records (backup FILTERED import).
func (r *AttendanceRepo) InsertMany(ctx context.Context, recs []model.Attendance) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, rec := range recs {
		if err := insertAttendance(ctx, tx, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceAll wholesale-replaces the collection (backup FULL import).
func (r *AttendanceRepo) ReplaceAll(ctx context.Context, recs []model.Attendance) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM attendance"); err != nil {
		return err
	}
	for _, rec := range recs {
		if err := insertAttendance(ctx, tx, rec); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func insertAttendance(ctx context.Context, tx *sql.Tx, rec model.Attendance) error {
	var out any
	if rec.ClockOut != nil {
		out = rec.ClockOut.UTC()
	}
	_, err := tx.ExecContext(ctx,
		"INSERT INTO attendance (user_id,username,nickname,date,clock_in,clock_out,duration) VALUES (?,?,?,?,?,?,?)",
		rec.UserID, rec.Username, rec.Nickname, rec.Date, rec.ClockIn.UTC(), out, rec.Duration)
	return err
}
