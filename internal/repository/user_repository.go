package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/minsu-dev/factory-ops/internal/model"
)

const userCols = "id,username,password,nickname,role,is_approved,perm_inventory,perm_calendar,perm_attendance,perm_logs,created_at"

// UserRepo provides access to the 'users' table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

func scanUser(row interface{ Scan(...any) error }) (model.User, error) {
	var u model.User
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Nickname, &u.Role, &u.IsApproved,
		&u.Permissions.Inventory, &u.Permissions.Calendar, &u.Permissions.Attendance,
		&u.Permissions.Logs, &u.CreatedAt)
	return u, err
}

// Create inserts a self-registered, unapproved user. Duplicate usernames
// report ErrConflict.
func (r *UserRepo) Create(ctx context.Context, username, password, nickname string) (model.User, error) {
	username = strings.TrimSpace(username)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username,password,nickname) VALUES (?,?,?)",
		username, password, strings.TrimSpace(nickname))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.User{}, ErrConflict
		}
		return model.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, err
	}
	return r.GetByID(ctx, uint64(id))
}

// GetByUsername fetches a user by exact username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username)))
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userCols+" FROM users WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return u, ErrNotFound
	}
	return u, err
}

// ListPending returns users awaiting approval.
func (r *UserRepo) ListPending(ctx context.Context) ([]model.User, error) {
	return r.list(ctx, "SELECT "+userCols+" FROM users WHERE is_approved=0 ORDER BY created_at")
}

// List returns all users.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	return r.list(ctx, "SELECT "+userCols+" FROM users ORDER BY created_at")
}

func (r *UserRepo) list(ctx context.Context, q string) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	users := []model.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Approve marks a user approved. Approval resets the permission map to
// all-false; the admin grants features afterwards.
func (r *UserRepo) Approve(ctx context.Context, username string) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET is_approved=1,
			perm_inventory=0, perm_calendar=0, perm_attendance=0, perm_logs=0
		 WHERE username=?`, username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByUsername(ctx, username); err != nil {
			return err
		}
	}
	return nil
}

// DeleteByUsername removes a user (admin rejection).
func (r *UserRepo) DeleteByUsername(ctx context.Context, username string) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM users WHERE username=?", username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePermissions overwrites the capability map of a user.
func (r *UserRepo) UpdatePermissions(ctx context.Context, username string, p model.PermissionMap) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE users SET perm_inventory=?, perm_calendar=?, perm_attendance=?, perm_logs=?
		 WHERE username=?`,
		p.Inventory, p.Calendar, p.Attendance, p.Logs, username)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetByUsername(ctx, username); err != nil {
			return err
		}
	}
	return nil
}

// ReplaceAll wholesale-replaces the collection (backup FULL import).
func (r *UserRepo) ReplaceAll(ctx context.Context, users []model.User) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM users"); err != nil {
		return err
	}
	for _, u := range users {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO users (username,password,nickname,role,is_approved,perm_inventory,perm_calendar,perm_attendance,perm_logs)
			 VALUES (?,?,?,?,?,?,?,?,?)`,
			u.Username, u.Password, u.Nickname, u.Role, u.IsApproved,
			u.Permissions.Inventory, u.Permissions.Calendar, u.Permissions.Attendance, u.Permissions.Logs); err != nil {
			return err
		}
	}
	return tx.Commit()
}
