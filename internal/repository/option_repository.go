package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/minsu-dev/factory-ops/internal/model"
)

// OptionRepo provides access to the 'options' table.
type OptionRepo struct{ DB *sql.DB }

func NewOptionRepo(db *sql.DB) *OptionRepo { return &OptionRepo{DB: db} }

// List returns all dropdown options.
func (r *OptionRepo) List(ctx context.Context) ([]model.Option, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT id,type,value FROM options ORDER BY type, value")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	opts := []model.Option{}
	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.Type, &o.Value); err != nil {
			return nil, err
		}
		opts = append(opts, o)
	}
	return opts, rows.Err()
}

// Create inserts an option. A duplicate (type, value) reports ErrConflict.
func (r *OptionRepo) Create(ctx context.Context, typ, value string) (model.Option, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO options (type,value) VALUES (?,?)", typ, strings.TrimSpace(value))
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return model.Option{}, ErrConflict
		}
		return model.Option{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Option{}, err
	}
	return model.Option{ID: uint64(id), Type: typ, Value: strings.TrimSpace(value)}, nil
}

// Delete removes an option by id.
func (r *OptionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM options WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ReplaceAll wholesale-replaces the collection (backup FULL import).
func (r *OptionRepo) ReplaceAll(ctx context.Context, opts []model.Option) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM options"); err != nil {
		return err
	}
	for _, o := range opts {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO options (type,value) VALUES (?,?)", o.Type, o.Value); err != nil {
			return err
		}
	}
	return tx.Commit()
}
