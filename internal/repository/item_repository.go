package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/minsu-dev/factory-ops/internal/model"
)

const itemCols = "id,name,size,length,quantity,category,alert_enabled,alert_threshold,last_updated_by,created_at,updated_at"

// ItemRepo provides access to the 'items' table. It is also the ledger the
// reconciliation engine mutates: Adjust and UpsertAdd each run as a single
// atomic statement so concurrent reconciliations against the same identity
// key cannot lose updates.
type ItemRepo struct{ DB *sql.DB }

func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{DB: db} }

func scanItem(row interface{ Scan(...any) error }) (model.Item, error) {
	var it model.Item
	err := row.Scan(&it.ID, &it.Name, &it.Size, &it.Length, &it.Quantity,
		&it.Category, &it.AlertEnabled, &it.AlertThreshold, &it.LastUpdatedBy,
		&it.CreatedAt, &it.UpdatedAt)
	return it, err
}

// List returns all items, newest first.
func (r *ItemRepo) List(ctx context.Context) ([]model.Item, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+itemCols+" FROM items ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []model.Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// InStock returns items with a positive balance, optionally filtered by
// category, most recently updated first. Used by the chatbot webhook.
func (r *ItemRepo) InStock(ctx context.Context, category string) ([]model.Item, error) {
	q := "SELECT " + itemCols + " FROM items WHERE quantity > 0"
	args := []any{}
	if category != "" {
		q += " AND category = ?"
		args = append(args, category)
	}
	q += " ORDER BY updated_at DESC"
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetByID fetches one item.
func (r *ItemRepo) GetByID(ctx context.Context, id uint64) (model.Item, error) {
	it, err := scanItem(r.DB.QueryRowContext(ctx,
		"SELECT "+itemCols+" FROM items WHERE id=? LIMIT 1", id))
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	return it, err
}

// FindByKey fetches one item by its normalized identity key.
func (r *ItemRepo) FindByKey(ctx context.Context, key model.ItemKey) (model.Item, error) {
	it, err := scanItem(r.DB.QueryRowContext(ctx,
		"SELECT "+itemCols+" FROM items WHERE name=? AND size=? AND length=? LIMIT 1",
		key.Name, key.Size, key.Length))
	if err == sql.ErrNoRows {
		return it, ErrNotFound
	}
	return it, err
}

// Create inserts a new item row (direct inventory add, not reconciliation).
func (r *ItemRepo) Create(ctx context.Context, it model.Item) (model.Item, error) {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO items (name,size,length,quantity,category,alert_enabled,alert_threshold,last_updated_by)
		 VALUES (?,?,?,?,?,?,?,?)`,
		it.Name, it.Size, it.Length, model.Round1(it.Quantity), it.Category,
		it.AlertEnabled, model.Round1(it.AlertThreshold), it.LastUpdatedBy)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return it, ErrConflict
		}
		return it, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return it, err
	}
	return r.GetByID(ctx, uint64(id))
}

// Update overwrites the mutable attributes of an item by id. This is the
// direct-edit admin path; it may legitimately set any balance, including a
// negative one.
func (r *ItemRepo) Update(ctx context.Context, it model.Item) (model.Item, error) {
	_, err := r.DB.ExecContext(ctx,
		`UPDATE items SET quantity=?, category=?, alert_enabled=?, alert_threshold=?, last_updated_by=?
		 WHERE id=?`,
		model.Round1(it.Quantity), it.Category, it.AlertEnabled,
		model.Round1(it.AlertThreshold), it.LastUpdatedBy, it.ID)
	if err != nil {
		return it, err
	}
	// RowsAffected cannot distinguish "missing" from "unchanged"; the
	// re-read reports ErrNotFound for the former.
	return r.GetByID(ctx, it.ID)
}

// Delete removes an item by id.
func (r *ItemRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM items WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Adjust adds delta to the item's balance in one statement, rounding inside
// the database so the stored value never drifts past one decimal. Returns
// ErrNotFound when the identity key has no row.
func (r *ItemRepo) Adjust(ctx context.Context, key model.ItemKey, delta decimal.Decimal, updatedBy string) (model.Item, error) {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE items SET quantity = ROUND(quantity + ?, 1), last_updated_by = ?
		 WHERE name=? AND size=? AND length=?`,
		model.Round1(delta), updatedBy, key.Name, key.Size, key.Length)
	if err != nil {
		return model.Item{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 both for a missing row and for a no-op update
		// (delta 0); distinguish by re-reading.
		if it, ferr := r.FindByKey(ctx, key); ferr == nil {
			return it, nil
		}
		return model.Item{}, ErrNotFound
	}
	return r.FindByKey(ctx, key)
}

// UpsertAdd adds delta to the item's balance, creating the row when the
// identity key is new. The unique key over (name, size, length) makes the
// create race-safe: two concurrent first receipts both land as additions.
func (r *ItemRepo) UpsertAdd(ctx context.Context, key model.ItemKey, delta decimal.Decimal, category, updatedBy string) (model.Item, error) {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO items (name,size,length,quantity,category,last_updated_by)
		 VALUES (?,?,?,?,?,?)
		 ON DUPLICATE KEY UPDATE
			quantity = ROUND(quantity + VALUES(quantity), 1),
			last_updated_by = VALUES(last_updated_by)`,
		key.Name, key.Size, key.Length, model.Round1(delta), category, updatedBy)
	if err != nil {
		return model.Item{}, err
	}
	return r.FindByKey(ctx, key)
}

// ReplaceAll wholesale-replaces the collection (backup FULL import).
func (r *ItemRepo) ReplaceAll(ctx context.Context, items []model.Item) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM items"); err != nil {
		return err
	}
	for _, it := range items {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO items (name,size,length,quantity,category,alert_enabled,alert_threshold,last_updated_by)
			 VALUES (?,?,?,?,?,?,?,?)`,
			it.Name, it.Size, it.Length, model.Round1(it.Quantity), it.Category,
			it.AlertEnabled, model.Round1(it.AlertThreshold), it.LastUpdatedBy); err != nil {
			return err
		}
	}
	return tx.Commit()
}
