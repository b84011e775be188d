package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/minsu-dev/factory-ops/internal/model"
)

// EventRepo provides access to the 'events' table and its 'event_items'
// children. An event and its lines are always written in one transaction;
// the items array of a stored event is the authority for what the
// reconciliation engine must reverse on update or delete.
type EventRepo struct{ DB *sql.DB }

func NewEventRepo(db *sql.DB) *EventRepo { return &EventRepo{DB: db} }

// List returns all events with their line items, newest first.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,title,start,all_day,type,created_by,created_at FROM events ORDER BY start DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []model.Event{}
	index := map[uint64]int{}
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Start, &ev.AllDay, &ev.Type, &ev.CreatedBy, &ev.CreatedAt); err != nil {
			return nil, err
		}
		ev.Items = []model.EventItem{}
		index[ev.ID] = len(events)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := r.DB.QueryContext(ctx,
		"SELECT id,event_id,name,size,length,quantity,role FROM event_items ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()
	for itemRows.Next() {
		var it model.EventItem
		var eventID uint64
		if err := itemRows.Scan(&it.ID, &eventID, &it.Name, &it.Size, &it.Length, &it.Quantity, &it.Role); err != nil {
			return nil, err
		}
		if i, ok := index[eventID]; ok {
			events[i].Items = append(events[i].Items, it)
		}
	}
	return events, itemRows.Err()
}

// GetByID fetches one event including its line items.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	var ev model.Event
	err := r.DB.QueryRowContext(ctx,
		"SELECT id,title,start,all_day,type,created_by,created_at FROM events WHERE id=? LIMIT 1", id).
		Scan(&ev.ID, &ev.Title, &ev.Start, &ev.AllDay, &ev.Type, &ev.CreatedBy, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return ev, ErrNotFound
	}
	if err != nil {
		return ev, err
	}
	ev.Items, err = r.itemsOf(ctx, ev.ID)
	return ev, err
}

func (r *EventRepo) itemsOf(ctx context.Context, eventID uint64) ([]model.EventItem, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT id,name,size,length,quantity,role FROM event_items WHERE event_id=? ORDER BY id", eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []model.EventItem{}
	for rows.Next() {
		var it model.EventItem
		if err := rows.Scan(&it.ID, &it.Name, &it.Size, &it.Length, &it.Quantity, &it.Role); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// FindSameDay returns the first event of the given type whose start falls
// inside [dayStart, dayEnd), or ErrNotFound. Used by same-day aggregation.
func (r *EventRepo) FindSameDay(ctx context.Context, typ model.EventType, dayStart, dayEnd time.Time) (model.Event, error) {
	var ev model.Event
	err := r.DB.QueryRowContext(ctx,
		`SELECT id,title,start,all_day,type,created_by,created_at FROM events
		 WHERE type=? AND start >= ? AND start < ? ORDER BY id LIMIT 1`,
		typ, dayStart.UTC(), dayEnd.UTC()).
		Scan(&ev.ID, &ev.Title, &ev.Start, &ev.AllDay, &ev.Type, &ev.CreatedBy, &ev.CreatedAt)
	if err == sql.ErrNoRows {
		return ev, ErrNotFound
	}
	if err != nil {
		return ev, err
	}
	ev.Items, err = r.itemsOf(ctx, ev.ID)
	return ev, err
}

// Create inserts the event and its line items in one transaction.
func (r *EventRepo) Create(ctx context.Context, ev model.Event) (model.Event, error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return ev, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO events (title,start,all_day,type,created_by) VALUES (?,?,?,?,?)",
		ev.Title, ev.Start.UTC(), ev.AllDay, ev.Type, ev.CreatedBy)
	if err != nil {
		return ev, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ev, err
	}
	ev.ID = uint64(id)
	if err := insertEventItems(ctx, tx, ev.ID, ev.Items); err != nil {
		return ev, err
	}
	return ev, tx.Commit()
}

// Update rewrites the event row and replaces its line items.
func (r *EventRepo) Update(ctx context.Context, ev model.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"UPDATE events SET title=?, start=?, all_day=?, type=?, created_by=? WHERE id=?",
		ev.Title, ev.Start.UTC(), ev.AllDay, ev.Type, ev.CreatedBy, ev.ID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM event_items WHERE event_id=?", ev.ID); err != nil {
		return err
	}
	if err := insertEventItems(ctx, tx, ev.ID, ev.Items); err != nil {
		return err
	}
	return tx.Commit()
}

func insertEventItems(ctx context.Context, tx *sql.Tx, eventID uint64, items []model.EventItem) error {
	for _, it := range items {
		key := it.Key()
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO event_items (event_id,name,size,length,quantity,role) VALUES (?,?,?,?,?,?)",
			eventID, key.Name, key.Size, key.Length, model.Round1(it.Quantity), it.Role); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes an event; event_items follow via ON DELETE CASCADE.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM events WHERE id=?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListRange returns events starting inside [from, to]. Used by filtered
// backup export.
func (r *EventRepo) ListRange(ctx context.Context, from, to time.Time) ([]model.Event, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id,title,start,all_day,type,created_by,created_at FROM events
		 WHERE start >= ? AND start <= ? ORDER BY start`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	events := []model.Event{}
	for rows.Next() {
		var ev model.Event
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.Start, &ev.AllDay, &ev.Type, &ev.CreatedBy, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range events {
		if events[i].Items, err = r.itemsOf(ctx, events[i].ID); err != nil {
			return nil, err
		}
	}
	return events, nil
}

// InsertMany appends events without touching existing rows (backup FILTERED
// import). Imported events do not pass through the reconciliation engine.
func (r *EventRepo) InsertMany(ctx context.Context, events []model.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, ev := range events {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO events (title,start,all_day,type,created_by) VALUES (?,?,?,?,?)",
			ev.Title, ev.Start.UTC(), ev.AllDay, ev.Type, ev.CreatedBy)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertEventItems(ctx, tx, uint64(id), ev.Items); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ReplaceAll wholesale-replaces the collection (backup FULL import).
func (r *EventRepo) ReplaceAll(ctx context.Context, events []model.Event) error {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, "DELETE FROM events"); err != nil {
		return err
	}
	for _, ev := range events {
		res, err := tx.ExecContext(ctx,
			"INSERT INTO events (title,start,all_day,type,created_by) VALUES (?,?,?,?,?)",
			ev.Title, ev.Start.UTC(), ev.AllDay, ev.Type, ev.CreatedBy)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		if err := insertEventItems(ctx, tx, uint64(id), ev.Items); err != nil {
			return err
		}
	}
	return tx.Commit()
}
