package events

import (
	"context"
	"database/sql"

	"dealroom/internal/domain"
)

// Writer appends activity items to the durable audit table. The snapshot
// already carries the activity log; this table exists so tails and webhook
// dispatch can cursor over rowids without reloading whole snapshots.
type Writer struct {
	DB *sql.DB
}

func (w Writer) Append(ctx context.Context, dealID string, item domain.ActivityItem) error {
	_, err := w.DB.ExecContext(ctx, `INSERT INTO activity(activity_id,deal_id,ts,actor,type,note) VALUES (?,?,?,?,?,?)`,
		item.ID, dealID, item.TS, item.Actor, string(item.Type), nullable(item.Note))
	return err
}

// Entry is one audit row with its rowid cursor.
type Entry struct {
	Cursor int64               `json:"cursor"`
	DealID string              `json:"deal_id"`
	Item   domain.ActivityItem `json:"item"`
}

// After returns entries with rowids greater than the cursor in ascending
// order, optionally filtered by deal.
func (w Writer) After(ctx context.Context, limit int, cursor int64, dealID string) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT id,activity_id,deal_id,ts,actor,type,COALESCE(note,'') FROM activity WHERE id>?`
	args := []any{cursor}
	if dealID != "" {
		query += ` AND deal_id=?`
		args = append(args, dealID)
	}
	query += ` ORDER BY id ASC LIMIT ?`
	args = append(args, limit)
	rows, err := w.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Entry
	for rows.Next() {
		var e Entry
		var typ string
		if err := rows.Scan(&e.Cursor, &e.Item.ID, &e.DealID, &e.Item.TS, &e.Item.Actor, &typ, &e.Item.Note); err != nil {
			return nil, err
		}
		e.Item.Type = domain.ActivityType(typ)
		res = append(res, e)
	}
	return res, rows.Err()
}

// Latest returns the most recent entries for a deal, newest first.
func (w Writer) Latest(ctx context.Context, limit int, dealID string) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT id,activity_id,deal_id,ts,actor,type,COALESCE(note,'') FROM activity WHERE 1=1`
	var args []any
	if dealID != "" {
		query += ` AND deal_id=?`
		args = append(args, dealID)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)
	rows, err := w.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []Entry
	for rows.Next() {
		var e Entry
		var typ string
		if err := rows.Scan(&e.Cursor, &e.Item.ID, &e.DealID, &e.Item.TS, &e.Item.Actor, &typ, &e.Item.Note); err != nil {
			return nil, err
		}
		e.Item.Type = domain.ActivityType(typ)
		res = append(res, e)
	}
	return res, rows.Err()
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
