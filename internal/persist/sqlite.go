package persist

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"dealroom/internal/domain"
)

const defaultDBName = "dealroom.db"

type Config struct {
	Workspace string
}

func dbPath(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, ".dealroom", defaultDBName)
}

// EnsureWorkspace creates the workspace directory if missing.
func EnsureWorkspace(workspace string) (string, error) {
	path := filepath.Join(workspace, ".dealroom")
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// Open opens the SQLite database with foreign keys on.
func Open(cfg Config) (*sql.DB, error) {
	if _, err := EnsureWorkspace(cfg.Workspace); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", dbPath(cfg.Workspace))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Path returns the db path for the workspace.
func Path(workspace string) string {
	return dbPath(workspace)
}

// SQLite persists whole-aggregate snapshots as JSON rows keyed by deal id.
type SQLite struct {
	DB  *sql.DB
	Now func() time.Time
}

func (s SQLite) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s SQLite) Save(ctx context.Context, dealID string, snap domain.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	now := s.now().UTC().Format(time.RFC3339)
	_, err = s.DB.ExecContext(ctx, `INSERT INTO snapshots(deal_id,snapshot_json,created_at,updated_at) VALUES (?,?,?,?)
ON CONFLICT(deal_id) DO UPDATE SET snapshot_json=excluded.snapshot_json, updated_at=excluded.updated_at`,
		dealID, string(payload), now, now)
	return err
}

func (s SQLite) Load(ctx context.Context, dealID string) (*domain.Snapshot, error) {
	var payload string
	err := s.DB.QueryRowContext(ctx, `SELECT snapshot_json FROM snapshots WHERE deal_id=?`, dealID).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var snap domain.Snapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot for %s: %w", dealID, err)
	}
	return &snap, nil
}

// ListDealIDs returns the ids of all persisted deals, newest first.
func (s SQLite) ListDealIDs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT deal_id FROM snapshots ORDER BY updated_at DESC, deal_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
