package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"schedule-cli/internal/model"

	_ "modernc.org/sqlite"
)

const cacheFileName = "cache.sqlite"

// Cache keeps the last successful event fetch per server so the calendar can
// render before the network answers.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (and migrates) <dir>/cache.sqlite.
func (s Store) OpenCache(ctx context.Context) (*Cache, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	// modernc.org/sqlite driver name is "sqlite".
	db, err := sql.Open("sqlite", s.path(cacheFileName))
	if err != nil {
		return nil, err
	}
	// WAL lets the TUI read while `schedule sync` writes.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := migrateCache(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

func migrateCache(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS snapshots (
			server TEXT PRIMARY KEY,
			saved_at_unixms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snapshot_items (
			server TEXT NOT NULL,
			item_id INTEGER NOT NULL,
			start_wall TEXT NOT NULL,
			payload_json TEXT NOT NULL,
			PRIMARY KEY(server, item_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snapshot_items_start ON snapshot_items(server, start_wall);`,
	}
	for _, st := range stmts {
		if _, err := db.ExecContext(ctx, st); err != nil {
			return err
		}
	}
	return nil
}

func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func normServer(server string) string {
	return strings.TrimRight(strings.TrimSpace(server), "/")
}

// SaveSnapshot replaces the snapshot for server.
func (c *Cache) SaveSnapshot(ctx context.Context, server string, items []model.ScheduleItem) error {
	server = normServer(server)
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_items WHERE server = ?`, server); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO snapshot_items(server, item_id, start_wall, payload_json) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, it := range items {
		b, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("encode item %d: %w", it.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, server, it.ID, it.StartTime.Format(model.WireLayout), string(b)); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO snapshots(server, saved_at_unixms) VALUES(?, ?)`, server, time.Now().UnixMilli()); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadSnapshot returns the snapshot for server ordered by start. Items is nil
// when no snapshot was ever saved.
func (c *Cache) LoadSnapshot(ctx context.Context, server string) ([]model.ScheduleItem, time.Time, error) {
	server = normServer(server)
	var savedMS int64
	err := c.db.QueryRowContext(ctx, `SELECT saved_at_unixms FROM snapshots WHERE server = ?`, server).Scan(&savedMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, time.Time{}, nil
		}
		return nil, time.Time{}, err
	}

	rows, err := c.db.QueryContext(ctx, `SELECT payload_json FROM snapshot_items WHERE server = ? ORDER BY start_wall, item_id`, server)
	if err != nil {
		return nil, time.Time{}, err
	}
	defer rows.Close()

	items := []model.ScheduleItem{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, time.Time{}, err
		}
		var it model.ScheduleItem
		if err := json.Unmarshal([]byte(payload), &it); err != nil {
			return nil, time.Time{}, fmt.Errorf("decode cached item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, time.Time{}, err
	}
	return items, time.UnixMilli(savedMS), nil
}

// ClearSnapshot drops the snapshot for server.
func (c *Cache) ClearSnapshot(ctx context.Context, server string) error {
	server = normServer(server)
	if _, err := c.db.ExecContext(ctx, `DELETE FROM snapshot_items WHERE server = ?`, server); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx, `DELETE FROM snapshots WHERE server = ?`, server)
	return err
}

// ServerCache binds a Cache to one server.
type ServerCache struct {
	cache  *Cache
	server string
}

func (c *Cache) For(server string) *ServerCache {
	return &ServerCache{cache: c, server: server}
}

func (s *ServerCache) SaveSnapshot(ctx context.Context, items []model.ScheduleItem) error {
	return s.cache.SaveSnapshot(ctx, s.server, items)
}

func (s *ServerCache) LoadSnapshot(ctx context.Context) ([]model.ScheduleItem, time.Time, error) {
	return s.cache.LoadSnapshot(ctx, s.server)
}

func (s *ServerCache) Clear(ctx context.Context) error {
	return s.cache.ClearSnapshot(ctx, s.server)
}
