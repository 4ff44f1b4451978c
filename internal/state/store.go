package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

type Store struct {
	db    *sql.DB
	nowFn func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, nowFn: func() time.Time { return time.Now().UTC() }}
}

// Source is the persisted registration of a content provider.
type Source struct {
	ID        string          `json:"id"`
	Kind      string          `json:"kind"`
	Priority  int             `json:"priority"`
	Config    json.RawMessage `json:"config,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (s *Store) LoadSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

func (s *Store) PutSetting(ctx context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("setting key is required")
	}
	now := s.nowFn().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, now)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

func (s *Store) SaveSource(ctx context.Context, src Source) (Source, error) {
	if strings.TrimSpace(src.ID) == "" {
		return Source{}, fmt.Errorf("source id is required")
	}
	now := s.nowFn()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sources (id, kind, priority, config, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET kind = excluded.kind, priority = excluded.priority,
			config = excluded.config, updated_at = excluded.updated_at
	`, src.ID, src.Kind, src.Priority, nullString(string(src.Config)), now.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	if err != nil {
		return Source{}, fmt.Errorf("save source: %w", err)
	}
	if src.CreatedAt.IsZero() {
		src.CreatedAt = now
	}
	src.UpdatedAt = now
	return src, nil
}

// ListSources returns sources in registration order.
func (s *Store) ListSources(ctx context.Context) ([]Source, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, kind, priority, config, created_at, updated_at FROM sources ORDER BY rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("list sources: %w", err)
	}
	defer rows.Close()

	var out []Source
	for rows.Next() {
		var src Source
		var configStr sql.NullString
		var createdAtStr, updatedAtStr string
		if err := rows.Scan(&src.ID, &src.Kind, &src.Priority, &configStr, &createdAtStr, &updatedAtStr); err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}
		if configStr.Valid && configStr.String != "" {
			src.Config = json.RawMessage(configStr.String)
		}
		src.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		src.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAtStr)
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sources: %w", err)
	}
	return out, nil
}

func (s *Store) DeleteSource(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete source: %w", err)
	}
	return nil
}
