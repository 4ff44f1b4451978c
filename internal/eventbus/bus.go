package eventbus

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/flitsinc/glanced/internal/schema"
)

var ErrUnknownStream = errors.New("unknown stream")

// Bus persists provider signals and fans them out to live subscribers.
type Bus struct {
	db    *sql.DB
	nowFn func() time.Time

	mu   sync.RWMutex
	subs map[string]*subscriber
}

type subscriber struct {
	streams  map[string]struct{}
	sourceID string
	ch       chan Signal
}

func NewBus(db *sql.DB) *Bus {
	return &Bus{
		db:    db,
		nowFn: func() time.Time { return time.Now().UTC() },
		subs:  map[string]*subscriber{},
	}
}

func (b *Bus) Push(ctx context.Context, input SignalInput) (Signal, error) {
	if !schema.ValidStream(input.Stream) {
		return Signal{}, fmt.Errorf("%w: %q", ErrUnknownStream, input.Stream)
	}
	if strings.TrimSpace(input.SourceID) == "" {
		return Signal{}, fmt.Errorf("source id is required")
	}
	body := input.Body
	if strings.TrimSpace(body) == "" {
		body = defaultBody(input.Stream, input.Metadata)
	}
	if input.Subject == "" {
		input.Subject = schema.GetMetaString(input.Metadata, schema.MetaItemID)
	}

	id := ulid.Make().String()
	createdAt := b.nowFn()
	metadataJSON, err := encodeJSON(input.Metadata)
	if err != nil {
		return Signal{}, fmt.Errorf("encode metadata: %w", err)
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT INTO signals (id, stream, source_id, subject, body, metadata, created_at, read_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, input.Stream, input.SourceID, nullString(input.Subject), body, nullString(metadataJSON), createdAt.Format(time.RFC3339Nano), "[]")
	if err != nil {
		return Signal{}, fmt.Errorf("insert signal: %w", err)
	}

	sig := Signal{
		ID:        id,
		Stream:    input.Stream,
		SourceID:  input.SourceID,
		Subject:   input.Subject,
		Body:      body,
		Metadata:  input.Metadata,
		CreatedAt: createdAt,
	}
	b.broadcast(sig)
	return sig, nil
}

func (b *Bus) List(ctx context.Context, stream string, opts ListOptions) ([]Signal, error) {
	if !schema.ValidStream(stream) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownStream, stream)
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	order := strings.ToLower(opts.Order)
	if order == "" {
		order = DefaultOrder(stream)
	}
	// ulids sort by creation time, and break ties within one millisecond.
	orderBy := "created_at DESC, id DESC"
	if order == "fifo" {
		orderBy = "created_at ASC, id ASC"
	}

	where := "WHERE stream = ?"
	args := []any{stream}
	if opts.SourceID != "" {
		where += " AND source_id = ?"
		args = append(args, opts.SourceID)
	}
	if opts.Unread && opts.Reader != "" {
		where += " AND NOT EXISTS (SELECT 1 FROM json_each(COALESCE(read_by, '[]')) WHERE value = ?)"
		args = append(args, opts.Reader)
	}
	query := fmt.Sprintf(`SELECT id, stream, source_id, subject, body, metadata, created_at, read_by FROM signals %s ORDER BY %s LIMIT ?`, where, orderBy)
	args = append(args, limit)

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list signals: %w", err)
	}
	defer rows.Close()

	var out []Signal
	for rows.Next() {
		var s Signal
		var createdAtStr string
		var subject, metadataStr, readByStr sql.NullString
		if err := rows.Scan(&s.ID, &s.Stream, &s.SourceID, &subject, &s.Body, &metadataStr, &createdAtStr, &readByStr); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		s.Subject = subject.String
		s.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAtStr)
		s.Metadata = decodeJSONMap(metadataStr.String)
		s.ReadBy = decodeReadBy(readByStr.String)
		s.Read = readerInList(opts.Reader, s.ReadBy)
		if opts.Unread && s.Read {
			continue
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate signals: %w", err)
	}
	return out, nil
}

func (b *Bus) Ack(ctx context.Context, stream string, ids []string, reader string) error {
	if reader == "" {
		return fmt.Errorf("reader is required")
	}
	ids = filterEmpty(ids)
	if len(ids) == 0 {
		return nil
	}
	if !schema.ValidStream(stream) {
		return fmt.Errorf("%w: %q", ErrUnknownStream, stream)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ack tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, id := range ids {
		var readByStr string
		err := tx.QueryRowContext(ctx, `SELECT read_by FROM signals WHERE stream = ? AND id = ?`, stream, id).Scan(&readByStr)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return fmt.Errorf("load read_by: %w", err)
		}
		readBy := decodeReadBy(readByStr)
		if readerInList(reader, readBy) {
			continue
		}
		updated, err := json.Marshal(append(readBy, reader))
		if err != nil {
			return fmt.Errorf("encode read_by: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE signals SET read_by = ? WHERE stream = ? AND id = ?`, string(updated), stream, id); err != nil {
			return fmt.Errorf("update read_by: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ack: %w", err)
	}
	return nil
}

// Subscribe delivers live signals matching f until ctx ends, then closes the channel.
// Slow subscribers miss signals rather than blocking publishers.
func (b *Bus) Subscribe(ctx context.Context, f Filter) <-chan Signal {
	ch := make(chan Signal, 64)
	streamSet := map[string]struct{}{}
	for _, s := range f.Streams {
		if s == "" {
			continue
		}
		streamSet[s] = struct{}{}
	}
	id := ulid.Make().String()

	b.mu.Lock()
	b.subs[id] = &subscriber{streams: streamSet, sourceID: f.SourceID, ch: ch}
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		close(ch)
	}()

	return ch
}

func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

func (b *Bus) broadcast(sig Signal) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		if len(sub.streams) > 0 {
			if _, ok := sub.streams[sig.Stream]; !ok {
				continue
			}
		}
		if sub.sourceID != "" && sub.sourceID != sig.SourceID {
			continue
		}
		select {
		case sub.ch <- sig:
		default:
		}
	}
}

func defaultBody(stream string, meta map[string]any) string {
	if stream != schema.StreamVisibility {
		return stream
	}
	if schema.GetMetaBool(meta, schema.MetaVisible) {
		return "visible"
	}
	return "hidden"
}

func encodeJSON(v map[string]any) (string, error) {
	if len(v) == 0 {
		return "", nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func decodeJSONMap(v string) map[string]any {
	if v == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return nil
	}
	return out
}

func decodeReadBy(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(v), &out); err != nil {
		return nil
	}
	return out
}

func readerInList(reader string, list []string) bool {
	if reader == "" {
		return false
	}
	return slices.Contains(list, reader)
}

func filterEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

func nullString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
