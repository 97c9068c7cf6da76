package measurement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Query limits.
const (
	// DefaultLimit is used when a caller passes a limit of zero or less.
	DefaultLimit = 50

	// MaxLimit caps the number of rows a single query returns.
	MaxLimit = 200
)

// timestampLayout keeps a fixed width so stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Repository stores measurements, fault events and the node identity.
type Repository interface {
	Record(ctx context.Context, m Measurement) (int64, error)
	MarkPublished(ctx context.Context, id int64) error
	Recent(ctx context.Context, limit int) ([]Measurement, error)
	Unpublished(ctx context.Context, limit int) ([]Measurement, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
	RecordFault(ctx context.Context, e FaultEvent) (int64, error)
	RecentFaults(ctx context.Context, limit int) ([]FaultEvent, error)
	EnsureNodeID(ctx context.Context, override string) (string, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a repository on an already migrated database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

// Record stores one sample and returns its row id. A zero TakenAt is
// replaced with the current time.
func (r *SQLiteRepository) Record(ctx context.Context, m Measurement) (int64, error) {
	if m.NodeID == "" {
		return 0, ErrNodeIDRequired
	}
	if m.TakenAt.IsZero() {
		m.TakenAt = r.now()
	}
	if m.Units == "" {
		m.Units = "metric"
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO measurements (node_id, taken_at, temperature, humidity, units, published)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.NodeID,
		formatTimestamp(m.TakenAt),
		m.Temperature,
		m.Humidity,
		m.Units,
		boolToInt(m.Published),
	)
	if err != nil {
		return 0, fmt.Errorf("recording measurement: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading measurement id: %w", err)
	}
	return id, nil
}

// MarkPublished flags a stored sample as delivered to the broker.
func (r *SQLiteRepository) MarkPublished(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx,
		"UPDATE measurements SET published = 1 WHERE id = ?", id,
	); err != nil {
		return fmt.Errorf("marking measurement %d published: %w", id, err)
	}
	return nil
}

// Recent returns the newest samples first.
func (r *SQLiteRepository) Recent(ctx context.Context, limit int) ([]Measurement, error) {
	return r.queryMeasurements(ctx,
		`SELECT id, node_id, taken_at, temperature, humidity, units, published
		 FROM measurements ORDER BY taken_at DESC, id DESC LIMIT ?`,
		clampLimit(limit),
	)
}

// Unpublished returns samples that never reached the broker, oldest first,
// so they can be replayed in the order they were taken.
func (r *SQLiteRepository) Unpublished(ctx context.Context, limit int) ([]Measurement, error) {
	return r.queryMeasurements(ctx,
		`SELECT id, node_id, taken_at, temperature, humidity, units, published
		 FROM measurements WHERE published = 0 ORDER BY taken_at ASC, id ASC LIMIT ?`,
		clampLimit(limit),
	)
}

func (r *SQLiteRepository) queryMeasurements(ctx context.Context, query string, args ...any) ([]Measurement, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying measurements: %w", err)
	}
	defer rows.Close()

	var out []Measurement
	for rows.Next() {
		var (
			m         Measurement
			takenAt   string
			published int
		)
		if err := rows.Scan(&m.ID, &m.NodeID, &takenAt, &m.Temperature, &m.Humidity, &m.Units, &published); err != nil {
			return nil, fmt.Errorf("scanning measurement: %w", err)
		}
		m.TakenAt = parseTimestamp(takenAt)
		m.Published = published != 0
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating measurements: %w", err)
	}
	return out, nil
}

// Prune deletes samples and fault events older than the retention period.
//
// Parameters:
//   - ctx: Context for cancellation
//   - olderThan: Retention period; rows taken before now-olderThan are removed
//
// Returns:
//   - int64: Number of rows removed across both tables
//   - error: ErrInvalidRetention or a database error
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}
	cutoff := formatTimestamp(r.now().Add(-olderThan))

	var total int64
	for _, stmt := range []string{
		"DELETE FROM measurements WHERE taken_at < ?",
		"DELETE FROM fault_events WHERE occurred_at < ?",
	} {
		res, err := r.db.ExecContext(ctx, stmt, cutoff)
		if err != nil {
			return total, fmt.Errorf("pruning: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("pruning: %w", err)
		}
		total += n
	}
	return total, nil
}

// RecordFault stores a fault handled by the Error state.
func (r *SQLiteRepository) RecordFault(ctx context.Context, e FaultEvent) (int64, error) {
	if e.NodeID == "" {
		return 0, ErrNodeIDRequired
	}
	if e.Code == "" {
		return 0, ErrCodeRequired
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = r.now()
	}

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO fault_events (node_id, code, occurred_at) VALUES (?, ?, ?)",
		e.NodeID, e.Code, formatTimestamp(e.OccurredAt),
	)
	if err != nil {
		return 0, fmt.Errorf("recording fault %s: %w", e.Code, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading fault id: %w", err)
	}
	return id, nil
}

// RecentFaults returns the newest fault events first.
func (r *SQLiteRepository) RecentFaults(ctx context.Context, limit int) ([]FaultEvent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, node_id, code, occurred_at FROM fault_events
		 ORDER BY occurred_at DESC, id DESC LIMIT ?`,
		clampLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying fault events: %w", err)
	}
	defer rows.Close()

	var out []FaultEvent
	for rows.Next() {
		var (
			e          FaultEvent
			occurredAt string
		)
		if err := rows.Scan(&e.ID, &e.NodeID, &e.Code, &occurredAt); err != nil {
			return nil, fmt.Errorf("scanning fault event: %w", err)
		}
		e.OccurredAt = parseTimestamp(occurredAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating fault events: %w", err)
	}
	return out, nil
}

// EnsureNodeID returns the persisted node identity, creating one on first use.
//
// A non-empty override replaces whatever is stored, so an operator can pin
// the id from configuration. Without an override a random UUID is generated
// the first time and kept across restarts.
func (r *SQLiteRepository) EnsureNodeID(ctx context.Context, override string) (string, error) {
	if override != "" {
		if err := r.storeNodeID(ctx, override); err != nil {
			return "", err
		}
		return override, nil
	}

	var id string
	err := r.db.QueryRowContext(ctx, "SELECT node_id FROM node_identity WHERE id = 1").Scan(&id)
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, sql.ErrNoRows):
		id = uuid.NewString()
		if err := r.storeNodeID(ctx, id); err != nil {
			return "", err
		}
		return id, nil
	default:
		return "", fmt.Errorf("reading node identity: %w", err)
	}
}

func (r *SQLiteRepository) storeNodeID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO node_identity (id, node_id, created_at) VALUES (1, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET node_id = excluded.node_id`,
		id, formatTimestamp(r.now()),
	); err != nil {
		return fmt.Errorf("storing node identity: %w", err)
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp falls back to plain RFC3339 for rows written by hand.
func parseTimestamp(s string) time.Time {
	if t, err := time.Parse(timestampLayout, s); err == nil {
		return t
	}
	t, _ := time.Parse(time.RFC3339, s) //nolint:errcheck // zero time on malformed rows
	return t
}
