package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Entry statuses. A job either reached the broker or it did not;
// there is no in-between state worth persisting.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Page size limits for List.
const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Entry is one dispatch outcome.
type Entry struct {
	ID        int64     `json:"id"`
	JobID     string    `json:"job_id"`
	Action    string    `json:"action"`
	Room      string    `json:"room"`
	Percent   int       `json:"percent"`
	Topic     string    `json:"topic"`
	Payload   string    `json:"payload"`
	Status    string    `json:"status"`
	Error     string    `json:"error,omitempty"`
	LatencyMS int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Filter controls which journal entries List returns.
type Filter struct {
	Action string // optional: filter by action name (light, store, rad)
	Status string // optional: filter by status (sent, failed)
	Limit  int    // default 50, max 200
	Offset int    // pagination offset
}

// ListResult contains one page of journal entries.
type ListResult struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
	Limit   int     `json:"limit"`
	Offset  int     `json:"offset"`
}

// Repository defines the journal operations used by the dispatcher
// callback and the API.
type Repository interface {
	Record(ctx context.Context, entry *Entry) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
	Prune(ctx context.Context, olderThan time.Duration) (int64, error)
}

// SQLiteRepository stores the command journal in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a journal repository on an open database.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Record inserts one dispatch outcome. CreatedAt is set to now if zero.
func (r *SQLiteRepository) Record(ctx context.Context, entry *Entry) error {
	if entry.JobID == "" {
		return fmt.Errorf("%w: job id is required", ErrInvalidEntry)
	}
	if entry.Payload == "" {
		return fmt.Errorf("%w: payload is required", ErrInvalidEntry)
	}
	if entry.Status != StatusSent && entry.Status != StatusFailed {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, entry.Status)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO command_journal (job_id, action, room, percent, topic, payload, status, error, latency_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.JobID, entry.Action, entry.Room, entry.Percent,
		entry.Topic, entry.Payload, entry.Status,
		nullableString(entry.Error), entry.LatencyMS,
		entry.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting journal entry: %w", err)
	}

	if id, err := res.LastInsertId(); err == nil {
		entry.ID = id
	}

	return nil
}

// List returns journal entries matching the filter, newest first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Limit > maxListLimit {
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, filter.Action)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	// WHERE clause is assembled from parameterised conditions only.
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM command_journal %s", where) //nolint:gosec // parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting journal entries: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // parameterised conditions, not user input
		`SELECT id, job_id, action, room, percent, topic, payload, status, error, latency_ms, created_at
		 FROM command_journal %s ORDER BY id DESC LIMIT ? OFFSET ?`,
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying journal: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, filter.Limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating journal: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// Get returns the entry for a job ID, or sql.ErrNoRows if absent.
func (r *SQLiteRepository) Get(ctx context.Context, jobID string) (*Entry, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, job_id, action, room, percent, topic, payload, status, error, latency_ms, created_at
		 FROM command_journal WHERE job_id = ?`,
		jobID,
	)

	entry, err := scanEntry(row)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Prune deletes entries older than the retention window and returns
// the number removed.
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM command_journal WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("pruning journal: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned entries: %w", err)
	}

	return deleted, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// scanEntry reads one journal row.
func scanEntry(row scanner) (Entry, error) {
	var entry Entry
	var errText sql.NullString
	var createdAt string

	if err := row.Scan(&entry.ID, &entry.JobID, &entry.Action, &entry.Room,
		&entry.Percent, &entry.Topic, &entry.Payload, &entry.Status,
		&errText, &entry.LatencyMS, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scanning journal entry: %w", err)
	}

	if errText.Valid {
		entry.Error = errText.String
	}

	t, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing journal timestamp %q: %w", createdAt, err)
	}
	entry.CreatedAt = t

	return entry, nil
}

// nullableString returns nil for empty strings so the column stays NULL.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
