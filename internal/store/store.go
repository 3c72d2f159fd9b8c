package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/google/uuid"
)

// Store persists task snapshots, memories and lock records in sqlite.
// Safe for concurrent use across tasks; sqlite serializes the writes.
type Store struct {
	DB *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	queries := []string{
		`CREATE TABLE IF NOT EXISTS tasks (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			goal TEXT,
			status TEXT,
			data TEXT,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS memories (
			id TEXT PRIMARY KEY,
			user_id TEXT,
			type TEXT,
			content TEXT,
			metadata TEXT,
			score REAL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS locks (
			label TEXT PRIMARY KEY,
			holder TEXT,
			started_at DATETIME
		);`,
	}
	for _, q := range queries {
		if _, err := db.Exec(q); err != nil {
			return nil, err
		}
	}

	return &Store{DB: db}, nil
}

func (s *Store) Close() error {
	return s.DB.Close()
}

// SaveTask upserts the full task snapshot by id. Re-saving an unchanged task
// yields an equivalent record.
func (s *Store) SaveTask(ctx context.Context, task *Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task %s: %w", task.ID, err)
	}
	query := `INSERT INTO tasks (id, user_id, goal, status, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			data = excluded.data,
			updated_at = datetime('now')`
	_, err = s.DB.ExecContext(ctx, query, task.ID, task.UserID, task.Goal, string(task.Status), string(data), task.StartedAt.UTC())
	return err
}

func (s *Store) GetTask(ctx context.Context, id string) (*Task, error) {
	var data string
	err := s.DB.QueryRowContext(ctx, `SELECT data FROM tasks WHERE id = ?`, id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var task Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("failed to decode task %s: %w", id, err)
	}
	return &task, nil
}

// GetUserTasks returns a user's tasks ordered by recency.
func (s *Store) GetUserTasks(ctx context.Context, userID string, limit int) ([]*Task, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT data FROM tasks WHERE user_id = ? ORDER BY updated_at DESC, id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var task Task
		if err := json.Unmarshal([]byte(data), &task); err != nil {
			return nil, err
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

// SaveMemory appends a durable fact. Memories are never updated in place.
func (s *Store) SaveMemory(ctx context.Context, userID, memType, content string, metadata map[string]any, score float64) (*Memory, error) {
	mem := &Memory{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      memType,
		Content:   content,
		Metadata:  metadata,
		Score:     score,
		CreatedAt: time.Now().UTC(),
	}
	meta := "{}"
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode memory metadata: %w", err)
		}
		meta = string(raw)
	}
	_, err := s.DB.ExecContext(ctx,
		`INSERT INTO memories (id, user_id, type, content, metadata, score, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		mem.ID, mem.UserID, mem.Type, mem.Content, meta, mem.Score, mem.CreatedAt)
	if err != nil {
		return nil, err
	}
	return mem, nil
}

// MemoryQuery narrows SearchMemories.
type MemoryQuery struct {
	Type  string
	Limit int
}

// SearchMemories does a case-insensitive multi-keyword OR match over memory
// content, ranked by score then recency.
func (s *Store) SearchMemories(ctx context.Context, userID, query string, opts MemoryQuery) ([]*Memory, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	where := []string{"user_id = ?"}
	args := []any{userID}

	if opts.Type != "" {
		where = append(where, "type = ?")
		args = append(args, opts.Type)
	}

	keywords := strings.Fields(strings.ToLower(query))
	if len(keywords) > 0 {
		var likes []string
		for _, kw := range keywords {
			likes = append(likes, "LOWER(content) LIKE ?")
			args = append(args, "%"+kw+"%")
		}
		where = append(where, "("+strings.Join(likes, " OR ")+")")
	}

	args = append(args, limit)
	q := fmt.Sprintf(
		`SELECT id, user_id, type, content, metadata, score, created_at FROM memories
		 WHERE %s ORDER BY score DESC, created_at DESC LIMIT ?`,
		strings.Join(where, " AND "))

	return s.queryMemories(ctx, q, args...)
}

// GetRecentMemories returns the newest memories of one type.
func (s *Store) GetRecentMemories(ctx context.Context, userID, memType string, limit int) ([]*Memory, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.queryMemories(ctx,
		`SELECT id, user_id, type, content, metadata, score, created_at FROM memories
		 WHERE user_id = ? AND type = ? ORDER BY created_at DESC LIMIT ?`,
		userID, memType, limit)
}

func (s *Store) queryMemories(ctx context.Context, query string, args ...any) ([]*Memory, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memories []*Memory
	for rows.Next() {
		var m Memory
		var meta string
		if err := rows.Scan(&m.ID, &m.UserID, &m.Type, &m.Content, &meta, &m.Score, &m.CreatedAt); err != nil {
			return nil, err
		}
		if meta != "" && meta != "{}" {
			_ = json.Unmarshal([]byte(meta), &m.Metadata)
		}
		memories = append(memories, &m)
	}
	return memories, rows.Err()
}

// PruneMemories drops low-score memories older than the cutoff. High-score
// learnings survive compaction indefinitely.
func (s *Store) PruneMemories(ctx context.Context, olderThan time.Time, maxScore float64) (int64, error) {
	res, err := s.DB.ExecContext(ctx,
		`DELETE FROM memories WHERE created_at < ? AND score < ?`, olderThan.UTC(), maxScore)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// GetLock reads the lock row for a resource label, nil if unheld.
func (s *Store) GetLock(ctx context.Context, label string) (*LockRecord, error) {
	var rec LockRecord
	err := s.DB.QueryRowContext(ctx,
		`SELECT label, holder, started_at FROM locks WHERE label = ?`, label).
		Scan(&rec.Label, &rec.Holder, &rec.StartedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ClaimLock atomically claims the lock row for a resource label. An existing
// row is taken over only when holder already owns it or it started before
// staleBefore; otherwise the write is a no-op. The insert and the ownership
// check are one statement, so concurrent claimers can never both win.
// Returns whether the claim took the row.
func (s *Store) ClaimLock(ctx context.Context, rec LockRecord, staleBefore time.Time) (bool, error) {
	res, err := s.DB.ExecContext(ctx,
		`INSERT INTO locks (label, holder, started_at) VALUES (?, ?, ?)
		 ON CONFLICT(label) DO UPDATE SET holder = excluded.holder, started_at = excluded.started_at
		 WHERE locks.holder = excluded.holder OR locks.started_at < ?`,
		rec.Label, rec.Holder, rec.StartedAt.UTC(), staleBefore.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// DeleteLock removes the lock row only when held by holder. Returns whether
// a row was deleted.
func (s *Store) DeleteLock(ctx context.Context, label, holder string) (bool, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM locks WHERE label = ? AND holder = ?`, label, holder)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
