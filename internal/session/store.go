package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"keepsake/internal/config"
)

// ErrNotFound is returned when no session matches the requested id.
var ErrNotFound = errors.New("session not found")

// Store is the session registry backed by SQLite. Stage commands look
// sessions up here; the daemon-style watch mode enqueues through it.
type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the registry database, creating and migrating it as
// needed.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.SessionsDir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the registry database location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new session record.
func (s *Store) Create(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (
            id, title, status, audio_path, photo_path, error_message, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID,
		sess.Title,
		string(sess.Status),
		sess.AudioPath,
		sess.PhotoPath,
		sess.ErrorMessage,
		sess.CreatedAt.UTC().Format(time.RFC3339Nano),
		sess.UpdatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// GetByID loads a session by its full or short id. A short id matches when
// exactly one session starts with it.
func (s *Store) GetByID(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	sess, err := scanSession(row)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id LIKE ? ORDER BY created_at`, id+"%")
	if err != nil {
		return nil, fmt.Errorf("get session by prefix: %w", err)
	}
	defer rows.Close()
	var matches []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		matches = append(matches, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	switch len(matches) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("id prefix %q matches %d sessions", id, len(matches))
	}
}

// Update persists the session's mutable fields and bumps updated_at.
func (s *Store) Update(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sessions SET title = ?, status = ?, audio_path = ?, photo_path = ?,
            error_message = ?, updated_at = ? WHERE id = ?`,
		sess.Title,
		string(sess.Status),
		sess.AudioPath,
		sess.PhotoPath,
		sess.ErrorMessage,
		sess.UpdatedAt.Format(time.RFC3339Nano),
		sess.ID,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetStatus records a status transition, clearing any previous error when
// the session moves off failed.
func (s *Store) SetStatus(ctx context.Context, sess *Session, status Status) error {
	sess.Status = status
	if status != StatusFailed {
		sess.ErrorMessage = ""
	}
	return s.Update(ctx, sess)
}

// MarkFailed records a stage failure with its message.
func (s *Store) MarkFailed(ctx context.Context, sess *Session, cause error) error {
	sess.Status = StatusFailed
	if cause != nil {
		sess.ErrorMessage = cause.Error()
	}
	return s.Update(ctx, sess)
}

// List returns all sessions, newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := ""
		for i, status := range statuses {
			if i > 0 {
				placeholders += ", "
			}
			placeholders += "?"
			args = append(args, string(status))
		}
		query += ` WHERE status IN (` + placeholders + `)`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return sessions, nil
}

// Remove deletes a session record. The session directory is left alone.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// Stats counts sessions per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM sessions GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("session stats: %w", err)
	}
	defer rows.Close()
	stats := make(map[Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[Status(status)] = count
	}
	return stats, rows.Err()
}

const sessionColumns = `id, title, status, audio_path, photo_path, error_message, created_at, updated_at`

func scanSession(scanner interface{ Scan(dest ...any) error }) (*Session, error) {
	var sess Session
	var status, createdAt, updatedAt string
	if err := scanner.Scan(
		&sess.ID,
		&sess.Title,
		&status,
		&sess.AudioPath,
		&sess.PhotoPath,
		&sess.ErrorMessage,
		&createdAt,
		&updatedAt,
	); err != nil {
		return nil, err
	}
	sess.Status = Status(status)
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		sess.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		sess.UpdatedAt = ts
	}
	return &sess, nil
}
