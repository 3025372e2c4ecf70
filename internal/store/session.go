package store

import (
	"database/sql"
	"errors"
	"time"
)

// Session is one capture session, from Start to Stop.
type Session struct {
	ID         string     `json:"id"`
	Instrument string     `json:"instrument"`
	StartedAt  time.Time  `json:"started_at"`
	StoppedAt  *time.Time `json:"stopped_at,omitempty"`
	NoteCount  int        `json:"note_count"`
}

// Active reports whether the session has not been stopped.
func (s *Session) Active() bool {
	return s.StoppedAt == nil
}

// SessionRepository provides access to sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session. StartedAt is set if zero.
func (r *SessionRepository) Create(sess *Session) error {
	if sess.StartedAt.IsZero() {
		sess.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, instrument, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Instrument, sess.StartedAt,
	)
	return err
}

// Finish marks the session stopped at the given time.
func (r *SessionRepository) Finish(id string, stoppedAt time.Time) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET stopped_at = ? WHERE id = ?`,
		stoppedAt, id,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

const sessionColumns = `s.id, s.instrument, s.started_at, s.stopped_at,
	(SELECT COUNT(*) FROM notes n WHERE n.session_id = s.id)`

// GetByID retrieves a session with its note count.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(`SELECT `+sessionColumns+` FROM sessions s WHERE s.id = ?`, id)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List returns sessions, most recent first. A limit <= 0 returns all.
func (r *SessionRepository) List(limit int) ([]*Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions s ORDER BY s.started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

// Delete removes a session and its notes.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var stopped sql.NullTime

	if err := row.Scan(&sess.ID, &sess.Instrument, &sess.StartedAt, &stopped, &sess.NoteCount); err != nil {
		return nil, err
	}
	if stopped.Valid {
		t := stopped.Time
		sess.StoppedAt = &t
	}
	return sess, nil
}
