package store

import (
	"database/sql"
	"time"
)

// Note is one played note within a session.
type Note struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id"`
	Name       string    `json:"name"`
	Finger     string    `json:"finger"`
	Velocity   string    `json:"velocity"`
	Instrument string    `json:"instrument"`
	OffsetMS   int64     `json:"offset_ms"` // since session start
	PlayedAt   time.Time `json:"played_at"`
}

// NoteRepository provides access to played notes.
type NoteRepository struct {
	db *sql.DB
}

// Notes returns the note repository for this store.
func (s *Store) Notes() *NoteRepository {
	return &NoteRepository{db: s.db}
}

// Add appends a note. PlayedAt is set if zero; ID is assigned.
func (r *NoteRepository) Add(n *Note) error {
	if n.PlayedAt.IsZero() {
		n.PlayedAt = time.Now()
	}

	result, err := r.db.Exec(
		`INSERT INTO notes (session_id, name, finger, velocity, instrument, offset_ms, played_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.SessionID, n.Name, n.Finger, n.Velocity, n.Instrument, n.OffsetMS, n.PlayedAt,
	)
	if err != nil {
		return err
	}

	n.ID, err = result.LastInsertId()
	return err
}

// ListBySession returns a session's notes in play order.
func (r *NoteRepository) ListBySession(sessionID string) ([]*Note, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, name, finger, velocity, instrument, offset_ms, played_at
		 FROM notes WHERE session_id = ? ORDER BY offset_ms, id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []*Note
	for rows.Next() {
		n := &Note{}
		if err := rows.Scan(&n.ID, &n.SessionID, &n.Name, &n.Finger, &n.Velocity, &n.Instrument, &n.OffsetMS, &n.PlayedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}
