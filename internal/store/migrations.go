package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Settings table - application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Sessions table - one row per capture session
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			instrument TEXT NOT NULL,
			started_at DATETIME NOT NULL,
			stopped_at DATETIME
		)`,

		// Notes table - every note played during a session
		`CREATE TABLE IF NOT EXISTS notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			name TEXT NOT NULL,
			finger TEXT NOT NULL,
			velocity TEXT NOT NULL,
			instrument TEXT NOT NULL,
			offset_ms INTEGER NOT NULL,
			played_at DATETIME NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_notes_session_id ON notes(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
