package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per completed test
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			reference_name TEXT NOT NULL DEFAULT '',
			started_at INTEGER NOT NULL,
			stopped_at INTEGER NOT NULL,
			overall_score INTEGER NOT NULL,
			dtw_score INTEGER NOT NULL,
			frame_score INTEGER NOT NULL,
			feedback TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Joint results table - per-joint scores of a session
		`CREATE TABLE IF NOT EXISTS joint_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			joint TEXT NOT NULL,
			dtw_score INTEGER NOT NULL,
			dtw_cost REAL NOT NULL,
			frame_score INTEGER NOT NULL,
			severity TEXT NOT NULL DEFAULT ''
		)`,

		// Angle samples table - resampled angle tables of a session
		`CREATE TABLE IF NOT EXISTS angle_samples (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			stream TEXT NOT NULL CHECK(stream IN ('user', 'instructor')),
			joint TEXT NOT NULL,
			sequence INTEGER NOT NULL,
			angle INTEGER NOT NULL,
			elapsed TEXT NOT NULL
		)`,

		// Signatures table - trained reference pose signatures as JSON
		`CREATE TABLE IF NOT EXISTS signatures (
			name TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		// Indexes for better query performance
		`CREATE INDEX IF NOT EXISTS idx_joint_results_session_id ON joint_results(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_angle_samples_session_id ON angle_samples(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
