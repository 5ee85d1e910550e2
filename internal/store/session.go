package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Streams of an angle sample row.
const (
	StreamUser       = "user"
	StreamInstructor = "instructor"
)

// Session represents a completed test stored in the database.
type Session struct {
	ID            string
	ReferenceName string
	StartedAt     int64
	StoppedAt     int64
	OverallScore  int
	DTWScore      int
	FrameScore    int
	Feedback      string
	CreatedAt     time.Time
}

// JointResult represents one joint's scores within a session.
type JointResult struct {
	SessionID  string
	Joint      string
	DTWScore   int
	DTWCost    float64
	FrameScore int
	Severity   string
}

// AngleSample is one row of a session's resampled angle table.
type AngleSample struct {
	SessionID string
	Stream    string
	Joint     string
	Sequence  int
	Angle     int
	// Elapsed is the MM:SS.mmm offset from test start.
	Elapsed string
}

// SessionRepository provides CRUD operations for sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create inserts a new session into the database.
func (r *SessionRepository) Create(sess *Session) error {
	sess.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, reference_name, started_at, stopped_at, overall_score, dtw_score, frame_score, feedback, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.ReferenceName, sess.StartedAt, sess.StoppedAt,
		sess.OverallScore, sess.DTWScore, sess.FrameScore, sess.Feedback, sess.CreatedAt,
	)
	return err
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	sess := &Session{}

	err := r.db.QueryRow(
		`SELECT id, reference_name, started_at, stopped_at, overall_score, dtw_score, frame_score, feedback, created_at
		 FROM sessions WHERE id = ?`,
		id,
	).Scan(&sess.ID, &sess.ReferenceName, &sess.StartedAt, &sess.StoppedAt,
		&sess.OverallScore, &sess.DTWScore, &sess.FrameScore, &sess.Feedback, &sess.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return sess, nil
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, reference_name, started_at, stopped_at, overall_score, dtw_score, frame_score, feedback, created_at
		 FROM sessions ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess := &Session{}
		err := rows.Scan(&sess.ID, &sess.ReferenceName, &sess.StartedAt, &sess.StoppedAt,
			&sess.OverallScore, &sess.DTWScore, &sess.FrameScore, &sess.Feedback, &sess.CreatedAt)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session and its dependent rows.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// SaveJointResults inserts the per-joint scores of a session.
func (r *SessionRepository) SaveJointResults(sessionID string, results []JointResult) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, jr := range results {
		_, err := tx.Exec(
			`INSERT INTO joint_results (session_id, joint, dtw_score, dtw_cost, frame_score, severity)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, jr.Joint, jr.DTWScore, jr.DTWCost, jr.FrameScore, jr.Severity,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// JointResults retrieves the per-joint scores of a session.
func (r *SessionRepository) JointResults(sessionID string) ([]JointResult, error) {
	rows, err := r.db.Query(
		`SELECT session_id, joint, dtw_score, dtw_cost, frame_score, severity
		 FROM joint_results WHERE session_id = ? ORDER BY joint`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []JointResult
	for rows.Next() {
		var jr JointResult
		if err := rows.Scan(&jr.SessionID, &jr.Joint, &jr.DTWScore, &jr.DTWCost, &jr.FrameScore, &jr.Severity); err != nil {
			return nil, err
		}
		results = append(results, jr)
	}

	return results, rows.Err()
}

// SaveAngleSamples inserts the resampled angle table rows of a session.
func (r *SessionRepository) SaveAngleSamples(sessionID string, samples []AngleSample) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, as := range samples {
		_, err := tx.Exec(
			`INSERT INTO angle_samples (session_id, stream, joint, sequence, angle, elapsed)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			sessionID, as.Stream, as.Joint, as.Sequence, as.Angle, as.Elapsed,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// AngleSamples retrieves a session's angle table rows for one stream,
// ordered by joint and sequence.
func (r *SessionRepository) AngleSamples(sessionID, stream string) ([]AngleSample, error) {
	rows, err := r.db.Query(
		`SELECT session_id, stream, joint, sequence, angle, elapsed
		 FROM angle_samples WHERE session_id = ? AND stream = ?
		 ORDER BY joint, sequence`,
		sessionID, stream,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []AngleSample
	for rows.Next() {
		var as AngleSample
		if err := rows.Scan(&as.SessionID, &as.Stream, &as.Joint, &as.Sequence, &as.Angle, &as.Elapsed); err != nil {
			return nil, err
		}
		samples = append(samples, as)
	}

	return samples, rows.Err()
}
