// Package db persists movement events, the aggregate occupancy record and
// camera calibrations to SQLite.
package db

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite handle.
type DB struct {
	*sql.DB
}

// Movement is one recorded entrance or exit.
type Movement struct {
	ID             int64
	RecordedAt     time.Time
	Kind           string // "entrance" or "exit"
	Camera         string
	HeightPx       float64
	HeightCm       *float64 // nil when the event was recorded uncalibrated
	Classification string
	SessionID      string
}

// CalibrationRecord is one confirmed camera calibration.
type CalibrationRecord struct {
	ID          int64
	RecordedAt  time.Time
	Camera      string
	ReferenceCm float64
	ReferencePx float64
	Factor      float64
	SessionID   string
}

// Occupancy is the aggregate occupancy record, updated on each accepted
// movement.
type Occupancy struct {
	UpdatedAt    time.Time
	PeopleInside int64
	TotalEntries int64
	TotalExits   int64
}

// NewDB opens (creating if needed) the counter database at path and
// ensures the schema and the single aggregate occupancy row exist.
func NewDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = sqlDB.Exec(`
		CREATE TABLE IF NOT EXISTS movements (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			kind              TEXT NOT NULL,
			camera            TEXT NOT NULL,
			height_px         DOUBLE,
			height_cm         DOUBLE,
			classification    TEXT,
			session_id        TEXT
		);
		CREATE TABLE IF NOT EXISTS occupancy (
			id                INTEGER PRIMARY KEY,
			updated_at        TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			people_inside     INTEGER NOT NULL DEFAULT 0,
			total_entries     INTEGER NOT NULL DEFAULT 0,
			total_exits       INTEGER NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS camera_calibrations (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			camera            TEXT NOT NULL,
			reference_cm      DOUBLE NOT NULL,
			reference_px      DOUBLE NOT NULL,
			factor            DOUBLE NOT NULL,
			session_id        TEXT
		);
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	// Seed the single aggregate row on first run.
	var count int
	if err := sqlDB.QueryRow("SELECT COUNT(*) FROM occupancy").Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to check occupancy seed: %w", err)
	}
	if count == 0 {
		_, err = sqlDB.Exec("INSERT INTO occupancy (id, people_inside, total_entries, total_exits) VALUES (1, 0, 0, 0)")
		if err != nil {
			return nil, fmt.Errorf("failed to seed occupancy: %w", err)
		}
	}

	return &DB{sqlDB}, nil
}

// RecordMovement inserts the movement and updates the aggregate occupancy
// row in one transaction. Entrances increment people inside; exits
// decrement it, floored at zero.
func (db *DB) RecordMovement(m Movement) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin movement transaction: %w", err)
	}
	defer tx.Rollback()

	if m.RecordedAt.IsZero() {
		m.RecordedAt = time.Now()
	}
	// Stored as text; keeping everything UTC makes the recorded_at range
	// comparisons in MovementsSince well ordered.
	m.RecordedAt = m.RecordedAt.UTC()
	_, err = tx.Exec(
		`INSERT INTO movements (recorded_at, kind, camera, height_px, height_cm, classification, session_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.RecordedAt, m.Kind, m.Camera, m.HeightPx, m.HeightCm, m.Classification, m.SessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert movement: %w", err)
	}

	switch m.Kind {
	case "entrance":
		_, err = tx.Exec(`UPDATE occupancy SET
			people_inside = people_inside + 1,
			total_entries = total_entries + 1,
			updated_at = CURRENT_TIMESTAMP WHERE id = 1`)
	case "exit":
		_, err = tx.Exec(`UPDATE occupancy SET
			people_inside = MAX(people_inside - 1, 0),
			total_exits = total_exits + 1,
			updated_at = CURRENT_TIMESTAMP WHERE id = 1`)
	default:
		return fmt.Errorf("unknown movement kind %q", m.Kind)
	}
	if err != nil {
		return fmt.Errorf("failed to update occupancy: %w", err)
	}

	return tx.Commit()
}

// RecordCalibration inserts one confirmed calibration.
func (db *DB) RecordCalibration(c CalibrationRecord) error {
	if c.RecordedAt.IsZero() {
		c.RecordedAt = time.Now()
	}
	c.RecordedAt = c.RecordedAt.UTC()
	_, err := db.Exec(
		`INSERT INTO camera_calibrations (recorded_at, camera, reference_cm, reference_px, factor, session_id)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		c.RecordedAt, c.Camera, c.ReferenceCm, c.ReferencePx, c.Factor, c.SessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to insert calibration: %w", err)
	}
	return nil
}

// Occupancy returns the aggregate occupancy record.
func (db *DB) Occupancy() (Occupancy, error) {
	var o Occupancy
	err := db.QueryRow(
		"SELECT updated_at, people_inside, total_entries, total_exits FROM occupancy WHERE id = 1",
	).Scan(&o.UpdatedAt, &o.PeopleInside, &o.TotalEntries, &o.TotalExits)
	if err != nil {
		return Occupancy{}, fmt.Errorf("failed to read occupancy: %w", err)
	}
	return o, nil
}

// RecentMovements returns up to limit movements, newest first.
func (db *DB) RecentMovements(limit int) ([]Movement, error) {
	rows, err := db.Query(
		`SELECT id, recorded_at, kind, camera, height_px, height_cm, classification, session_id
		 FROM movements ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

// MovementsSince returns movements recorded at or after the given time,
// oldest first, for report generation.
func (db *DB) MovementsSince(since time.Time) ([]Movement, error) {
	rows, err := db.Query(
		`SELECT id, recorded_at, kind, camera, height_px, height_cm, classification, session_id
		 FROM movements WHERE recorded_at >= ? ORDER BY id ASC`, since.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()
	return scanMovements(rows)
}

// LatestCalibration returns the most recent calibration for a camera.
// The bool is false when the camera has never been calibrated.
func (db *DB) LatestCalibration(camera string) (CalibrationRecord, bool, error) {
	var c CalibrationRecord
	err := db.QueryRow(
		`SELECT id, recorded_at, camera, reference_cm, reference_px, factor, session_id
		 FROM camera_calibrations WHERE camera = ? ORDER BY id DESC LIMIT 1`, camera,
	).Scan(&c.ID, &c.RecordedAt, &c.Camera, &c.ReferenceCm, &c.ReferencePx, &c.Factor, &c.SessionID)
	if err == sql.ErrNoRows {
		return CalibrationRecord{}, false, nil
	}
	if err != nil {
		return CalibrationRecord{}, false, fmt.Errorf("failed to read calibration: %w", err)
	}
	return c, true, nil
}

func scanMovements(rows *sql.Rows) ([]Movement, error) {
	var out []Movement
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.RecordedAt, &m.Kind, &m.Camera, &m.HeightPx,
			&m.HeightCm, &m.Classification, &m.SessionID); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
