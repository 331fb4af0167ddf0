package census

import (
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Limits applied to ListRecent so one request cannot drag the whole table
// over the wire.
const (
	DefaultListLimit = 50
	MaxListLimit     = 500
)

//go:embed schema.sql
var schemaSQL string

// Measurement is one persisted pipeline result.
type Measurement struct {
	ID            string  `json:"id"`
	ImagePath     string  `json:"image_path"`
	Species       string  `json:"species"`
	PixelDiameter float64 `json:"pixel_diameter"`
	DBHCm         float64 `json:"dbh_cm"`
	GirthCm       float64 `json:"girth_cm"`
	HeightM       float64 `json:"height_m"`
	CanopyM       float64 `json:"canopy_m"`
	CreatedAt     int64   `json:"created_at"`
}

// Store provides persistence for trunk measurements.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the census database at path and ensures the
// schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open census database: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize census schema: %w", err)
	}
	return &Store{db: db}, nil
}

// NewStore wraps an already-open database. The caller keeps ownership of
// the handle and its schema.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert persists a measurement. When ID is empty a UUID is generated, and
// when CreatedAt is zero the current time is recorded; both are written
// back to m.
func (s *Store) Insert(m *Measurement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().UnixNano()
	}

	return retryOnBusy(func() error {
		_, err := s.db.Exec(`
			INSERT INTO census_measurements (
				id, image_path, species, pixel_diameter,
				dbh_cm, girth_cm, height_m, canopy_m, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.ImagePath, m.Species, m.PixelDiameter,
			m.DBHCm, m.GirthCm, m.HeightM, m.CanopyM, m.CreatedAt,
		)
		return err
	})
}

// ListRecent returns measurements newest first. A non-positive limit uses
// DefaultListLimit; anything above MaxListLimit is clamped.
func (s *Store) ListRecent(limit int) ([]*Measurement, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	rows, err := s.db.Query(`
		SELECT id, image_path, species, pixel_diameter,
		       dbh_cm, girth_cm, height_m, canopy_m, created_at
		FROM census_measurements
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	var measurements []*Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		measurements = append(measurements, m)
	}
	return measurements, rows.Err()
}

// scanMeasurement scans one measurement row from a sql.Rows cursor.
func scanMeasurement(rows *sql.Rows) (*Measurement, error) {
	var m Measurement
	err := rows.Scan(
		&m.ID, &m.ImagePath, &m.Species, &m.PixelDiameter,
		&m.DBHCm, &m.GirthCm, &m.HeightM, &m.CanopyM, &m.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan measurement row: %w", err)
	}
	return &m, nil
}

// retryOnBusy retries a write when SQLite reports the database locked by a
// concurrent writer. Reads never contend enough to need this.
func retryOnBusy(fn func() error) error {
	const attempts = 5

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil || !isBusy(err) {
			return err
		}
		time.Sleep(time.Duration(i+1) * 10 * time.Millisecond)
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
