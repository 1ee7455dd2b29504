// Package catalog persists orbital element sets in a SQLite database.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/orbitsim/orbitsim"
	_ "modernc.org/sqlite" // pure go sqlite driver
)

// ErrNotFound is returned when no element set has the requested id.
var ErrNotFound = errors.New("catalog: element set not found")

// ElementSet is a named set of orbital elements. All angles are in degrees.
type ElementSet struct {
	ID          uuid.UUID
	Name        string
	Attractor   string
	Epoch       time.Time
	Ecc         float64
	SMA         float64 // periapsis distance for parabolas
	MeanAnomaly float64
	Inc         float64
	ArgPeri     float64
	RAAN        float64
	Mass        float64 // attractor mass
	G           float64
}

// FromOrbit returns the element set of an orbit at the provided epoch.
func FromOrbit(name, attractor string, epoch time.Time, o *orbitsim.Orbit) ElementSet {
	sma := o.SemiMajorAxis()
	if o.Regime() == orbitsim.Parabolic {
		sma = o.PeriapsisDistance()
	}
	return ElementSet{
		Name:        name,
		Attractor:   attractor,
		Epoch:       epoch.UTC(),
		Ecc:         o.Eccentricity(),
		SMA:         sma,
		MeanAnomaly: o.MeanAnomaly() * 180 / math.Pi,
		Inc:         orbitsim.Rad2deg(o.Inclination()),
		ArgPeri:     orbitsim.Rad2deg(o.ArgumentOfPeriapsis()),
		RAAN:        orbitsim.Rad2deg(o.AscendingNode()),
		Mass:        o.AttractorMass(),
		G:           o.GravConst(),
	}
}

// Orbit rebuilds the orbit of this element set.
func (s ElementSet) Orbit() *orbitsim.Orbit {
	return orbitsim.NewOrbitFromElements(s.Ecc, s.SMA, s.MeanAnomaly, s.Inc, s.ArgPeri, s.RAAN, s.Mass, s.G, 0)
}

// Catalog is a SQLite backed store of element sets.
type Catalog struct {
	db *sql.DB
}

// Open opens (or creates) the catalog at path.
func Open(ctx context.Context, path string) (*Catalog, error) {
	if path == "" {
		path = "orbitsim.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS element_sets (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		attractor TEXT NOT NULL,
		epoch TEXT NOT NULL,
		ecc REAL NOT NULL,
		sma REAL NOT NULL,
		mean_anomaly REAL NOT NULL,
		inc REAL NOT NULL,
		arg_peri REAL NOT NULL,
		raan REAL NOT NULL,
		mass REAL NOT NULL,
		g REAL NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create element_sets table: %w", err)
	}
	return &Catalog{db: db}, nil
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Save inserts or replaces an element set. A new id is assigned if it has none.
func (c *Catalog) Save(ctx context.Context, s ElementSet) (uuid.UUID, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO element_sets
		(id, name, attractor, epoch, ecc, sma, mean_anomaly, inc, arg_peri, raan, mass, g)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID.String(), s.Name, s.Attractor, s.Epoch.UTC().Format(time.RFC3339Nano),
		s.Ecc, s.SMA, s.MeanAnomaly, s.Inc, s.ArgPeri, s.RAAN, s.Mass, s.G)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save %s: %w", s.Name, err)
	}
	return s.ID, nil
}

const selectColumns = `SELECT id, name, attractor, epoch, ecc, sma, mean_anomaly, inc, arg_peri, raan, mass, g FROM element_sets`

// Get returns the element set with the provided id.
func (c *Catalog) Get(ctx context.Context, id uuid.UUID) (ElementSet, error) {
	row := c.db.QueryRowContext(ctx, selectColumns+` WHERE id = ?`, id.String())
	s, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ElementSet{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, err
}

// List returns all the element sets ordered by name.
func (c *Catalog) List(ctx context.Context) ([]ElementSet, error) {
	rows, err := c.db.QueryContext(ctx, selectColumns+` ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("select element_sets: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var sets []ElementSet
	for rows.Next() {
		s, err := scan(rows)
		if err != nil {
			return nil, err
		}
		sets = append(sets, s)
	}
	return sets, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(r scanner) (ElementSet, error) {
	var (
		s        ElementSet
		id, when string
	)
	if err := r.Scan(&id, &s.Name, &s.Attractor, &when, &s.Ecc, &s.SMA, &s.MeanAnomaly, &s.Inc, &s.ArgPeri, &s.RAAN, &s.Mass, &s.G); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, err
		}
		return s, fmt.Errorf("scan: %w", err)
	}
	var err error
	if s.ID, err = uuid.Parse(id); err != nil {
		return s, fmt.Errorf("decode id: %w", err)
	}
	if s.Epoch, err = time.Parse(time.RFC3339Nano, when); err != nil {
		return s, fmt.Errorf("decode epoch: %w", err)
	}
	return s, nil
}
