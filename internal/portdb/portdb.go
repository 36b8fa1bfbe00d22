// Package portdb persists detection runs and their final ports to SQLite so
// repeated runs over the same data can be compared.
package portdb

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/harborsight/portscan/internal/ais"
	"github.com/harborsight/portscan/internal/monitoring"
	"github.com/harborsight/portscan/internal/ports"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB wraps the SQLite connection for run persistence.
type DB struct {
	*sql.DB
}

// Open opens (or creates) the database at path and applies any pending
// migrations.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db := &DB{sqlDB}
	if err := db.migrateUp(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// migrateUp applies all pending migrations from the embedded filesystem.
func (db *DB) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// migrateLogger adapts migrate's logging to the pipeline's log style.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool { return false }

// Run is one persisted detection run.
type Run struct {
	ID                string
	CreatedAt         time.Time
	InputFile         string
	TotalRecords      int
	StationaryRecords int
	PartitionCount    int
	PortCount         int
}

// SaveRun stores one detection run with its final ports in a single
// transaction and returns the new run ID.
func (db *DB) SaveRun(inputFile string, stats ais.Stats, final []ports.FinalPort) (string, error) {
	runID := uuid.NewString()

	tx, err := db.Begin()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO detection_runs
			(id, input_file, total_records, stationary_records, partition_count, port_count)
		VALUES (?, ?, ?, ?, ?, ?)`,
		runID, inputFile, stats.Original, stats.Final, stats.Partitions, len(final))
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO detected_ports
			(run_id, rank, lat, lon, point_count, detected_scale, absorbed_count,
			 area_km2, max_distance_km, vessel_density, category, color)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare port insert: %w", err)
	}
	defer stmt.Close()

	for rank, p := range final {
		_, err = stmt.Exec(runID, rank+1, p.Centroid.Lat, p.Centroid.Lon,
			p.PointCount, p.DetectedScale, p.AbsorbedCount,
			p.AreaKm2, p.MaxDistanceKm, p.VesselDensity, p.Category, p.Color)
		if err != nil {
			return "", fmt.Errorf("failed to insert port %d: %w", rank+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}

	monitoring.Logf("[PortDB] Saved run %s: %d ports", runID, len(final))
	return runID, nil
}

// Ports returns the ports of a run ordered by rank (area descending, as the
// pipeline emitted them).
func (db *DB) Ports(runID string) ([]ports.FinalPort, error) {
	rows, err := db.Query(`
		SELECT lat, lon, point_count, detected_scale, absorbed_count,
		       area_km2, max_distance_km, vessel_density, category, color
		FROM detected_ports WHERE run_id = ? ORDER BY rank`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ports: %w", err)
	}
	defer rows.Close()

	var out []ports.FinalPort
	for rows.Next() {
		var p ports.FinalPort
		if err := rows.Scan(&p.Centroid.Lat, &p.Centroid.Lon, &p.PointCount,
			&p.DetectedScale, &p.AbsorbedCount, &p.AreaKm2, &p.MaxDistanceKm,
			&p.VesselDensity, &p.Category, &p.Color); err != nil {
			return nil, fmt.Errorf("failed to scan port: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Runs lists all persisted runs, newest first.
func (db *DB) Runs() ([]Run, error) {
	rows, err := db.Query(`
		SELECT id, created_at, input_file, total_records, stationary_records,
		       partition_count, port_count
		FROM detection_runs ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.InputFile, &r.TotalRecords,
			&r.StationaryRecords, &r.PartitionCount, &r.PortCount); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
