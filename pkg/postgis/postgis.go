// Package postgis stores road polylines in a PostGIS table and serves them
// back by bounding box
package postgis

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/paulmach/orb/encoding/wkb"

	"github.com/kass/roadmatch/pkg/geo"
	"github.com/kass/roadmatch/pkg/matcher"
	"github.com/kass/roadmatch/pkg/models"
)

// DefaultTable is the table used when Config.Table is empty
const DefaultTable = "roads"

const sourceName = "postgis"

// Config describes the database connection
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	Table    string
}

// DSN returns the lib/pq connection string
func (c Config) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode)
}

// RoadStore reads and writes road linestrings
type RoadStore struct {
	db     *sql.DB
	name   string
	table  string
	logger *slog.Logger
}

// Open connects to the database described by cfg
func Open(ctx context.Context, cfg Config) (*RoadStore, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewRoadStore(db, cfg.Table), nil
}

// NewRoadStore wraps an open database handle
func NewRoadStore(db *sql.DB, table string) *RoadStore {
	if table == "" {
		table = DefaultTable
	}
	return &RoadStore{
		db:     db,
		name:   table,
		table:  pq.QuoteIdentifier(table),
		logger: slog.Default(),
	}
}

// WithLogger sets the logger
func (s *RoadStore) WithLogger(logger *slog.Logger) *RoadStore {
	if logger != nil {
		s.logger = logger
	}
	return s
}

// InitSchema creates the roads table. With reset an existing table is dropped
// first.
func (s *RoadStore) InitSchema(ctx context.Context, reset bool) error {
	queries := []string{`CREATE EXTENSION IF NOT EXISTS postgis;`}
	if reset {
		queries = append(queries, fmt.Sprintf(`DROP TABLE IF EXISTS %s;`, s.table))
	}
	queries = append(queries, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			geom GEOMETRY(LINESTRING, 4326) NOT NULL
		);`, s.table))

	for _, query := range queries {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

// CreateSpatialIndex creates a GIST index on the geometry column
func (s *RoadStore) CreateSpatialIndex(ctx context.Context) error {
	start := time.Now()

	query := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s USING GIST(geom);`,
		pq.QuoteIdentifier("idx_"+s.name+"_geom"), s.table)
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create spatial index: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("ANALYZE %s;", s.table)); err != nil {
		return fmt.Errorf("failed to analyze table: %w", err)
	}

	s.logger.Info("created spatial index", "table", s.table, "elapsed", time.Since(start))
	return nil
}

// BulkInsertRoads inserts roads in batches. Roads with fewer than two points
// cannot be stored as linestrings and are skipped.
func (s *RoadStore) BulkInsertRoads(ctx context.Context, roads []geo.Track) (int, error) {
	const batchSize = 10000

	stmt, err := s.db.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s (geom) VALUES (ST_SetSRID(ST_GeomFromWKB($1), 4326))`, s.table))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	txStmt := tx.StmtContext(ctx, stmt)

	inserted := 0
	for i, road := range roads {
		if road.Len() < 2 {
			continue
		}
		if _, err := txStmt.ExecContext(ctx, wkb.Value(road.LineString())); err != nil {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("failed to insert road %d: %w", i, err)
		}
		inserted++

		if inserted%batchSize == 0 {
			if err := tx.Commit(); err != nil {
				return inserted, fmt.Errorf("failed to commit batch: %w", err)
			}
			tx, err = s.db.BeginTx(ctx, nil)
			if err != nil {
				return inserted, fmt.Errorf("failed to begin new transaction: %w", err)
			}
			txStmt = tx.StmtContext(ctx, stmt)
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("failed to commit final batch: %w", err)
	}
	return inserted, nil
}

// GetRoads returns every road intersecting the box spanned by the two
// corners. Failures are returned as *matcher.DataSourceError.
func (s *RoadStore) GetRoads(ctx context.Context, upperLeft, bottomRight models.Location) ([]geo.Track, error) {
	roads, err := s.queryBox(ctx, models.FromCorners(upperLeft, bottomRight))
	if err != nil {
		return nil, &matcher.DataSourceError{Source: sourceName, Err: err}
	}
	return roads, nil
}

func (s *RoadStore) queryBox(ctx context.Context, box models.BoundingBox) ([]geo.Track, error) {
	query := fmt.Sprintf(`
		SELECT ST_AsBinary(geom)
		FROM %s
		WHERE geom && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		ORDER BY id
	`, s.table)

	rows, err := s.db.QueryContext(ctx, query,
		box.BottomLeft.Lon, box.BottomLeft.Lat,
		box.TopRight.Lon, box.TopRight.Lat)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var roads []geo.Track
	for rows.Next() {
		scanner := wkb.Scanner(nil)
		if err := rows.Scan(scanner); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if !scanner.Valid {
			continue
		}
		roads = append(roads, geo.TracksFromGeometry(scanner.Geometry)...)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return roads, nil
}

// Count returns the number of stored roads
func (s *RoadStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.table)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count roads: %w", err)
	}
	return count, nil
}

// Close closes the database connection
func (s *RoadStore) Close() error {
	return s.db.Close()
}
