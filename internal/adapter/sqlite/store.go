// Package sqlite persists channel records so an inventory survives restarts
// and can be rebuilt into a StationXML document at any time.
//
// It uses modernc.org/sqlite, a pure Go SQLite implementation. The schema is
// managed by the numbered migrations embedded from migrations/.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/couchcryptid/pz-stationxml/internal/adapter/sqlite/migrations"
	"github.com/couchcryptid/pz-stationxml/internal/domain"
	"github.com/couchcryptid/pz-stationxml/internal/observability"
)

// Store keeps one row per channel, keyed by network, station, location and
// channel code. The first record stored for a channel wins.
// It implements pipeline.BatchLoader.
type Store struct {
	db      *sql.DB
	path    string
	metrics *observability.Metrics
	skipped atomic.Int64
}

// NewStore opens (creating if needed) the database at path and applies
// pending migrations. metrics may be nil.
func NewStore(path string, metrics *observability.Metrics) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: path, metrics: metrics}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close() //nolint:errcheck,gosec // already failing
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Skipped returns how many records were ignored because the channel was
// already stored.
func (s *Store) Skipped() int64 {
	return s.skipped.Load()
}

// LoadBatch inserts the records in one transaction, ignoring channels that
// already exist.
func (s *Store) LoadBatch(ctx context.Context, records []domain.ChannelRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO channels (network, station, location, channel, source_file, record, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(network, station, location, channel) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	var skipped int64
	for i := range records {
		rec := &records[i]
		data, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshalling record %s: %w", rec.SEEDID(), err)
		}
		res, err := stmt.ExecContext(ctx, rec.Network, rec.Station, rec.Location, rec.Channel,
			rec.Source, string(data), rec.ProcessedAt.UTC())
		if err != nil {
			return fmt.Errorf("inserting %s: %w", rec.SEEDID(), err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			skipped++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	if skipped > 0 {
		s.skipped.Add(skipped)
		if s.metrics != nil {
			s.metrics.InventorySkipped.Add(float64(skipped))
		}
	}
	return nil
}

// Records returns every stored record in insertion order.
func (s *Store) Records(ctx context.Context) ([]domain.ChannelRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record FROM channels ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("querying channels: %w", err)
	}
	defer rows.Close()

	var out []domain.ChannelRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scanning channel: %w", err)
		}
		var rec domain.ChannelRecord
		if err := json.Unmarshal([]byte(data), &rec); err != nil {
			return nil, fmt.Errorf("unmarshalling channel: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Count returns the number of stored channels.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM channels`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting channels: %w", err)
	}
	return n, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}

// migrate brings the schema up to the highest NNN_name.up.sql script in fsys.
// Each script commits together with its schema_migrations row, so a failed
// script leaves the recorded version unchanged.
func (s *Store) migrate(fsys fs.FS) error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var applied int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&applied); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	names, err := fs.Glob(fsys, "*.up.sql")
	if err != nil {
		return fmt.Errorf("list migrations: %w", err)
	}
	type script struct {
		name    string
		version int
	}
	var pending []script
	for _, name := range names {
		prefix, _, _ := strings.Cut(name, "_")
		version, err := strconv.Atoi(prefix)
		if err != nil || version <= applied {
			continue
		}
		pending = append(pending, script{name: name, version: version})
	}
	slices.SortFunc(pending, func(a, b script) int { return a.version - b.version })

	for _, m := range pending {
		body, err := fs.ReadFile(fsys, m.name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", m.name, err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.name, err)
		}
		if _, err := tx.Exec(string(body)); err != nil {
			tx.Rollback() //nolint:errcheck,gosec // already failing
			return fmt.Errorf("migration %s: %w", m.name, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.version); err != nil {
			tx.Rollback() //nolint:errcheck,gosec // already failing
			return fmt.Errorf("record migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.name, err)
		}
	}
	return nil
}
