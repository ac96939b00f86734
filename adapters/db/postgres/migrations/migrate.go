// Package migrations applies the embedded SQL schema to PostgreSQL or SQLite.
package migrations

import (
	"context"
	"crypto/sha256"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"

	"cutvalid/internal"
	"cutvalid/internal/errors"
)

//go:embed *.sql
var sqlFiles embed.FS

// Migrator handles database schema migrations
type Migrator struct {
	db     *sqlx.DB
	files  fs.FS
	logger *internal.Logger
}

// NewMigrator creates a migrator over the embedded schema
func NewMigrator(db *sqlx.DB, logger *internal.Logger) *Migrator {
	return NewMigratorFS(db, sqlFiles, logger)
}

// NewMigratorFS creates a migrator reading NNN_name.sql files from files
func NewMigratorFS(db *sqlx.DB, files fs.FS, logger *internal.Logger) *Migrator {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &Migrator{db: db, files: files, logger: logger}
}

// MigrationFile represents a migration file
type MigrationFile struct {
	Version  string
	Name     string
	Checksum string
	SQL      string
}

// MigrationStatus pairs a migration with whether it has been applied
type MigrationStatus struct {
	Version string
	Name    string
	Applied bool
}

// Up applies all pending migrations and returns the versions it applied. A
// migration whose content changed after it was applied is an error.
func (m *Migrator) Up(ctx context.Context) ([]string, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.appliedChecksums(ctx)
	if err != nil {
		return nil, errors.DatabaseError("failed to get applied migrations", err)
	}
	files, err := m.findMigrationFiles()
	if err != nil {
		return nil, errors.Wrap(err, "failed to find migration files")
	}

	var done []string
	for _, file := range files {
		if sum, ok := applied[file.Version]; ok {
			if sum != file.Checksum {
				return done, errors.DatabaseError(fmt.Sprintf("migration %s changed after it was applied", file.Version), nil)
			}
			continue
		}
		if err := m.applyMigration(ctx, file); err != nil {
			return done, errors.DatabaseError(fmt.Sprintf("failed to apply migration %s", file.Version), err)
		}
		m.logger.Info("[migrate] applied %s_%s", file.Version, file.Name)
		done = append(done, file.Version)
	}
	return done, nil
}

// Status lists every migration and whether it has been applied
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.appliedChecksums(ctx)
	if err != nil {
		return nil, errors.DatabaseError("failed to get applied migrations", err)
	}
	files, err := m.findMigrationFiles()
	if err != nil {
		return nil, err
	}

	out := make([]MigrationStatus, 0, len(files))
	for _, file := range files {
		_, ok := applied[file.Version]
		out = append(out, MigrationStatus{Version: file.Version, Name: file.Name, Applied: ok})
	}
	return out, nil
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			checksum TEXT NOT NULL,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		return errors.DatabaseError("failed to create migrations table", err)
	}
	return nil
}

func (m *Migrator) appliedChecksums(ctx context.Context) (map[string]string, error) {
	var rows []struct {
		Version  string `db:"version"`
		Checksum string `db:"checksum"`
	}
	if err := m.db.SelectContext(ctx, &rows, "SELECT version, checksum FROM schema_migrations"); err != nil {
		return nil, err
	}
	applied := make(map[string]string, len(rows))
	for _, r := range rows {
		applied[r.Version] = r.Checksum
	}
	return applied, nil
}

func calculateChecksum(data []byte) string {
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash)
}

// findMigrationFiles reads NNN_name.sql files sorted by version
func (m *Migrator) findMigrationFiles() ([]MigrationFile, error) {
	entries, err := fs.ReadDir(m.files, ".")
	if err != nil {
		return nil, err
	}

	var files []MigrationFile
	for _, e := range entries {
		if e.IsDir() || path.Ext(e.Name()) != ".sql" {
			continue
		}
		version, name, ok := strings.Cut(strings.TrimSuffix(e.Name(), ".sql"), "_")
		if !ok {
			continue
		}
		data, err := fs.ReadFile(m.files, e.Name())
		if err != nil {
			return nil, err
		}
		files = append(files, MigrationFile{
			Version:  version,
			Name:     name,
			Checksum: calculateChecksum(data),
			SQL:      string(data),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].Version < files[j].Version
	})
	return files, nil
}

// applyMigration executes one file and records it in a single transaction
func (m *Migrator) applyMigration(ctx context.Context, file MigrationFile) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range splitStatements(file.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}

	insert := m.db.Rebind("INSERT INTO schema_migrations (version, checksum) VALUES (?, ?)")
	if _, err := tx.ExecContext(ctx, insert, file.Version, file.Checksum); err != nil {
		return err
	}
	return tx.Commit()
}

// splitStatements splits a schema file on semicolons. Schema files must not
// contain semicolons inside literals.
func splitStatements(src string) []string {
	var out []string
	for _, stmt := range strings.Split(src, ";") {
		if stmt = strings.TrimSpace(stmt); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(stmt, "\n")
	return line
}
