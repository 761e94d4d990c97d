package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/mod/semver"
)

// Migration layout:
//
//	migration/{driver}/LATEST.sql                  full schema for new installations
//	migration/{driver}/{major.minor}/NN__desc.sql  incremental upgrades
//
// The schema version lives in system_setting under SchemaVersionSettingName.
// A file NN__desc.sql in directory X.Y upgrades the schema to X.Y.(NN+1).

//go:embed migration
var migrationFS embed.FS

const (
	// SchemaVersion is the schema version this build expects.
	SchemaVersion = "0.1.0"

	// SchemaVersionSettingName is the system_setting key holding the applied version.
	SchemaVersionSettingName = "schema_version"

	MigrateFileNameSplit = "__"
	LatestSchemaFileName = "LATEST.sql"
)

// Migrate brings the database schema to SchemaVersion.
func (s *Store) Migrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if !initialized {
		return s.applyLatestSchema(ctx)
	}

	current, err := s.driver.GetSystemSetting(ctx, SchemaVersionSettingName)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return errors.Wrap(err, "failed to get schema version")
	}
	if current == "" {
		current = "0.0.0"
	}
	if compareVersion(current, SchemaVersion) > 0 {
		return errors.Errorf("cannot downgrade schema version from %s to %s", current, SchemaVersion)
	}
	if compareVersion(current, SchemaVersion) == 0 {
		return nil
	}
	return s.applyMigrations(ctx, current, SchemaVersion)
}

func (s *Store) applyLatestSchema(ctx context.Context) error {
	filePath := s.getMigrationBasePath() + LatestSchemaFileName
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Wrapf(err, "failed to read latest schema file %s", filePath)
	}

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("initializing new database with latest schema", slog.String("file", filePath))
	if err := s.execute(ctx, tx, string(bytes)); err != nil {
		return errors.Wrapf(err, "failed to execute SQL file %s", filePath)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	if err := s.driver.UpsertSystemSetting(ctx, SchemaVersionSettingName, SchemaVersion); err != nil {
		return errors.Wrap(err, "failed to update schema version")
	}
	slog.Info("database initialized successfully", slog.String("schemaVersion", SchemaVersion))
	return nil
}

// applyMigrations applies every migration file with a version in
// (current, target] inside a single transaction.
func (s *Store) applyMigrations(ctx context.Context, current, target string) error {
	filePaths, err := fs.Glob(migrationFS, fmt.Sprintf("%s*/*.sql", s.getMigrationBasePath()))
	if err != nil {
		return errors.Wrap(err, "failed to read migration files")
	}
	sort.Strings(filePaths)

	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("start migration", slog.String("currentSchemaVersion", current), slog.String("targetSchemaVersion", target))
	applied := 0
	for _, filePath := range filePaths {
		fileVersion, err := schemaVersionOfMigrateScript(filePath)
		if err != nil {
			return err
		}
		if compareVersion(fileVersion, current) <= 0 || compareVersion(fileVersion, target) > 0 {
			continue
		}
		bytes, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file: %s", filePath)
		}
		slog.Info("applying migration", slog.String("file", filePath), slog.String("version", fileVersion))
		if err := s.execute(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", filePath)
		}
		applied++
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration transaction")
	}
	slog.Info("migration completed", slog.Int("migrationsApplied", applied))

	return errors.Wrap(s.driver.UpsertSystemSetting(ctx, SchemaVersionSettingName, target), "failed to update schema version")
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

// schemaVersionOfMigrateScript maps migration/{driver}/0.2/03__x.sql to 0.2.4.
func schemaVersionOfMigrateScript(filePath string) (string, error) {
	elements := strings.Split(filepath.ToSlash(filePath), "/")
	if len(elements) < 2 {
		return "", errors.Errorf("invalid file path: %s", filePath)
	}
	minorVersion := elements[len(elements)-2]
	fileName := elements[len(elements)-1]
	if !strings.Contains(fileName, MigrateFileNameSplit) {
		return "", errors.Errorf("invalid migration filename format (missing %s): %s", MigrateFileNameSplit, fileName)
	}
	rawPatch := strings.Split(fileName, MigrateFileNameSplit)[0]
	patch, err := strconv.Atoi(rawPatch)
	if err != nil {
		return "", errors.Wrapf(err, "failed to convert patch version to int: %s", rawPatch)
	}
	return fmt.Sprintf("%s.%d", minorVersion, patch+1), nil
}

// compareVersion compares dotted versions without the "v" prefix semver expects.
func compareVersion(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}

// execute runs a SQL script. lib/pq accepts multi-statement scripts only
// without parameters, so postgres scripts run statement by statement.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, script string) error {
	if s.profile.Driver != "postgres" {
		_, err := tx.ExecContext(ctx, script)
		return err
	}
	for i, stmt := range splitSQL(script) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return errors.Wrapf(err, "failed to execute statement %d", i+1)
		}
	}
	return nil
}

// splitSQL splits a script on statement terminators, dropping comment lines.
// Scripts must not contain semicolons inside string literals.
func splitSQL(script string) []string {
	var statements []string
	var current strings.Builder
	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			statements = append(statements, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		statements = append(statements, rest)
	}
	return statements
}
