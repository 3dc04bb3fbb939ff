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

	"github.com/hrygo/mentionsense/internal/version"
)

// Schema versions are tracked in system_setting under "schema_version".
//
// Fresh databases get migration/{driver}/LATEST.sql and are stamped with the
// current schema version. Existing databases get every
// migration/{driver}/{minor}/NN__description.sql whose version lies in
// (stored version, current version], applied in lexicographic order inside a
// single transaction.

//go:embed migration
var migrationFS embed.FS

const (
	// MigrateFileNameSplit separates the patch number from the description,
	// e.g. "00__memory_embedding.sql".
	MigrateFileNameSplit = "__"
	// LatestSchemaFileName holds the full schema for new databases.
	LatestSchemaFileName = "LATEST.sql"

	defaultSchemaVersion = "0.0.0"
)

func getSchemaVersionOrDefault(schemaVersion string) string {
	if schemaVersion == "" {
		return defaultSchemaVersion
	}
	return schemaVersion
}

// shouldApplyMigration reports whether fileVersion lies in (current, target].
func shouldApplyMigration(fileVersion, currentDBVersion, targetVersion string) bool {
	return version.IsVersionGreaterThan(fileVersion, getSchemaVersionOrDefault(currentDBVersion)) &&
		version.IsVersionGreaterOrEqualThan(targetVersion, fileVersion)
}

func validateMigrationFileName(filename string) error {
	parts := strings.SplitN(filename, MigrateFileNameSplit, 2)
	if len(parts) < 2 {
		return errors.Errorf("invalid migration filename format (missing %s): %s", MigrateFileNameSplit, filename)
	}
	if _, err := strconv.Atoi(parts[0]); err != nil {
		return errors.Errorf("migration filename must start with a number: %s", filename)
	}
	return nil
}

// Migrate brings the database schema to the version shipped with this binary.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.preMigrate(ctx); err != nil {
		return errors.Wrap(err, "failed to pre-migrate")
	}

	storedVersion, err := s.getStoredSchemaVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to get stored schema version")
	}
	currentSchemaVersion, err := s.GetCurrentSchemaVersion()
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}

	if storedVersion != "" && version.IsVersionGreaterThan(storedVersion, currentSchemaVersion) {
		slog.Error("cannot downgrade schema version",
			slog.String("databaseVersion", storedVersion),
			slog.String("currentVersion", currentSchemaVersion),
		)
		return errors.Errorf("cannot downgrade schema version from %s to %s", storedVersion, currentSchemaVersion)
	}
	if storedVersion == "" || version.IsVersionGreaterThan(currentSchemaVersion, storedVersion) {
		if err := s.applyMigrations(ctx, storedVersion, currentSchemaVersion); err != nil {
			return errors.Wrap(err, "failed to apply migrations")
		}
	}
	return nil
}

func (s *Store) applyMigrations(ctx context.Context, currentSchemaVersion, targetSchemaVersion string) error {
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

	slog.Info("start migration",
		slog.String("currentSchemaVersion", getSchemaVersionOrDefault(currentSchemaVersion)),
		slog.String("targetSchemaVersion", targetSchemaVersion))

	applied := 0
	for _, filePath := range filePaths {
		fileSchemaVersion, err := s.getSchemaVersionOfMigrateScript(filePath)
		if err != nil {
			return errors.Wrap(err, "failed to get schema version of migrate script")
		}
		if !shouldApplyMigration(fileSchemaVersion, currentSchemaVersion, targetSchemaVersion) {
			continue
		}
		if err := validateMigrationFileName(filepath.Base(filePath)); err != nil {
			slog.Warn("migration file has invalid name but will be applied", slog.String("file", filePath), slog.String("error", err.Error()))
		}

		slog.Info("applying migration", slog.String("file", filePath), slog.String("version", fileSchemaVersion))
		bytes, err := migrationFS.ReadFile(filePath)
		if err != nil {
			return errors.Wrapf(err, "failed to read migration file: %s", filePath)
		}
		if err := s.execute(ctx, tx, string(bytes)); err != nil {
			return errors.Wrapf(err, "failed to execute migration %s", filePath)
		}
		applied++
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit migration transaction")
	}
	slog.Info("migration completed", slog.Int("migrationsApplied", applied))

	return s.updateCurrentSchemaVersion(ctx, targetSchemaVersion)
}

// preMigrate applies the latest schema to an uninitialized database.
func (s *Store) preMigrate(ctx context.Context) error {
	initialized, err := s.driver.IsInitialized(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to check if database is initialized")
	}
	if initialized {
		return nil
	}

	filePath := s.getMigrationBasePath() + LatestSchemaFileName
	bytes, err := migrationFS.ReadFile(filePath)
	if err != nil {
		return errors.Errorf("failed to read latest schema file: %s", err)
	}
	tx, err := s.driver.GetDB().BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to start transaction")
	}
	defer tx.Rollback()

	slog.Info("initializing new database with latest schema", slog.String("file", filePath))
	if err := s.execute(ctx, tx, string(bytes)); err != nil {
		return errors.Errorf("failed to execute SQL file %s, err %s", filePath, err)
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}

	schemaVersion, err := s.GetCurrentSchemaVersion()
	if err != nil {
		return errors.Wrap(err, "failed to get current schema version")
	}
	slog.Info("database initialized successfully", slog.String("schemaVersion", schemaVersion))
	return s.updateCurrentSchemaVersion(ctx, schemaVersion)
}

func (s *Store) getMigrationBasePath() string {
	return fmt.Sprintf("migration/%s/", s.profile.Driver)
}

// GetCurrentSchemaVersion returns the schema version this binary ships, derived
// from the last migration file of the current minor version.
func (s *Store) GetCurrentSchemaVersion() (string, error) {
	currentVersion := version.GetCurrentVersion(s.profile.Mode)
	minorVersion := version.GetMinorVersion(currentVersion)
	filePaths, err := fs.Glob(migrationFS, fmt.Sprintf("%s%s/*.sql", s.getMigrationBasePath(), minorVersion))
	if err != nil {
		return "", errors.Wrap(err, "failed to read migration files")
	}

	sort.Strings(filePaths)
	if len(filePaths) == 0 {
		return fmt.Sprintf("%s.0", minorVersion), nil
	}
	return s.getSchemaVersionOfMigrateScript(filePaths[len(filePaths)-1])
}

// getSchemaVersionOfMigrateScript maps ".../0.2/00__x.sql" to "0.2.1".
func (s *Store) getSchemaVersionOfMigrateScript(filePath string) (string, error) {
	if strings.HasSuffix(filePath, LatestSchemaFileName) {
		return s.GetCurrentSchemaVersion()
	}

	elements := strings.Split(filepath.ToSlash(filePath), "/")
	if len(elements) < 2 {
		return "", errors.Errorf("invalid file path: %s", filePath)
	}
	minorVersion := elements[len(elements)-2]
	rawPatchVersion := strings.Split(elements[len(elements)-1], MigrateFileNameSplit)[0]
	patchVersion, err := strconv.Atoi(rawPatchVersion)
	if err != nil {
		return "", errors.Wrapf(err, "failed to convert patch version to int: %s", rawPatchVersion)
	}
	return fmt.Sprintf("%s.%d", minorVersion, patchVersion+1), nil
}

func (s *Store) getStoredSchemaVersion(ctx context.Context) (string, error) {
	setting, err := s.GetSystemSetting(ctx, schemaVersionSettingName)
	if err != nil {
		return "", err
	}
	if setting == nil {
		return "", nil
	}
	return setting.Value, nil
}

func (s *Store) updateCurrentSchemaVersion(ctx context.Context, schemaVersion string) error {
	if _, err := s.UpsertSystemSetting(ctx, &SystemSetting{
		Name:        schemaVersionSettingName,
		Value:       schemaVersion,
		Description: "database schema version",
	}); err != nil {
		return errors.Wrap(err, "failed to update current schema version")
	}
	return nil
}

// execute runs a migration script. PostgreSQL rejects multiple statements in a
// single Exec, so its scripts are split first.
func (s *Store) execute(ctx context.Context, tx *sql.Tx, stmt string) error {
	if s.profile.Driver == "postgres" {
		for i, single := range splitSQL(stmt) {
			if _, err := tx.ExecContext(ctx, single); err != nil {
				return errors.Wrapf(err, "failed to execute statement %d: %s", i+1, single)
			}
		}
		return nil
	}
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to execute statement")
	}
	return nil
}

// splitSQL splits a script on top-level semicolons. Semicolons inside quoted
// strings, dollar-quoted bodies and comments do not terminate a statement.
func splitSQL(script string) []string {
	var (
		statements    []string
		current       strings.Builder
		dollarTag     string
		inSingleQuote bool
		inComment     bool
	)

	flush := func() {
		if stmt := strings.TrimSpace(current.String()); stmt != "" {
			statements = append(statements, stmt)
		}
		current.Reset()
	}

	for _, line := range strings.Split(script, "\n") {
		trimmed := strings.TrimSpace(line)
		if dollarTag == "" && !inSingleQuote && !inComment && strings.HasPrefix(trimmed, "--") {
			continue
		}

		for i := 0; i < len(line); i++ {
			ch := line[i]
			switch {
			case inComment:
				if ch == '*' && i+1 < len(line) && line[i+1] == '/' {
					inComment = false
					i++
				}
				continue
			case ch == '$' && !inSingleQuote:
				end := strings.IndexByte(line[i+1:], '$')
				if end < 0 {
					break
				}
				tag := line[i : i+end+2]
				if dollarTag == "" {
					dollarTag = tag
				} else if tag == dollarTag {
					dollarTag = ""
				}
				current.WriteString(tag)
				i += end + 1
				continue
			case dollarTag != "":
			case ch == '\'':
				inSingleQuote = !inSingleQuote
			case inSingleQuote:
			case ch == '/' && i+1 < len(line) && line[i+1] == '*':
				inComment = true
				i++
				continue
			case ch == '-' && i+1 < len(line) && line[i+1] == '-':
				i = len(line)
				continue
			case ch == ';':
				current.WriteByte(ch)
				flush()
				continue
			}
			current.WriteByte(ch)
		}
		if current.Len() > 0 {
			current.WriteByte('\n')
		}
	}
	flush()
	return statements
}
