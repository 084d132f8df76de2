package db

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	stdfs "io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"worshipScheduling/internal/config"
)

const (
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

// DSN builds the driver name and data source name for cfg.
func DSN(cfg config.DatabaseConfig) (string, string) {
	if cfg.Driver == DriverMySQL {
		mc := mysql.NewConfig()
		mc.Net = "tcp"
		mc.Addr = cfg.Host + ":" + strconv.Itoa(cfg.Port)
		mc.User = cfg.User
		mc.Passwd = cfg.Password
		mc.DBName = cfg.Name
		mc.ParseTime = true
		mc.MultiStatements = true
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return DriverMySQL, mc.FormatDSN()
	}
	path := cfg.Path
	if path == "" {
		path = "app.db"
	}
	return DriverSQLite, path
}

// Open connects to the database for driver and applies pending migrations.
// It uses versioned .sql files under internal/db/migrations/<driver> following the pattern:
//
//	0001_name.up.sql / 0001_name.down.sql
//
// Only new migrations are applied. Use RollbackLast to revert the last applied migration.
func Open(driver, dsn string) (*sql.DB, error) {
	d, err := Connect(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(d, driver); err != nil {
		_ = d.Close()
		return nil, err
	}
	return d, nil
}

// Connect opens and pings the database without touching the schema.
func Connect(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case DriverSQLite:
		if dsn == "" {
			dsn = "app.db"
		}
		dsn = withSQLiteParams(dsn)
	case DriverMySQL:
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	d, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if err := d.Ping(); err != nil {
		_ = d.Close()
		return nil, err
	}
	if driver == DriverSQLite {
		// One connection: SQLite has a single writer and foreign_keys is per-connection.
		d.SetMaxOpenConns(1)
		// journal_mode may not be supported in some contexts (e.g., in-memory). Ignore errors.
		_, _ = d.Exec(`PRAGMA journal_mode=WAL`)
		if _, err := d.Exec(`PRAGMA busy_timeout=5000`); err != nil {
			_ = d.Close()
			return nil, err
		}
		if _, err := d.Exec(`PRAGMA foreign_keys=ON`); err != nil {
			_ = d.Close()
			return nil, err
		}
	}
	return d, nil
}

// Migrate applies every embedded migration for driver that is not recorded yet.
func Migrate(d *sql.DB, driver string) error {
	return applyMigrations(d, driver)
}

// withSQLiteParams appends the foreign key switch so that a reconnect keeps enforcing it.
func withSQLiteParams(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=1"
}

// RollbackLast rolls back the most recently applied migration, if its down script exists.
// It returns the reverted version, or 0 when nothing was applied.
func RollbackLast(d *sql.DB, driver string) (int, error) {
	if d == nil {
		return 0, errors.New("nil db")
	}
	if err := ensureMigrationsTable(d, driver); err != nil {
		return 0, err
	}
	var version int
	err := d.QueryRow(`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil // nothing to rollback
	} else if err != nil {
		return 0, err
	}
	migs, err := loadMigrations(driver)
	if err != nil {
		return 0, err
	}
	m, ok := migs[version]
	if !ok || m.downFile == "" {
		return 0, fmt.Errorf("no down migration found for version %d", version)
	}
	sqlText, err := migrationsFS.ReadFile(m.downFile)
	if err != nil {
		return 0, err
	}
	if err := run(d, string(sqlText), `DELETE FROM schema_migrations WHERE version = ?`, version); err != nil {
		return 0, fmt.Errorf("rollback %04d failed: %w", version, err)
	}
	return version, nil
}

// AppliedVersions lists applied migration versions in ascending order.
func AppliedVersions(d *sql.DB, driver string) ([]int, error) {
	got, err := appliedVersions(d, driver)
	if err != nil {
		return nil, err
	}
	out := make([]int, 0, len(got))
	for v := range got {
		out = append(out, v)
	}
	sort.Ints(out)
	return out, nil
}

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

type migration struct {
	version  int
	name     string
	upFile   string // path inside embedded FS
	downFile string // path inside embedded FS
}

var migFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.(up|down)\.sql$`)

func loadMigrations(driver string) (map[int]migration, error) {
	entries := map[int]migration{}
	dir := "migrations/" + driver
	list, err := stdfs.ReadDir(migrationsFS, dir)
	if err != nil {
		// if directory missing, just return empty set
		return entries, nil
	}
	for _, de := range list {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		m := migFileRe.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		verStr, migName, kind := m[1], m[2], m[3]
		ver, err := strconv.Atoi(verStr)
		if err != nil {
			continue
		}
		item := entries[ver]
		item.version = ver
		item.name = migName
		p := dir + "/" + name
		if kind == "up" {
			item.upFile = p
		} else {
			item.downFile = p
		}
		entries[ver] = item
	}
	return entries, nil
}

func ensureMigrationsTable(d *sql.DB, driver string) error {
	ddl := `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INTEGER PRIMARY KEY,
        applied_at TEXT NOT NULL DEFAULT (CURRENT_TIMESTAMP)
    )`
	if driver == DriverMySQL {
		ddl = `CREATE TABLE IF NOT EXISTS schema_migrations (
        version INT NOT NULL PRIMARY KEY,
        applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
    ) ENGINE=InnoDB`
	}
	_, err := d.Exec(ddl)
	return err
}

func appliedVersions(d *sql.DB, driver string) (map[int]bool, error) {
	if err := ensureMigrationsTable(d, driver); err != nil {
		return nil, err
	}
	rows, err := d.Query(`SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	got := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		got[v] = true
	}
	return got, rows.Err()
}

func applyMigrations(d *sql.DB, driver string) error {
	migs, err := loadMigrations(driver)
	if err != nil {
		return err
	}
	if len(migs) == 0 {
		// nothing to do
		return nil
	}
	applied, err := appliedVersions(d, driver)
	if err != nil {
		return err
	}
	// order versions
	versions := make([]int, 0, len(migs))
	for v := range migs {
		versions = append(versions, v)
	}
	sort.Ints(versions)
	for _, v := range versions {
		if applied[v] {
			continue
		}
		m := migs[v]
		if strings.TrimSpace(m.upFile) == "" {
			return fmt.Errorf("missing up migration for version %04d", v)
		}
		sqlText, err := migrationsFS.ReadFile(m.upFile)
		if err != nil {
			return err
		}
		if err := run(d, string(sqlText), `INSERT INTO schema_migrations(version) VALUES(?)`, v); err != nil {
			return fmt.Errorf("migration %04d failed: %w", v, err)
		}
	}
	return nil
}

// run executes a migration script and its bookkeeping statement, inside a transaction
// unless the script starts with "-- NO_TX".
func run(d *sql.DB, text, bookkeeping string, version int) error {
	if strings.HasPrefix(strings.TrimSpace(text), "-- NO_TX") {
		if _, err := d.Exec(text); err != nil {
			return err
		}
		_, err := d.Exec(bookkeeping, version)
		return err
	}
	tx, err := d.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(text); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(bookkeeping, version); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
