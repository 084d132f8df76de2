package db

import (
	"testing"

	"worshipScheduling/internal/config"
)

func TestOpen_AppliesMigrationsAndRollsBack(t *testing.T) {
	d, err := Open(DriverSQLite, "file:dbmigrations?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	versions, err := AppliedVersions(d, DriverSQLite)
	if err != nil {
		t.Fatalf("applied versions: %v", err)
	}
	if len(versions) == 0 || versions[0] != 1 {
		t.Fatalf("expected version 1 applied, got %v", versions)
	}

	var fk int
	if err := d.QueryRow(`PRAGMA foreign_keys`).Scan(&fk); err != nil || fk != 1 {
		t.Fatalf("foreign keys not enforced: fk=%d err=%v", fk, err)
	}

	for _, table := range []string{"users", "schedules", "schedule_songs", "schedule_participations", "schedule_confirmations", "schedule_change_requests", "user_instruments"} {
		var n int
		if err := d.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	v, err := RollbackLast(d, DriverSQLite)
	if err != nil || v != 1 {
		t.Fatalf("rollback: v=%d err=%v", v, err)
	}
	if _, err := d.Exec(`SELECT 1 FROM users`); err == nil {
		t.Fatalf("users table should be dropped after rollback")
	}
	v, err = RollbackLast(d, DriverSQLite)
	if err != nil || v != 0 {
		t.Fatalf("second rollback should be a no-op: v=%d err=%v", v, err)
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	if _, err := Open("postgres", "whatever"); err == nil {
		t.Fatalf("expected error for unsupported driver")
	}
}

func TestDSN(t *testing.T) {
	driver, dsn := DSN(config.DatabaseConfig{Driver: "mysql", Host: "db", Port: 3306, User: "u", Password: "p", Name: "escalas"})
	if driver != DriverMySQL {
		t.Fatalf("driver = %s", driver)
	}
	want := "u:p@tcp(db:3306)/escalas?"
	if len(dsn) < len(want) || dsn[:len(want)] != want {
		t.Fatalf("unexpected mysql dsn: %s", dsn)
	}

	driver, dsn = DSN(config.DatabaseConfig{Driver: "sqlite3"})
	if driver != DriverSQLite || dsn != "app.db" {
		t.Fatalf("sqlite defaults: %s %s", driver, dsn)
	}
}

func TestWithSQLiteParams(t *testing.T) {
	cases := map[string]string{
		"app.db":                 "app.db?_foreign_keys=1",
		"file:x?mode=memory":     "file:x?mode=memory&_foreign_keys=1",
		"file:y?_foreign_keys=0": "file:y?_foreign_keys=0",
	}
	for in, want := range cases {
		if got := withSQLiteParams(in); got != want {
			t.Errorf("withSQLiteParams(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConnect_LeavesSchemaAlone(t *testing.T) {
	d, err := Connect(DriverSQLite, "file:dbconnect?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })

	if _, err := d.Exec(`SELECT 1 FROM users`); err == nil {
		t.Fatalf("users table should not exist before Migrate")
	}
	if err := Migrate(d, DriverSQLite); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := Migrate(d, DriverSQLite); err != nil {
		t.Fatalf("second migrate should be a no-op: %v", err)
	}
	versions, err := AppliedVersions(d, DriverSQLite)
	if err != nil || len(versions) != 1 {
		t.Fatalf("versions: %v err=%v", versions, err)
	}
}
