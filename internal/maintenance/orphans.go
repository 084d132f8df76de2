// Package maintenance finds and removes rows whose owning user or schedule is gone.
// Foreign keys prevent these on a healthy database; they show up after imports or
// after running with foreign key enforcement off.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"
)

// Orphan identifies one dangling row.
type Orphan struct {
	Table      string        `db:"table_name"`
	ID         int64         `db:"id"`
	ScheduleID sql.NullInt64 `db:"schedule_id"`
	UserID     sql.NullInt64 `db:"user_id"`
}

func (o Orphan) String() string {
	return fmt.Sprintf("%s#%d (schedule=%v user=%v)", o.Table, o.ID, nullable(o.ScheduleID), nullable(o.UserID))
}

func nullable(v sql.NullInt64) any {
	if !v.Valid {
		return "-"
	}
	return v.Int64
}

type queryer interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

// orphanQueries select the dangling rows of each owned table.
var orphanQueries = []struct {
	table string
	query string
}{
	{"schedule_participations", `SELECT 'schedule_participations' AS table_name, p.id, p.schedule_id, p.user_id
		FROM schedule_participations p
		LEFT JOIN users u ON u.id = p.user_id
		LEFT JOIN schedules s ON s.id = p.schedule_id
		WHERE u.id IS NULL OR s.id IS NULL ORDER BY p.id`},
	{"schedule_confirmations", `SELECT 'schedule_confirmations' AS table_name, c.id, c.schedule_id, c.user_id
		FROM schedule_confirmations c
		LEFT JOIN users u ON u.id = c.user_id
		LEFT JOIN schedules s ON s.id = c.schedule_id
		WHERE u.id IS NULL OR s.id IS NULL ORDER BY c.id`},
	{"schedule_change_requests", `SELECT 'schedule_change_requests' AS table_name, r.id, r.schedule_id, r.user_id
		FROM schedule_change_requests r
		LEFT JOIN users u ON u.id = r.user_id
		LEFT JOIN schedules s ON s.id = r.schedule_id
		WHERE u.id IS NULL OR s.id IS NULL ORDER BY r.id`},
	{"schedule_songs", `SELECT 'schedule_songs' AS table_name, g.id, g.schedule_id, NULL AS user_id
		FROM schedule_songs g
		LEFT JOIN schedules s ON s.id = g.schedule_id
		WHERE s.id IS NULL ORDER BY g.id`},
	{"user_instruments", `SELECT 'user_instruments' AS table_name, i.id, NULL AS schedule_id, i.user_id
		FROM user_instruments i
		LEFT JOIN users u ON u.id = i.user_id
		WHERE u.id IS NULL ORDER BY i.id`},
}

// Cleaner runs the orphan queries over a raw connection pool.
type Cleaner struct {
	db *sqlx.DB
}

// NewCleaner wraps an open pool; driver is the database/sql driver name it was opened with.
func NewCleaner(db *sql.DB, driver string) *Cleaner {
	return &Cleaner{db: sqlx.NewDb(db, driver)}
}

// FindOrphans lists every dangling row across the owned tables.
func (c *Cleaner) FindOrphans(ctx context.Context) ([]Orphan, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return findOrphans(ctx, c.db)
}

func findOrphans(ctx context.Context, q queryer) ([]Orphan, error) {
	var out []Orphan
	for _, oq := range orphanQueries {
		var rows []Orphan
		if err := q.SelectContext(ctx, &rows, oq.query); err != nil {
			return nil, fmt.Errorf("find orphans in %s: %w", oq.table, err)
		}
		out = append(out, rows...)
	}
	return out, nil
}

// DeleteOrphans removes every dangling row in one transaction and returns what it removed.
func (c *Cleaner) DeleteOrphans(ctx context.Context) ([]Orphan, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	tx, err := c.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	orphans, err := findOrphans(ctx, tx)
	if err != nil {
		return nil, err
	}
	for table, group := range lo.GroupBy(orphans, func(o Orphan) string { return o.Table }) {
		ids := lo.Map(group, func(o Orphan, _ int) int64 { return o.ID })
		query, args, err := sqlx.In(`DELETE FROM `+table+` WHERE id IN (?)`, ids)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return nil, fmt.Errorf("delete orphans in %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return orphans, nil
}
