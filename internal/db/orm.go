package db

import (
	"database/sql"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewORM wraps an already opened and migrated pool in gorm. The pool stays owned by the
// caller; closing it closes the ORM as well.
func NewORM(d *sql.DB, driver string, logger gormlogger.Interface) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite:
		dialector = &sqlite.Dialector{Conn: d}
	case DriverMySQL:
		dialector = mysql.New(mysql.Config{Conn: d})
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
	if logger == nil {
		logger = gormlogger.Discard
	}
	orm, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 logger,
		TranslateError:         true,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open orm: %w", err)
	}
	return orm, nil
}
