package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned on a unique constraint violation.
	ErrConflict = errors.New("conflict")
	// ErrInvalidReference is returned when a foreign key points at a missing row.
	ErrInvalidReference = errors.New("invalid reference")
)

// translate maps driver and ORM errors onto the package sentinels, keeping the original in the chain.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) || errors.Is(err, ErrInvalidReference) {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidReference, err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1062:
			return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
		case 1451, 1452:
			return fmt.Errorf("%s: %w: %v", op, ErrInvalidReference, err)
		}
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) && liteErr.Code == sqlite3.ErrConstraint {
		switch {
		case liteErr.ExtendedCode == sqlite3.ErrConstraintUnique, liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
			return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
		case liteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
			return fmt.Errorf("%s: %w: %v", op, ErrInvalidReference, err)
		}
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%s: %w: %v", op, ErrInvalidReference, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
