package testutil

import (
	"database/sql"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"gorm.io/gorm"

	"worshipScheduling/internal/db"
	"worshipScheduling/models"
)

// OpenInMemoryDB opens an in-memory SQLite database and applies migrations.
// The DB is closed via t.Cleanup. Use a distinct name per test to avoid sharing state.
func OpenInMemoryDB(t *testing.T, name string) *sql.DB {
	t.Helper()
	// Shared cache keeps the database alive across reconnects of the single pooled connection.
	d, err := db.Open(db.DriverSQLite, "file:"+name+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// OpenInMemoryORM is OpenInMemoryDB wrapped in gorm with logging disabled.
func OpenInMemoryORM(t *testing.T, name string) *gorm.DB {
	t.Helper()
	orm, err := db.NewORM(OpenInMemoryDB(t, name), db.DriverSQLite, nil)
	if err != nil {
		t.Fatalf("open orm: %v", err)
	}
	return orm
}

// InsertUser stores a user with the given role and password hash and returns it.
func InsertUser(t *testing.T, orm *gorm.DB, username string, role models.Role, passwordHash string) *models.User {
	t.Helper()
	u := &models.User{Name: username, Username: username, Role: role, Password: passwordHash}
	if err := orm.Omit("Instruments").Create(u).Error; err != nil {
		t.Fatalf("insert user %s: %v", username, err)
	}
	return u
}

// GenerateJWTHS256 returns a signed JWT string carrying the claims the API reads, valid for an hour.
func GenerateJWTHS256(t *testing.T, secret string, u *models.User) string {
	t.Helper()
	return sign(t, secret, u, time.Now().Add(time.Hour))
}

// GenerateExpiredJWTHS256 is like GenerateJWTHS256 but the token expired a minute ago.
func GenerateExpiredJWTHS256(t *testing.T, secret string, u *models.User) string {
	t.Helper()
	return sign(t, secret, u, time.Now().Add(-time.Minute))
}

func sign(t *testing.T, secret string, u *models.User, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"userId":   u.ID,
		"username": u.Username,
		"name":     u.Name,
		"role":     string(u.Role),
		"exp":      exp.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return s
}

// Bearer returns the Authorization header value for token.
func Bearer(token string) string {
	return "Bearer " + token
}
