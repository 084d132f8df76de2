package models

import "time"

// Role is one of the two flat access levels.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleMusician Role = "musician"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMusician
}

// User represents a member of the worship team.
// It maps to the `users` table. Password holds the bcrypt hash and is never serialized.
type User struct {
	ID          int64            `gorm:"primaryKey" json:"id"`
	Name        string           `json:"name"`
	Username    string           `json:"username"`
	Email       *string          `json:"email"`
	Password    string           `json:"-"`
	Role        Role             `gorm:"default:musician" json:"role"`
	Instruments []UserInstrument `gorm:"foreignKey:UserID" json:"instruments,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

func (User) TableName() string { return "users" }

// IsAdmin is a convenience for role checks.
func (u *User) IsAdmin() bool { return u != nil && u.Role == RoleAdmin }

// UserInstrument is an instrument a user plays in general, stored upper-cased.
type UserInstrument struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	UserID     int64  `json:"userId"`
	Instrument string `json:"instrument"`
}

func (UserInstrument) TableName() string { return "user_instruments" }

// PublicUser is the subset of a user embedded in schedule rows.
type PublicUser struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

func (PublicUser) TableName() string { return "users" }
