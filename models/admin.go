package models

// NewAdmin creates a user model with Role preset to "admin".
// The caller sets the password hash before persisting.
func NewAdmin(name, username string) *User {
	return &User{Name: name, Username: username, Role: RoleAdmin}
}
