package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the bcrypt work factor for stored hashes.
const PasswordCost = 10

// dummyHash is compared against when the user does not exist so that both login
// failures take the same time.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), PasswordCost)

func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword compares password against hash. An empty hash is checked against a
// dummy so the caller does not leak whether the account exists.
func CheckPassword(hash, password string) bool {
	if hash == "" {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
