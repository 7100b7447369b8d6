package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// PasswordMask is shown instead of stored password hashes. Writing it back
// on update means "leave the password unchanged".
const PasswordMask = "********"

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// VerifyPassword compares a plain password with a hashed password
func VerifyPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
