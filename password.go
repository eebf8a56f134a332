package auth

import (
	"errors"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashPassword generates a password hash with a fresh salt on every call.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	h, err := bcrypt.GenerateFromPassword([]byte(password), passwordHashCost())
	return string(h), err
}

// VerifyAndUpdate checks password against the stored hash. A missing hash
// and a wrong password are indistinguishable: both return valid=false.
// When the stored hash uses a lower cost than the current default, a
// replacement hash is returned for the caller to persist.
func VerifyAndUpdate(password, hash string) (valid bool, replacement string) {
	if password == "" || hash == "" {
		return false, ""
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return false, ""
	}

	cost, err := bcrypt.Cost([]byte(hash))
	if err == nil && cost < passwordHashCost() {
		if rehash, err := HashPassword(password); err == nil {
			replacement = rehash
		}
	}

	return true, replacement
}

// ComparePasswordAndHash validates the given cleartext password against
// the hashed password without offering a rehash.
func ComparePasswordAndHash(password, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrAccessDenied
		}
		return err
	}
	return nil
}

// RandomPasswordHash returns a hash no password verifies against, for
// accounts created without credentials.
func RandomPasswordHash() string {
	pwd := uuid.New()

	h, err := HashPassword(pwd.String())
	if err != nil {
		return RandomPasswordHash()
	}

	return h
}
