package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PINLength is the fixed credential length.
const PINLength = 4

// ValidPIN reports whether s is exactly four ASCII digits.
func ValidPIN(s string) bool {
	if len(s) != PINLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// HashPIN derives the stored credential from a PIN.
func HashPIN(pin string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash PIN: %w", err)
	}
	return string(bytes), nil
}

// CheckPIN compares a PIN against the stored credential. Exact match only.
func CheckPIN(pin, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
