package auth

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the fixed hashing cost for stored passwords.
const BcryptCost = 12

// PasswordSymbols is the punctuation set a password must draw at least one symbol from.
const PasswordSymbols = "#?!@$%^&*-"

// MinPasswordLength is the shortest accepted password.
const MinPasswordLength = 8

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

// Password policy violations.
var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 bytes")
	ErrPasswordNoUpper  = errors.New("password must contain an uppercase letter")
	ErrPasswordNoLower  = errors.New("password must contain a lowercase letter")
	ErrPasswordNoDigit  = errors.New("password must contain a digit")
	ErrPasswordNoSymbol = errors.New("password must contain one of " + PasswordSymbols)
)

// HashPassword hashes a plaintext password with BcryptCost.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// CheckPasswordPolicy returns the first policy rule the password violates.
func CheckPasswordPolicy(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case 'A' <= r && r <= 'Z':
			upper = true
		case 'a' <= r && r <= 'z':
			lower = true
		case '0' <= r && r <= '9':
			digit = true
		}
	}
	switch {
	case !upper:
		return ErrPasswordNoUpper
	case !lower:
		return ErrPasswordNoLower
	case !digit:
		return ErrPasswordNoDigit
	case !strings.ContainsAny(password, PasswordSymbols):
		return ErrPasswordNoSymbol
	}
	return nil
}
