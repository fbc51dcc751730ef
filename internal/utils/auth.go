package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

func NormalizeEmail(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

func NormalizeInput(input string) string {
	return strings.TrimSpace(input)
}

func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("Failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// HashToken produces the storable one-way form of a refresh/email token.
// The raw token never touches the database.
func HashToken(token, salt string) string {
	h := sha256.New()
	h.Write([]byte(salt))
	h.Write([]byte(token))
	return hex.EncodeToString(h.Sum(nil))
}
