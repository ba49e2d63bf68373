package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateValidationCode returns a random code of length hex characters.
func GenerateValidationCode(length int) (string, error) {
	bytes := make([]byte, (length+1)/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	return hex.EncodeToString(bytes)[:length], nil
}
