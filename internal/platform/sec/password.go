// Copyright (c) 2026 Labtrace. All rights reserved.
// Author: engineering@labtrace.io

package sec

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// passwordAlphabet is the character set for generated passwords.
const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultPasswordLength is the length of generated initial passwords.
const DefaultPasswordLength = 16

// GeneratePassword creates a cryptographically-secure random password.
//
// It is used when operators provision accounts without an explicit password
// (the user is expected to rotate it on first login).
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		length = DefaultPasswordLength
	}

	alphabetSize := big.NewInt(int64(len(passwordAlphabet)))
	password := make([]byte, length)

	for i := range password {
		index, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("sec: failed to generate password: %w", err)
		}
		password[i] = passwordAlphabet[index.Int64()]
	}

	return string(password), nil
}
