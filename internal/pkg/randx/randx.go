/*
Package randx provides functions for generating cryptographically secure random identifiers.

It is used to generate Base62 pad IDs for the "new pad" page and throwaway
signing secrets for development servers.
*/
package randx

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
)

const (
	// Base62Chars defines the character set used for Base62 encoding (0-9, A-Z, a-z).
	Base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	// Base62Len is the total number of characters in the Base62 character set (62).
	Base62Len = int64(len(Base62Chars))

	// PadIDLength is the length of generated pad IDs.
	PadIDLength = 10

	// MaxPadIDLength bounds user-supplied pad IDs.
	MaxPadIDLength = 50
)

// PadID generates a Base62 encoded pad ID using crypto/rand.
func PadID() (string, error) {
	result := make([]byte, PadIDLength)

	for i := 0; i < PadIDLength; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(Base62Len))
		if err != nil {
			return "", fmt.Errorf("failed to generate random number for pad id: %v", err)
		}

		result[i] = Base62Chars[num.Int64()]
	}

	return string(result), nil
}

// IsValidPadID checks if the given string can be used as a pad ID.
// Pad IDs are 1 to MaxPadIDLength characters from Base62 plus '-' and '_'.
func IsValidPadID(id string) bool {
	if id == "" || len(id) > MaxPadIDLength {
		return false
	}

	for _, char := range id {
		if char == '-' || char == '_' {
			continue
		}
		if !strings.ContainsRune(Base62Chars, char) {
			return false
		}
	}

	return true
}

// Secret returns n random bytes encoded as unpadded URL-safe base64.
func Secret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate secret: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
