package events

import (
	"crypto/rand"
	"fmt"
)

// codeAlphabet leaves out 0/O and 1/I so codes read aloud without confusion.
const (
	codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	codeLength   = 6
)

// generateCode produces a random share code. Uniqueness is enforced by the
// store; the caller retries on a collision.
func generateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(buf), nil
}
