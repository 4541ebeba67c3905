package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// RandomOTP returns a 6-digit one-time code.
func RandomOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("crypto/rand: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
