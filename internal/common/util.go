package common

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateRandByteArray returns size cryptographically random bytes.
// It panics if the system RNG is unavailable, which is not a recoverable
// condition for this server.
func GenerateRandByteArray(size int) []byte {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return b
}

// RandIntBelow returns a uniform random integer in [0, max).
func RandIntBelow(max int64) (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(max))
	if err != nil {
		return 0, err
	}
	return n.Int64(), nil
}

// MakeOTPCode returns a uniformly random 6-digit decimal code in the
// inclusive range 100000–999999.
func MakeOTPCode() (string, error) {
	n, err := RandIntBelow(900000)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n+100000), nil
}
