package utils

import (
    "crypto/rand"
    "crypto/subtle"
    "fmt"
    "math/big"
    "time"
)

// OTPTTL is how long a password reset code stays valid.
const OTPTTL = 10 * time.Minute

// NewOTP returns a uniformly random 6‑digit code, zero padded.
func NewOTP() (string, error) {
    n, err := rand.Int(rand.Reader, big.NewInt(1000000))
    if err != nil {
        return "", err
    }
    return fmt.Sprintf("%06d", n.Int64()), nil
}

// HashOTP returns the value stored for a code.  Codes are never persisted
// in clear text.
func HashOTP(code string) string {
    return sha256Hex(code)
}

// OTPMatches compares a submitted code against a stored hash in constant time.
func OTPMatches(storedHash, code string) bool {
    if storedHash == "" {
        return false
    }
    return subtle.ConstantTimeCompare([]byte(storedHash), []byte(HashOTP(code))) == 1
}

// OTPExpired reports whether expiresAtMs (unix ms) lies before now.
func OTPExpired(expiresAtMs int64, now time.Time) bool {
    return now.UnixMilli() > expiresAtMs
}
