package dispatch

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// generateVerificationCode returns a 6-digit single-use code, zero-padded.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate verification code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// formatBookingNumber builds the human-facing booking number from the
// creation day and the day's 1-based sequence, e.g. BK-20260901-0007.
func formatBookingNumber(day time.Time, seq int) string {
	return fmt.Sprintf("BK-%s-%04d", day.Format("20060102"), seq)
}
