package tool

import (
	"crypto/rand"
	"strings"

	"github.com/google/uuid"
)

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Alphabet without easily-confused characters (0/O, 1/I/L).
const codeAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

func randomCode(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failure is unrecoverable for code issuance
		panic(err)
	}
	var b strings.Builder
	b.Grow(n)
	for _, c := range buf {
		b.WriteByte(codeAlphabet[int(c)%len(codeAlphabet)])
	}
	return b.String()
}

// GeneratePaymentReference returns the externally shown payment reference.
func GeneratePaymentReference() string {
	return "PAY-" + randomCode(16)
}

// GenerateRedemptionCode returns a per-unit ticket redemption code.
func GenerateRedemptionCode() string {
	return "TKT-" + randomCode(10)
}
