package tool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGeneratePaymentReference_Format(t *testing.T) {
	ref := GeneratePaymentReference()
	require.True(t, strings.HasPrefix(ref, "PAY-"))
	require.Len(t, ref, len("PAY-")+16)
}

func TestGenerateRedemptionCode_UniqueAndClean(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code := GenerateRedemptionCode()
		require.True(t, strings.HasPrefix(code, "TKT-"))
		require.False(t, seen[code], "duplicate code %s", code)
		for _, c := range code[4:] {
			require.NotContains(t, "01OIL", string(c))
		}
		seen[code] = true
	}
}

func TestGenerateUUIDV7_Parses(t *testing.T) {
	id := GenerateUUIDV7()
	require.Len(t, id, 36)
}
