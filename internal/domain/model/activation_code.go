package model

import (
	"strings"
	"time"

	"subscription-activation/internal/domain"
)

// CodeLength is the fixed raw length of an activation code.
const CodeLength = 10

// ActivationCode is a single-use bearer code redeemable for subscription
// time. Rows are never deleted after redemption (audit trail).
type ActivationCode struct {
	ID        string
	Code      string
	Plan      Plan
	IsUsed    bool
	UsedBy    *string    // Pointer to allow for NULL
	UsedAt    *time.Time // Pointer to allow for NULL
	BatchID   *string    // nil for ungrouped codes
	BatchName *string
	// Shannon entropy of the code relative to the alphabet maximum,
	// recorded at generation time. Diagnostic only.
	EntropyRatio  float64
	IsHighEntropy bool
	CreatedAt     time.Time
}

// NormalizeCode strips separators and whitespace and uppercases the input,
// returning ErrMalformedCode when the result is not exactly CodeLength.
func NormalizeCode(raw string) (string, error) {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch {
		case r == '-' || r == ' ' || r == '\t':
			continue
		default:
			b.WriteRune(r)
		}
	}
	code := strings.ToUpper(b.String())
	if len(code) != CodeLength {
		return "", domain.ErrMalformedCode
	}
	return code, nil
}

// FormatCode groups a raw code as XXXX-XXXX-XX for human presentation.
func FormatCode(code string) string {
	if len(code) != CodeLength {
		return code
	}
	return code[0:4] + "-" + code[4:8] + "-" + code[8:10]
}
