package usecase

import (
	"crypto/rand"
	"fmt"
	"io"
	"math"

	"subscription-activation/internal/domain/model"
)

// codeAlphabet holds the 33 symbols a code may use. 0, 1 and O are dropped
// so no remaining symbol is visually confusable with another.
const codeAlphabet = "23456789ABCDEFGHIJKLMNPQRSTUVWXYZ"

const (
	alphabetSize       = len(codeAlphabet)
	maxAttemptsPerCode = 100
)

// keyspaceSize is 33^10, the number of distinct raw codes.
var keyspaceSize = math.Pow(float64(alphabetSize), float64(model.CodeLength))

// maxEntropyBits is the per-symbol entropy ceiling, log2(33).
var maxEntropyBits = math.Log2(float64(alphabetSize))

var alphabetIndex = func() map[byte]int {
	m := make(map[byte]int, alphabetSize)
	for i := 0; i < alphabetSize; i++ {
		m[codeAlphabet[i]] = i
	}
	return m
}()

// generateCandidate draws one code from crypto/rand. Codes double as
// bearer credentials, so a weaker PRNG is not acceptable here. Rejection
// sampling keeps the symbol distribution uniform.
func generateCandidate() (string, error) {
	// 231 = 7*33 is the largest multiple of the alphabet size below 256.
	const limit = byte(231)

	out := make([]byte, model.CodeLength)
	buf := make([]byte, 1)
	for i := 0; i < model.CodeLength; {
		if _, err := io.ReadFull(rand.Reader, buf); err != nil {
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		if buf[0] >= limit {
			continue
		}
		out[i] = codeAlphabet[int(buf[0])%alphabetSize]
		i++
	}
	return string(out), nil
}

// isStrongCode rejects statistically weak codes. A code fails when any of
// the following holds:
//  1. three or more identical consecutive characters
//  2. a 3-run of consecutive alphabet positions, ascending or descending
//  3. an immediately repeated block of length >= 2 (XYXY)
//  4. fewer than 4 distinct characters
func isStrongCode(code string) bool {
	if len(code) != model.CodeLength {
		return false
	}

	distinct := make(map[byte]struct{}, len(code))
	for i := 0; i < len(code); i++ {
		if _, ok := alphabetIndex[code[i]]; !ok {
			return false
		}
		distinct[code[i]] = struct{}{}
	}
	if len(distinct) < 4 {
		return false
	}

	for i := 0; i+2 < len(code); i++ {
		if code[i] == code[i+1] && code[i+1] == code[i+2] {
			return false
		}
		a, b, c := alphabetIndex[code[i]], alphabetIndex[code[i+1]], alphabetIndex[code[i+2]]
		if b == a+1 && c == b+1 {
			return false
		}
		if b == a-1 && c == b-1 {
			return false
		}
	}

	for size := 2; 2*size <= len(code); size++ {
		for i := 0; i+2*size <= len(code); i++ {
			if code[i:i+size] == code[i+size:i+2*size] {
				return false
			}
		}
	}
	return true
}

// entropyRatio is the Shannon entropy of the code's symbol distribution
// relative to the alphabet maximum. Recorded as diagnostic metadata, never
// used as a generation gate.
func entropyRatio(code string) float64 {
	if len(code) == 0 {
		return 0
	}
	freq := make(map[byte]int, len(code))
	for i := 0; i < len(code); i++ {
		freq[code[i]]++
	}
	var h float64
	n := float64(len(code))
	for _, c := range freq {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h / maxEntropyBits
}

const highEntropyThreshold = 0.8

// collisionProbability is the birthday-paradox estimate 1 - e^(-n^2/2K)
// for a batch of n codes drawn from a keyspace of size K.
func collisionProbability(n int) float64 {
	if n <= 1 {
		return 0
	}
	fn := float64(n)
	return 1 - math.Exp(-(fn*fn)/(2*keyspaceSize))
}
