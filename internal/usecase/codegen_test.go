package usecase

import (
	"math"
	"strings"
	"testing"

	"subscription-activation/internal/domain/model"
)

func TestGenerateCandidate(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		code, err := generateCandidate()
		if err != nil {
			t.Fatalf("generateCandidate: %v", err)
		}
		if len(code) != model.CodeLength {
			t.Fatalf("length = %d, want %d (code %q)", len(code), model.CodeLength, code)
		}
		for j := 0; j < len(code); j++ {
			if !strings.ContainsRune(codeAlphabet, rune(code[j])) {
				t.Fatalf("code %q contains %q outside the alphabet", code, code[j])
			}
		}
		seen[code] = struct{}{}
	}
	// 500 draws from a 33^10 keyspace should never collide.
	if len(seen) != 500 {
		t.Errorf("got %d distinct codes out of 500", len(seen))
	}
}

func TestIsStrongCode(t *testing.T) {
	cases := []struct {
		name string
		code string
		want bool
	}{
		{"typical strong code", "X7K2M9PQ4R", true},
		{"triple repeat", "XXXK2M9PQ4", false},
		{"triple repeat at end", "K2M9PQ4RRR", false},
		{"ascending alphabet run", "ABCK2M9PQ4", false},
		{"descending alphabet run", "CBAK2M9PQ4", false},
		{"ascending digits run", "234K2M9PQW", false},
		{"repeated pair block", "XYXYK2M9PQ", false},
		{"repeated block size 5", "K2M9PK2M9P", false},
		{"three distinct symbols", "X7X7X7XX77", false},
		{"four distinct symbols ok", "X7K2X7KX72", true},
		{"wrong length", "X7K2M9P", false},
		{"symbol outside alphabet", "X7K2M9PQ40", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isStrongCode(tc.code); got != tc.want {
				t.Errorf("isStrongCode(%q) = %v, want %v", tc.code, got, tc.want)
			}
		})
	}
}

func TestGeneratedCodesAreStrong(t *testing.T) {
	// generateCandidate is filter-agnostic, so weak draws are possible but
	// rare. Check the filter accepts the overwhelming majority.
	rejected := 0
	for i := 0; i < 1000; i++ {
		code, err := generateCandidate()
		if err != nil {
			t.Fatalf("generateCandidate: %v", err)
		}
		if !isStrongCode(code) {
			rejected++
		}
	}
	if rejected > 100 {
		t.Errorf("strength filter rejected %d of 1000 random codes", rejected)
	}
}

func TestEntropyRatio(t *testing.T) {
	t.Run("bounds", func(t *testing.T) {
		for i := 0; i < 200; i++ {
			code, err := generateCandidate()
			if err != nil {
				t.Fatalf("generateCandidate: %v", err)
			}
			r := entropyRatio(code)
			if r < 0 || r > 1 {
				t.Fatalf("entropyRatio(%q) = %f, outside [0, 1]", code, r)
			}
		}
	})

	t.Run("single symbol is zero", func(t *testing.T) {
		if r := entropyRatio("XXXXXXXXXX"); r != 0 {
			t.Errorf("entropyRatio = %f, want 0", r)
		}
	})

	t.Run("all distinct symbols", func(t *testing.T) {
		// 10 distinct symbols give log2(10) bits against the log2(33)
		// ceiling, the highest ratio a 10-symbol code can reach.
		want := math.Log2(10) / math.Log2(float64(alphabetSize))
		got := entropyRatio("X7K2M9PQ4R")
		if math.Abs(got-want) > 1e-9 {
			t.Errorf("entropyRatio = %f, want %f", got, want)
		}
	})

	t.Run("more distinct symbols means higher ratio", func(t *testing.T) {
		lo := entropyRatio("X7X7X7X7X2")
		hi := entropyRatio("X7K2M9PQ4R")
		if lo >= hi {
			t.Errorf("entropyRatio ordering: %f >= %f", lo, hi)
		}
	})

	t.Run("empty string", func(t *testing.T) {
		if r := entropyRatio(""); r != 0 {
			t.Errorf("entropyRatio = %f, want 0", r)
		}
	})
}

func TestCollisionProbability(t *testing.T) {
	if p := collisionProbability(0); p != 0 {
		t.Errorf("collisionProbability(0) = %g, want 0", p)
	}
	if p := collisionProbability(1); p != 0 {
		t.Errorf("collisionProbability(1) = %g, want 0", p)
	}

	// Probabilities must grow with batch size.
	prev := 0.0
	for _, n := range []int{10, 100, 1000, 10000, 100000} {
		p := collisionProbability(n)
		if p <= prev {
			t.Fatalf("collisionProbability(%d) = %g, not greater than %g", n, p, prev)
		}
		prev = p
	}

	// The default 10000-code cap stays far under the 0.001 gate.
	if p := collisionProbability(10000); p > 0.001 {
		t.Errorf("collisionProbability(10000) = %g, exceeds 0.001", p)
	}
	// A 33^10 keyspace tolerates even millions of codes; the gate only
	// trips at extreme sizes.
	if p := collisionProbability(2_000_000_000); p <= 0.001 {
		t.Errorf("collisionProbability(2e9) = %g, expected above 0.001", p)
	}
}
