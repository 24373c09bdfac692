package service

import (
	"fmt"
	"math/rand/v2"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
)

var _ ports.AccountNumberGenerator = (*NumberGenerator)(nil)

// AccountNumberLength is the fixed width of generated account numbers.
// Numbers are stored as int64 and rendered zero-padded to this width.
const AccountNumberLength = 10

// NumberGenerator produces 10-digit account numbers whose digits satisfy
// the per-kind checksum relation. The first three digits are drawn by
// rejection sampling until (x+z)*y equals the kind's target; the rest are
// derived arithmetically so any holder can re-verify the number offline.
type NumberGenerator struct {
	digit       func() int
	maxAttempts int
}

// NewNumberGenerator creates a generator backed by the default random
// source. maxAttempts bounds the rejection-sampling loop; values <= 0
// fall back to a sane default.
func NewNumberGenerator(maxAttempts int) *NumberGenerator {
	return newNumberGenerator(func() int { return rand.IntN(10) }, maxAttempts)
}

func newNumberGenerator(digit func() int, maxAttempts int) *NumberGenerator {
	if maxAttempts <= 0 {
		maxAttempts = 10000
	}
	return &NumberGenerator{digit: digit, maxAttempts: maxAttempts}
}

// Generate returns a structurally-valid account number for the kind.
// Uniqueness across existing wallets is the caller's concern.
func (g *NumberGenerator) Generate(kind domain.AccountKind) (int64, error) {
	if !kind.Valid() {
		return 0, apperror.ErrUnknownAccountKind(string(kind))
	}
	target := kind.ChecksumTarget()

	var x, y, z int
	found := false
	for i := 0; i < g.maxAttempts; i++ {
		x, y, z = g.digit(), g.digit(), g.digit()
		if (x+z)*y == target {
			found = true
			break
		}
	}
	if !found {
		return 0, apperror.ErrAccountGeneration(
			fmt.Errorf("no digit triple hit checksum target %d in %d attempts", target, g.maxAttempts))
	}

	s := g.digit()
	digits := assembleDigits(x, y, z, s)

	var number int64
	for _, d := range digits {
		number = number*10 + int64(d)
	}
	return number, nil
}

// assembleDigits derives the seven dependent digits from the sampled four
// and lays all ten out in wire order.
func assembleDigits(x, y, z, s int) [AccountNumberLength]int {
	sum := x + y + z + s
	mod1 := (x*y + z) % 10
	pow := ((s + 1) * (s + 1)) % 10

	// control value sum+mod1+pow is divided by 3; dec1 and dec2 are its
	// first two fractional digits (always one of .00, .33, .66).
	total := sum + mod1 + pow
	dec1 := (total * 10 / 3) % 10
	dec2 := (total * 100 / 3) % 10

	verifier := (total + dec1) % 10

	// card digit folds the raw digit sum down to a single digit.
	last := (sum/10 + sum%10) % 10

	return [AccountNumberLength]int{z, mod1, x, pow, dec1, y, s, dec2, verifier, last}
}

// VerifyAccountNumber reports whether a number's leading digits satisfy the
// kind's checksum relation. Positions: z at 0, x at 2, y at 5.
func VerifyAccountNumber(number int64, kind domain.AccountKind) bool {
	if number < 0 {
		return false
	}
	text := fmt.Sprintf("%0*d", AccountNumberLength, number)
	if len(text) != AccountNumberLength {
		return false
	}
	z := int(text[0] - '0')
	x := int(text[2] - '0')
	y := int(text[5] - '0')
	return (x+z)*y == kind.ChecksumTarget()
}
