// Package otp generates the fixed-width numeric one-time codes.
package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"

	"github.com/dmitrijs2005/ojtauth/internal/common"
)

// Code is an issued one-time code with its expiry.
type Code struct {
	Value     string
	ExpiresAt time.Time
}

// Generator draws uniformly distributed codes of common.OTPLength digits.
type Generator struct {
	rand     io.Reader
	now      func() time.Time
	validity time.Duration
	max      *big.Int
}

func NewGenerator(validity time.Duration) *Generator {
	return &Generator{
		rand:     rand.Reader,
		now:      time.Now,
		validity: validity,
		max:      new(big.Int).Exp(big.NewInt(10), big.NewInt(common.OTPLength), nil),
	}
}

// WithClock replaces the time source.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// WithRand replaces the randomness source.
func (g *Generator) WithRand(r io.Reader) *Generator {
	g.rand = r
	return g
}

func (g *Generator) Validity() time.Duration { return g.validity }

// New returns a zero-padded code expiring validity after now.
func (g *Generator) New() (Code, error) {
	n, err := rand.Int(g.rand, g.max)
	if err != nil {
		return Code{}, fmt.Errorf("generate code: %w", err)
	}
	return Code{
		Value:     fmt.Sprintf("%0*d", common.OTPLength, n.Int64()),
		ExpiresAt: g.now().Add(g.validity),
	}, nil
}
