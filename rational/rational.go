// Package rational provides exact rational arithmetic for task frequencies
// and periods. The scheduler must never accumulate floating-point drift
// over a long-running machine (spec.md section 3, invariant 6), so
// frequencies and periods are carried as exact fractions for their entire
// lifetime and are only converted to a wall-clock time.Duration at the
// single boundary point where the scheduler meets real time (spec.md
// section 9, "Exact timing").
package rational

import "math/big"

// Rational is an exact fraction. The zero value is not usable; use New or
// one of the constructors below.
type Rational struct {
	r *big.Rat
}

// New constructs num/den.
func New(num, den int64) Rational {
	return Rational{r: big.NewRat(num, den)}
}

// FromInt constructs the exact integer n.
func FromInt(n int64) Rational {
	return Rational{r: big.NewRat(n, 1)}
}

// Frequency constructs an exact frequency in Hz from a numerator/denominator
// pair, e.g. Frequency(1000, 1) for 1000 Hz, or Frequency(3579545, 1) for
// the NTSC colorburst-derived 3.579545 MHz rate expressed exactly.
func Frequency(num, den int64) Rational {
	return New(num, den)
}

// Reciprocal returns 1/r. Panics if r is zero, since a zero frequency has no
// period.
func (r Rational) Reciprocal() Rational {
	if r.r.Sign() == 0 {
		panic("rational: reciprocal of zero")
	}
	out := new(big.Rat).Inv(r.r)
	return Rational{r: out}
}

// Add returns r + other.
func (r Rational) Add(other Rational) Rational {
	return Rational{r: new(big.Rat).Add(r.r, other.r)}
}

// Sub returns r - other.
func (r Rational) Sub(other Rational) Rational {
	return Rational{r: new(big.Rat).Sub(r.r, other.r)}
}

// Mul returns r * other.
func (r Rational) Mul(other Rational) Rational {
	return Rational{r: new(big.Rat).Mul(r.r, other.r)}
}

// Quo returns r / other.
func (r Rational) Quo(other Rational) Rational {
	return Rational{r: new(big.Rat).Quo(r.r, other.r)}
}

// Cmp returns -1, 0 or +1 as r is less than, equal to, or greater than
// other.
func (r Rational) Cmp(other Rational) int {
	return r.r.Cmp(other.r)
}

// Floor returns the greatest integer <= r.
func (r Rational) Floor() int64 {
	q := new(big.Int)
	m := new(big.Int)
	q.DivMod(r.r.Num(), r.r.Denom(), m)
	return q.Int64()
}

// Sign returns -1, 0 or +1 as r is negative, zero, or positive.
func (r Rational) Sign() int {
	return r.r.Sign()
}

// Float64 returns the nearest float64 approximation of r, for display
// purposes only; it must never be used in scheduler bookkeeping.
func (r Rational) Float64() float64 {
	f, _ := r.r.Float64()
	return f
}

// String renders r as "num/den".
func (r Rational) String() string {
	return r.r.RatString()
}
