package bignum

import (
	"math"
	"strconv"
)

// MaxExponent caps every Number. Values that would normalize past it are
// pinned to ±9.99e63 (one vigintillion range).
const MaxExponent = 63

// NegligibleExponentGap is the exponent difference past which the smaller
// addend is dropped.
const NegligibleExponentGap = 50

const clampMantissa = 9.99

// Number is mantissa × 10^exponent with 1 <= |mantissa| < 10, or (0, 0).
// Values are immutable by convention: every operation returns a new Number.
type Number struct {
	Mantissa float64 `json:"mantissa"`
	Exponent int     `json:"exponent"`
}

// New builds a normalized Number. Non-finite mantissas collapse to zero.
func New(mantissa float64, exponent int) Number {
	return normalize(mantissa, exponent)
}

func Zero() Number { return Number{} }

// FromFloat lifts a float64 into the scaled representation.
func FromFloat(f float64) Number {
	return normalize(f, 0)
}

// FromInt lifts an integer into the scaled representation.
func FromInt(n int) Number {
	return normalize(float64(n), 0)
}

func normalize(m float64, e int) Number {
	if math.IsNaN(m) || math.IsInf(m, 0) || m == 0 {
		return Number{}
	}
	sign := 1.0
	if m < 0 {
		sign = -1
		m = -m
	}
	for m >= 10 {
		m /= 10
		e++
		if e > MaxExponent {
			return Number{Mantissa: sign * clampMantissa, Exponent: MaxExponent}
		}
	}
	for m < 1 {
		m *= 10
		e--
	}
	if e > MaxExponent {
		return Number{Mantissa: sign * clampMantissa, Exponent: MaxExponent}
	}
	return Number{Mantissa: sign * m, Exponent: e}
}

func (n Number) IsZero() bool { return n.Mantissa == 0 }

// Sign returns -1, 0 or 1.
func (n Number) Sign() int {
	switch {
	case n.Mantissa > 0:
		return 1
	case n.Mantissa < 0:
		return -1
	default:
		return 0
	}
}

func (n Number) Neg() Number {
	if n.IsZero() {
		return Number{}
	}
	return Number{Mantissa: -n.Mantissa, Exponent: n.Exponent}
}

// Float64 converts back to float64; it overflows to ±Inf past ~1e308, which
// cannot happen under MaxExponent.
func (n Number) Float64() float64 {
	if n.IsZero() {
		return 0
	}
	return n.Mantissa * math.Pow(10, float64(n.Exponent))
}

// Add returns a+b. When the exponents differ by more than
// NegligibleExponentGap the larger operand is returned unchanged.
func Add(a, b Number) Number {
	a, b = normalize(a.Mantissa, a.Exponent), normalize(b.Mantissa, b.Exponent)
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	if a.Exponent == b.Exponent {
		return normalize(a.Mantissa+b.Mantissa, a.Exponent)
	}
	larger, smaller := a, b
	if b.Exponent > a.Exponent {
		larger, smaller = b, a
	}
	diff := larger.Exponent - smaller.Exponent
	if diff > NegligibleExponentGap {
		return larger
	}
	aligned := smaller.Mantissa / math.Pow(10, float64(diff))
	return normalize(larger.Mantissa+aligned, larger.Exponent)
}

// Sub returns a-b.
func Sub(a, b Number) Number {
	return Add(a, b.Neg())
}

// Mul returns a×b.
func Mul(a, b Number) Number {
	return normalize(a.Mantissa*b.Mantissa, a.Exponent+b.Exponent)
}

// Scale multiplies n by a plain float factor.
func Scale(n Number, f float64) Number {
	return Mul(n, FromFloat(f))
}

// Compare returns -1, 0 or 1 for a<b, a==b, a>b. Operands are normalized
// first, so hand-built Numbers compare by value.
func Compare(a, b Number) int {
	a, b = normalize(a.Mantissa, a.Exponent), normalize(b.Mantissa, b.Exponent)
	sa, sb := a.Sign(), b.Sign()
	if sa != sb {
		if sa < sb {
			return -1
		}
		return 1
	}
	if sa == 0 {
		return 0
	}
	c := 0
	switch {
	case a.Exponent != b.Exponent:
		if a.Exponent > b.Exponent {
			c = 1
		} else {
			c = -1
		}
	case a.Mantissa > b.Mantissa:
		return 1
	case a.Mantissa < b.Mantissa:
		return -1
	default:
		return 0
	}
	// Larger exponent means larger magnitude; flip for negatives.
	return c * sa
}

func (n Number) String() string { return n.Format(2) }

// Format renders n with a magnitude suffix ("1.23M"). Zero renders as "0".
func (n Number) Format(decimals int) string {
	if n.IsZero() {
		return "0"
	}
	if decimals < 0 {
		decimals = 0
	}
	exp := n.Exponent
	if exp > MaxExponent {
		exp = MaxExponent
	}
	if exp < 0 {
		return strconv.FormatFloat(n.Float64(), 'f', decimals, 64)
	}
	scaled := n.Mantissa * math.Pow(10, float64(exp%3))
	return strconv.FormatFloat(scaled, 'f', decimals, 64) + suffixFor(exp/3)
}
