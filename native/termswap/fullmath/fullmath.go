// Package fullmath provides the wide-integer helpers used by the termswap
// settlement math. Every routine keeps a 512-bit intermediate where a product
// is involved so that no precision is lost before the final division, and the
// rounding direction of each helper is explicit in its name.
package fullmath

import (
	"errors"
	"math/big"

	"github.com/holiman/uint256"
)

var (
	ErrDivisionByZero = errors.New("fullmath: division by zero")
	ErrOverflow       = errors.New("fullmath: overflow")
	ErrUnderflow      = errors.New("fullmath: underflow")
)

// Zero returns a fresh zero value.
func Zero() *uint256.Int { return new(uint256.Int) }

// MulDiv returns floor(x*y/d).
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// MulDivUp returns ceil(x*y/d).
func MulDivUp(x, y, d *uint256.Int) (*uint256.Int, error) {
	z, err := MulDiv(x, y, d)
	if err != nil {
		return nil, err
	}
	if new(uint256.Int).MulMod(x, y, d).IsZero() {
		return z, nil
	}
	return Add(z, uint256.NewInt(1))
}

// DivUp returns ceil(x/d).
func DivUp(x, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, ErrDivisionByZero
	}
	q, r := new(uint256.Int), new(uint256.Int)
	q.DivMod(x, d, r)
	if r.IsZero() {
		return q, nil
	}
	return Add(q, uint256.NewInt(1))
}

// ShiftRightUp returns ceil(x / 2^n).
func ShiftRightUp(x *uint256.Int, n uint) *uint256.Int {
	z := new(uint256.Int).Rsh(x, n)
	if new(uint256.Int).Lsh(z, n).Eq(x) {
		return z
	}
	return z.AddUint64(z, 1)
}

// Add returns x+y or ErrOverflow.
func Add(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Sub returns x-y or ErrUnderflow.
func Sub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, ErrUnderflow
	}
	return z, nil
}

// Mul returns x*y or ErrOverflow.
func Mul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}

// Min returns a copy of the smallest argument.
func Min(first *uint256.Int, rest ...*uint256.Int) *uint256.Int {
	smallest := first
	for _, v := range rest {
		if v.Lt(smallest) {
			smallest = v
		}
	}
	return new(uint256.Int).Set(smallest)
}

// CheckWidth reports ErrOverflow when x does not fit in the given number of bits.
func CheckWidth(x *uint256.Int, bits int) error {
	if x.BitLen() > bits {
		return ErrOverflow
	}
	return nil
}

// CmpProducts compares a*b with c*d without truncation and returns -1, 0 or +1.
func CmpProducts(a, b, c, d *uint256.Int) int {
	left := new(big.Int).Mul(a.ToBig(), b.ToBig())
	right := new(big.Int).Mul(c.ToBig(), d.ToBig())
	return left.Cmp(right)
}

// CmpTriple compares a*b*c with d*e*f without truncation.
func CmpTriple(a, b, c, d, e, f *uint256.Int) int {
	left := new(big.Int).Mul(a.ToBig(), b.ToBig())
	left.Mul(left, c.ToBig())
	right := new(big.Int).Mul(d.ToBig(), e.ToBig())
	right.Mul(right, f.ToBig())
	return left.Cmp(right)
}

// FromBig converts a non-negative big integer, failing when it exceeds 256 bits.
func FromBig(v *big.Int) (*uint256.Int, error) {
	if v.Sign() < 0 {
		return nil, ErrUnderflow
	}
	z, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrOverflow
	}
	return z, nil
}
