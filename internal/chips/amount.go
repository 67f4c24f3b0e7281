// Package chips holds the integer money type and an allowance-gated chip
// ledger.
package chips

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	ErrOverflow  = errors.New("amount overflow")
	ErrUnderflow = errors.New("amount underflow")
)

// Amount is a count of indivisible chip units.
type Amount uint64

// Add returns a+b, failing instead of wrapping.
func (a Amount) Add(b Amount) (Amount, error) {
	if b > math.MaxUint64-a {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return a + b, nil
}

// Sub returns a-b, failing instead of wrapping.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d", ErrUnderflow, a, b)
	}
	return a - b, nil
}

// Mul returns a*n, failing instead of wrapping.
func (a Amount) Mul(n uint64) (Amount, error) {
	if n != 0 && uint64(a) > math.MaxUint64/n {
		return 0, fmt.Errorf("%w: %d * %d", ErrOverflow, a, n)
	}
	return a * Amount(n), nil
}

// Split divides a into n equal shares and returns the share and the
// undistributed remainder.
func (a Amount) Split(n int) (share, remainder Amount) {
	if n <= 0 {
		return 0, a
	}
	return a / Amount(n), a % Amount(n)
}

func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// ParseAmount parses a base 10 chip count.
func ParseAmount(s string) (Amount, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return Amount(v), nil
}

// Sum adds amounts, failing on overflow.
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	for _, a := range amounts {
		var err error
		if total, err = total.Add(a); err != nil {
			return 0, err
		}
	}
	return total, nil
}
