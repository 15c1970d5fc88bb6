package termswap

import (
	"errors"
	"fmt"

	"termswap/native/termswap/curve"
	"termswap/native/termswap/fullmath"
)

var (
	ErrNilState              = errors.New("termswap: state not configured")
	ErrExpired               = errors.New("termswap: pool has matured")
	ErrStillActive           = errors.New("termswap: pool has not matured")
	ErrZeroAddress           = errors.New("termswap: zero address")
	ErrInvalidRecipient      = errors.New("termswap: recipient is the pair")
	ErrInvalidAmount         = errors.New("termswap: invalid amount")
	ErrInvariantViolation    = errors.New("termswap: invariant violated")
	ErrRatioMismatch         = errors.New("termswap: payment not proportional to due")
	ErrInsufficientLiquidity = errors.New("termswap: insufficient liquidity")
	ErrNoSuchDue             = errors.New("termswap: no such due")
	ErrPoolNotFound          = errors.New("termswap: pool not found")
	ErrPairExists            = errors.New("termswap: pair already exists")
	ErrPairNotFound          = errors.New("termswap: pair not found")
	ErrIdenticalTokens       = errors.New("termswap: asset and collateral are identical")
	ErrUnauthorized          = errors.New("termswap: caller is not the factory owner")
)

// ErrOverflow is reported when an amount exceeds the width of the field that
// stores it. It matches ErrInvalidAmount under errors.Is.
var ErrOverflow = fmt.Errorf("%w: overflow", ErrInvalidAmount)

// translate maps math-level failures onto the module's error taxonomy while
// keeping the original cause in the chain.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var kind error
	switch {
	case errors.Is(err, curve.ErrMatured):
		kind = ErrExpired
	case errors.Is(err, curve.ErrActive):
		kind = ErrStillActive
	case errors.Is(err, curve.ErrConstantProduct),
		errors.Is(err, curve.ErrYieldFloor),
		errors.Is(err, curve.ErrInterestBounds),
		errors.Is(err, curve.ErrCoverageBounds):
		kind = ErrInvariantViolation
	case errors.Is(err, curve.ErrEmptyPool),
		errors.Is(err, curve.ErrReserveExceeded),
		errors.Is(err, curve.ErrLiquidityExceeded):
		kind = ErrInsufficientLiquidity
	case errors.Is(err, curve.ErrRatio):
		kind = ErrRatioMismatch
	case errors.Is(err, curve.ErrZeroLiquidity),
		errors.Is(err, curve.ErrPaymentExceedsDebt),
		errors.Is(err, fullmath.ErrDivisionByZero):
		kind = ErrInvalidAmount
	case errors.Is(err, fullmath.ErrOverflow),
		errors.Is(err, fullmath.ErrUnderflow):
		kind = ErrOverflow
	default:
		return err
	}
	return fmt.Errorf("%w: %w", kind, err)
}
