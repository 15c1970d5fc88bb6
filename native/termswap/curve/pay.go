package curve

import (
	"errors"

	"github.com/holiman/uint256"

	"termswap/native/termswap/fullmath"
)

var (
	ErrPaymentExceedsDebt = errors.New("curve: payment exceeds debt")
	ErrRatio              = errors.New("curve: payment not on the due's debt:collateral line")
)

// CheckProportional accepts a repayment only when assetIn*collateral equals
// collateralOut*debt exactly, so collateral is released in the same ratio the
// debt is extinguished.
func CheckProportional(debt, collateral, assetIn, collateralOut *uint256.Int) error {
	if assetIn.Gt(debt) {
		return ErrPaymentExceedsDebt
	}
	if fullmath.CmpProducts(assetIn, collateral, collateralOut, debt) != 0 {
		return ErrRatio
	}
	return nil
}
