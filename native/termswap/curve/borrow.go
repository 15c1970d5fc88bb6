package curve

import (
	"github.com/holiman/uint256"

	"termswap/native/termswap/fullmath"
)

// BorrowResult is the outcome of buying asset out of a pool.
type BorrowResult struct {
	Debt       uint256.Int
	Collateral uint256.Int
	Fees       FeeSplit
}

// CheckBorrow validates a borrow against the constant product and the
// interest and coverage bounds implied by the trade size.
func CheckBorrow(s *State, assetOut, interestIncrease, cdpIncrease *uint256.Int) error {
	if !assetOut.Lt(&s.X) {
		return ErrReserveExceeded
	}
	xReserve := new(uint256.Int).Sub(&s.X, assetOut)
	yReserve, err := fullmath.Add(&s.Y, interestIncrease)
	if err != nil {
		return err
	}
	zReserve, err := fullmath.Add(&s.Z, cdpIncrease)
	if err != nil {
		return err
	}
	if err := checkReserves(yReserve, zReserve); err != nil {
		return err
	}
	if err := checkConstantProduct(s, xReserve, yReserve, zReserve); err != nil {
		return err
	}

	yMax, err := fullmath.MulDivUp(assetOut, &s.Y, xReserve)
	if err != nil {
		return err
	}
	if interestIncrease.Gt(yMax) {
		return ErrInterestBounds
	}
	zMax, err := fullmath.MulDivUp(assetOut, &s.Z, xReserve)
	if err != nil {
		return err
	}
	if cdpIncrease.Gt(zMax) {
		return ErrCoverageBounds
	}
	yMin := fullmath.ShiftRightUp(yMax, YieldFloorShift)
	if interestIncrease.Lt(yMin) {
		return ErrInterestBounds
	}
	return nil
}

// BorrowDebt returns assetOut plus the interest accrued to maturity, rounded up.
func BorrowDebt(maturity, now uint64, assetOut, interestIncrease *uint256.Int) (*uint256.Int, error) {
	return GetDebt(maturity, now, assetOut, interestIncrease)
}

// BorrowCollateral returns the collateral the borrower locks:
// ceil(t*zIncrease / 2^25) + ceil(z*assetOut / (x-assetOut)).
func BorrowCollateral(s *State, maturity, now uint64, assetOut, cdpIncrease *uint256.Int) (*uint256.Int, error) {
	coverage, err := timeScaled(maturity, now, cdpIncrease, CoverageShift, true)
	if err != nil {
		return nil, err
	}
	if !assetOut.Lt(&s.X) {
		return nil, ErrReserveExceeded
	}
	remaining := new(uint256.Int).Sub(&s.X, assetOut)
	share, err := fullmath.MulDivUp(&s.Z, assetOut, remaining)
	if err != nil {
		return nil, err
	}
	return fullmath.Add(coverage, share)
}

// BorrowFees returns the markdown taken out of assetOut:
// assetOut - floor(assetOut * 2^40 / (t*rate + 2^40)).
func BorrowFees(maturity, now uint64, assetOut *uint256.Int, fees Fees) (FeeSplit, error) {
	d, err := duration(maturity, now)
	if err != nil {
		return FeeSplit{}, err
	}
	denominator := new(uint256.Int).Mul(d, uint256.NewInt(fees.Total()))
	denominator.Add(denominator, feeScale)
	adjusted, err := fullmath.MulDiv(assetOut, feeScale, denominator)
	if err != nil {
		return FeeSplit{}, err
	}
	total := new(uint256.Int).Sub(assetOut, adjusted)
	return splitFees(total, fees)
}

// Borrow computes the due and fees for a borrow.
func Borrow(s *State, maturity, now uint64, assetOut, interestIncrease, cdpIncrease *uint256.Int, fees Fees) (*BorrowResult, error) {
	if _, err := duration(maturity, now); err != nil {
		return nil, err
	}
	if s.TotalLiquidity.IsZero() {
		return nil, ErrEmptyPool
	}
	if assetOut.Gt(&s.Reserves.Asset) {
		return nil, ErrReserveExceeded
	}
	if err := CheckBorrow(s, assetOut, interestIncrease, cdpIncrease); err != nil {
		return nil, err
	}

	debt, err := BorrowDebt(maturity, now, assetOut, interestIncrease)
	if err != nil {
		return nil, err
	}
	collateral, err := BorrowCollateral(s, maturity, now, assetOut, cdpIncrease)
	if err != nil {
		return nil, err
	}
	if err := checkReserves(debt, collateral); err != nil {
		return nil, err
	}
	split, err := BorrowFees(maturity, now, assetOut, fees)
	if err != nil {
		return nil, err
	}

	result := &BorrowResult{Fees: split}
	result.Debt.Set(debt)
	result.Collateral.Set(collateral)
	return result, nil
}
