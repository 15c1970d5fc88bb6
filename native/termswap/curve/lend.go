package curve

import (
	"github.com/holiman/uint256"

	"termswap/native/termswap/fullmath"
)

// LendResult is the outcome of selling asset into a pool.
type LendResult struct {
	ClaimsOut Claims
	Fees      FeeSplit
}

// CheckLend validates the reserve movement of a lend against the constant
// product and the minimum-yield floor.
func CheckLend(s *State, assetIn, interestDecrease, cdpDecrease *uint256.Int) error {
	xReserve, err := fullmath.Add(&s.X, assetIn)
	if err != nil {
		return err
	}
	if err := checkReserves(xReserve); err != nil {
		return err
	}
	yReserve, err := fullmath.Sub(&s.Y, interestDecrease)
	if err != nil {
		return err
	}
	zReserve, err := fullmath.Sub(&s.Z, cdpDecrease)
	if err != nil {
		return err
	}
	if err := checkConstantProduct(s, xReserve, yReserve, zReserve); err != nil {
		return err
	}

	yMin, err := fullmath.MulDiv(assetIn, &s.Y, xReserve)
	if err != nil {
		return err
	}
	yMin.Rsh(yMin, YieldFloorShift)
	if interestDecrease.Lt(yMin) {
		return ErrYieldFloor
	}
	return nil
}

// LoanInterest returns the interest owed to the lender at maturity.
func LoanInterest(maturity, now uint64, interestDecrease *uint256.Int) (*uint256.Int, error) {
	return timeScaled(maturity, now, interestDecrease, InterestShift, false)
}

// CoveragePrincipal returns the share of z implied by the trade size.
func CoveragePrincipal(s *State, assetIn *uint256.Int) (*uint256.Int, error) {
	denominator, err := fullmath.Add(&s.X, assetIn)
	if err != nil {
		return nil, err
	}
	return fullmath.MulDiv(&s.Z, assetIn, denominator)
}

// CoverageInterest returns the collateral-denominated interest on coverage.
func CoverageInterest(maturity, now uint64, cdpDecrease *uint256.Int) (*uint256.Int, error) {
	return timeScaled(maturity, now, cdpDecrease, CoverageShift, false)
}

// LendFees returns the time-scaled markup charged on top of assetIn:
// ceil(assetIn * (t*rate + 2^40) / 2^40) - assetIn.
func LendFees(maturity, now uint64, assetIn *uint256.Int, fees Fees) (FeeSplit, error) {
	d, err := duration(maturity, now)
	if err != nil {
		return FeeSplit{}, err
	}
	numerator := new(uint256.Int).Mul(d, uint256.NewInt(fees.Total()))
	numerator.Add(numerator, feeScale)
	adjusted, err := fullmath.MulDivUp(assetIn, numerator, feeScale)
	if err != nil {
		return FeeSplit{}, err
	}
	total := new(uint256.Int).Sub(adjusted, assetIn)
	return splitFees(total, fees)
}

// Lend computes the claims and fees for a lend.
func Lend(s *State, maturity, now uint64, assetIn, interestDecrease, cdpDecrease *uint256.Int, fees Fees) (*LendResult, error) {
	if _, err := duration(maturity, now); err != nil {
		return nil, err
	}
	if s.TotalLiquidity.IsZero() {
		return nil, ErrEmptyPool
	}
	if err := CheckLend(s, assetIn, interestDecrease, cdpDecrease); err != nil {
		return nil, err
	}

	interest, err := LoanInterest(maturity, now, interestDecrease)
	if err != nil {
		return nil, err
	}
	coveragePrincipal, err := CoveragePrincipal(s, assetIn)
	if err != nil {
		return nil, err
	}
	coverageInterest, err := CoverageInterest(maturity, now, cdpDecrease)
	if err != nil {
		return nil, err
	}
	if err := checkReserves(interest, coveragePrincipal, coverageInterest); err != nil {
		return nil, err
	}
	split, err := LendFees(maturity, now, assetIn, fees)
	if err != nil {
		return nil, err
	}

	result := &LendResult{Fees: split}
	result.ClaimsOut.LoanPrincipal.Set(assetIn)
	result.ClaimsOut.LoanInterest.Set(interest)
	result.ClaimsOut.CoveragePrincipal.Set(coveragePrincipal)
	result.ClaimsOut.CoverageInterest.Set(coverageInterest)
	return result, nil
}
