package curve

import (
	"github.com/holiman/uint256"

	"termswap/native/termswap/fullmath"
)

// MintResult is the outcome of supplying liquidity.
type MintResult struct {
	LiquidityOut      uint256.Int
	Debt              uint256.Int
	Collateral        uint256.Int
	FeeStoredIncrease uint256.Int
}

// GetLiquidity1 prices the first mint of a pool: assetIn << 16.
func GetLiquidity1(assetIn *uint256.Int) *uint256.Int {
	return new(uint256.Int).Lsh(assetIn, LiquidityShift)
}

// GetLiquidity2 prices a mint into a live pool as the smallest of the three
// reserve ratios applied to the outstanding liquidity.
func GetLiquidity2(s *State, assetIn, interestIncrease, cdpIncrease *uint256.Int) (*uint256.Int, error) {
	if s.X.IsZero() || s.Y.IsZero() || s.Z.IsZero() {
		return nil, ErrEmptyPool
	}
	byAsset, err := fullmath.MulDiv(&s.TotalLiquidity, assetIn, &s.X)
	if err != nil {
		return nil, err
	}
	byInterest, err := fullmath.MulDiv(&s.TotalLiquidity, interestIncrease, &s.Y)
	if err != nil {
		return nil, err
	}
	byCdp, err := fullmath.MulDiv(&s.TotalLiquidity, cdpIncrease, &s.Z)
	if err != nil {
		return nil, err
	}
	return fullmath.Min(byAsset, byInterest, byCdp), nil
}

// GetDebt returns assetIn plus the interest accrued to maturity, rounded up.
func GetDebt(maturity, now uint64, assetIn, interestIncrease *uint256.Int) (*uint256.Int, error) {
	interest, err := timeScaled(maturity, now, interestIncrease, InterestShift, true)
	if err != nil {
		return nil, err
	}
	return fullmath.Add(interest, assetIn)
}

// GetCollateral returns the collateral locked behind a mint due.
func GetCollateral(maturity, now uint64, cdpIncrease *uint256.Int) (*uint256.Int, error) {
	coverage, err := timeScaled(maturity, now, cdpIncrease, CoverageShift, true)
	if err != nil {
		return nil, err
	}
	return fullmath.Add(coverage, cdpIncrease)
}

// GetFee returns the share of the stored LP fee a new provider pays in so that
// existing providers are not diluted.
func GetFee(s *State, liquidityOut *uint256.Int) (*uint256.Int, error) {
	if s.TotalLiquidity.IsZero() || s.LPFeeStored.IsZero() {
		return fullmath.Zero(), nil
	}
	return fullmath.MulDivUp(&s.LPFeeStored, liquidityOut, &s.TotalLiquidity)
}

// Mint computes liquidity, due and fee for a liquidity supply.
func Mint(s *State, maturity, now uint64, assetIn, interestIncrease, cdpIncrease *uint256.Int) (*MintResult, error) {
	if _, err := duration(maturity, now); err != nil {
		return nil, err
	}
	x, err := fullmath.Add(&s.X, assetIn)
	if err != nil {
		return nil, err
	}
	y, err := fullmath.Add(&s.Y, interestIncrease)
	if err != nil {
		return nil, err
	}
	z, err := fullmath.Add(&s.Z, cdpIncrease)
	if err != nil {
		return nil, err
	}
	if err := checkReserves(x, y, z); err != nil {
		return nil, err
	}

	var liquidityOut *uint256.Int
	if s.TotalLiquidity.IsZero() {
		liquidityOut = GetLiquidity1(assetIn)
	} else {
		liquidityOut, err = GetLiquidity2(s, assetIn, interestIncrease, cdpIncrease)
		if err != nil {
			return nil, err
		}
	}
	if liquidityOut.IsZero() {
		return nil, ErrZeroLiquidity
	}

	debt, err := GetDebt(maturity, now, assetIn, interestIncrease)
	if err != nil {
		return nil, err
	}
	collateral, err := GetCollateral(maturity, now, cdpIncrease)
	if err != nil {
		return nil, err
	}
	if err := checkReserves(debt, collateral); err != nil {
		return nil, err
	}
	fee, err := GetFee(s, liquidityOut)
	if err != nil {
		return nil, err
	}

	result := &MintResult{}
	result.LiquidityOut.Set(liquidityOut)
	result.Debt.Set(debt)
	result.Collateral.Set(collateral)
	result.FeeStoredIncrease.Set(fee)
	return result, nil
}
