package curve

import (
	"github.com/holiman/uint256"

	"termswap/native/termswap/fullmath"
)

// BurnResult is what a liquidity provider receives after maturity.
type BurnResult struct {
	AssetOut      uint256.Int
	CollateralOut uint256.Int
	FeeOut        uint256.Int
}

func checkBurn(s *State, liquidityIn *uint256.Int) error {
	if s.TotalLiquidity.IsZero() {
		return ErrEmptyPool
	}
	if liquidityIn.Gt(&s.TotalLiquidity) {
		return ErrLiquidityExceeded
	}
	return nil
}

// BurnAsset returns the LP share of asset left once lenders are fully repaid.
func BurnAsset(s *State, liquidityIn *uint256.Int) (*uint256.Int, error) {
	if err := checkBurn(s, liquidityIn); err != nil {
		return nil, err
	}
	totalLoan := s.TotalClaims.TotalLoan()
	if s.Reserves.Asset.Lt(totalLoan) {
		return fullmath.Zero(), nil
	}
	surplus := new(uint256.Int).Sub(&s.Reserves.Asset, totalLoan)
	return fullmath.MulDiv(surplus, liquidityIn, &s.TotalLiquidity)
}

// BurnCollateral returns the LP share of collateral left once the lenders'
// coverage of any asset deficit is set aside.
func BurnCollateral(s *State, liquidityIn *uint256.Int) (*uint256.Int, error) {
	if err := checkBurn(s, liquidityIn); err != nil {
		return nil, err
	}
	totalLoan := s.TotalClaims.TotalLoan()
	if !s.Reserves.Asset.Lt(totalLoan) {
		return fullmath.MulDiv(&s.Reserves.Collateral, liquidityIn, &s.TotalLiquidity)
	}

	deficit := new(uint256.Int).Sub(totalLoan, &s.Reserves.Asset)
	totalCoverage := s.TotalClaims.TotalCoverage()
	if fullmath.CmpProducts(&s.Reserves.Collateral, totalLoan, deficit, totalCoverage) <= 0 {
		return fullmath.Zero(), nil
	}
	reserved, err := fullmath.MulDivUp(deficit, totalCoverage, totalLoan)
	if err != nil {
		return nil, err
	}
	residue := new(uint256.Int).Sub(&s.Reserves.Collateral, reserved)
	return fullmath.MulDiv(residue, liquidityIn, &s.TotalLiquidity)
}

// BurnFee returns the LP share of the stored fee.
func BurnFee(s *State, liquidityIn *uint256.Int) (*uint256.Int, error) {
	if err := checkBurn(s, liquidityIn); err != nil {
		return nil, err
	}
	return fullmath.MulDiv(&s.LPFeeStored, liquidityIn, &s.TotalLiquidity)
}

// Burn runs the LP side of the settlement waterfall.
func Burn(s *State, maturity, now uint64, liquidityIn *uint256.Int) (*BurnResult, error) {
	if now < maturity {
		return nil, ErrActive
	}
	asset, err := BurnAsset(s, liquidityIn)
	if err != nil {
		return nil, err
	}
	collateral, err := BurnCollateral(s, liquidityIn)
	if err != nil {
		return nil, err
	}
	fee, err := BurnFee(s, liquidityIn)
	if err != nil {
		return nil, err
	}
	result := &BurnResult{}
	result.AssetOut.Set(asset)
	result.CollateralOut.Set(collateral)
	result.FeeOut.Set(fee)
	return result, nil
}
