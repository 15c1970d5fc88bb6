package curve

import (
	"math/big"

	"github.com/holiman/uint256"

	"termswap/native/termswap/fullmath"
)

// WithdrawAsset returns the asset paid against claimsIn after maturity. Lenders
// are paid in full when reserves cover every loan, principal first with
// interest pro-rated when they cover only principal, and principal pro-rated
// otherwise.
func WithdrawAsset(s *State, claimsIn *Claims) (*uint256.Int, error) {
	total := &s.TotalClaims
	totalLoan := total.TotalLoan()
	reserve := &s.Reserves.Asset
	if !reserve.Lt(totalLoan) {
		return claimsIn.TotalLoan(), nil
	}
	if !reserve.Lt(&total.LoanPrincipal) {
		surplus := new(uint256.Int).Sub(reserve, &total.LoanPrincipal)
		interest, err := fullmath.MulDiv(&claimsIn.LoanInterest, surplus, &total.LoanInterest)
		if err != nil {
			return nil, err
		}
		return fullmath.Add(&claimsIn.LoanPrincipal, interest)
	}
	return fullmath.MulDiv(&claimsIn.LoanPrincipal, reserve, &total.LoanPrincipal)
}

// WithdrawCollateral returns the collateral paid against claimsIn to cover an
// asset deficit. It is zero when the asset reserve covers every loan.
func WithdrawCollateral(s *State, claimsIn *Claims) (*uint256.Int, error) {
	total := &s.TotalClaims
	totalLoan := total.TotalLoan()
	reserve := &s.Reserves.Asset
	if !reserve.Lt(totalLoan) {
		return fullmath.Zero(), nil
	}
	deficit := new(uint256.Int).Sub(totalLoan, reserve)
	collateral := &s.Reserves.Collateral

	if fullmath.CmpProducts(collateral, totalLoan, deficit, total.TotalCoverage()) >= 0 {
		return fullmath.MulDiv(claimsIn.TotalCoverage(), deficit, totalLoan)
	}
	if fullmath.CmpProducts(collateral, totalLoan, deficit, &total.CoveragePrincipal) >= 0 {
		principal, err := fullmath.MulDiv(&claimsIn.CoveragePrincipal, deficit, totalLoan)
		if err != nil {
			return nil, err
		}
		// ciIn * (C*B - D*CP) / (CI*B)
		remainder := new(big.Int).Mul(collateral.ToBig(), totalLoan.ToBig())
		remainder.Sub(remainder, new(big.Int).Mul(deficit.ToBig(), total.CoveragePrincipal.ToBig()))
		numerator := remainder.Mul(remainder, claimsIn.CoverageInterest.ToBig())
		denominator := new(big.Int).Mul(total.CoverageInterest.ToBig(), totalLoan.ToBig())
		if denominator.Sign() == 0 {
			return nil, fullmath.ErrDivisionByZero
		}
		interest, err := fullmath.FromBig(numerator.Quo(numerator, denominator))
		if err != nil {
			return nil, err
		}
		return fullmath.Add(principal, interest)
	}
	return fullmath.MulDiv(&claimsIn.CoveragePrincipal, collateral, &total.CoveragePrincipal)
}

// Withdraw runs the lender side of the settlement waterfall.
func Withdraw(s *State, maturity, now uint64, claimsIn *Claims) (*Tokens, error) {
	if now < maturity {
		return nil, ErrActive
	}
	if !s.TotalClaims.Covers(claimsIn) {
		return nil, ErrReserveExceeded
	}
	asset, err := WithdrawAsset(s, claimsIn)
	if err != nil {
		return nil, err
	}
	collateral, err := WithdrawCollateral(s, claimsIn)
	if err != nil {
		return nil, err
	}
	tokens := &Tokens{}
	tokens.Asset.Set(asset)
	tokens.Collateral.Set(collateral)
	return tokens, nil
}
