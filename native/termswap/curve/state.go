package curve

import "github.com/holiman/uint256"

// Tokens is a pair of asset and collateral amounts.
type Tokens struct {
	Asset      uint256.Int
	Collateral uint256.Int
}

// Claims are the four components of a lender's right at maturity.
type Claims struct {
	LoanPrincipal     uint256.Int
	LoanInterest      uint256.Int
	CoveragePrincipal uint256.Int
	CoverageInterest  uint256.Int
}

// TotalLoan returns LoanPrincipal + LoanInterest.
func (c *Claims) TotalLoan() *uint256.Int {
	return new(uint256.Int).Add(&c.LoanPrincipal, &c.LoanInterest)
}

// TotalCoverage returns CoveragePrincipal + CoverageInterest.
func (c *Claims) TotalCoverage() *uint256.Int {
	return new(uint256.Int).Add(&c.CoveragePrincipal, &c.CoverageInterest)
}

// IsZero reports whether every component is zero.
func (c *Claims) IsZero() bool {
	return c.LoanPrincipal.IsZero() && c.LoanInterest.IsZero() &&
		c.CoveragePrincipal.IsZero() && c.CoverageInterest.IsZero()
}

// Add accumulates other into c.
func (c *Claims) Add(other *Claims) {
	c.LoanPrincipal.Add(&c.LoanPrincipal, &other.LoanPrincipal)
	c.LoanInterest.Add(&c.LoanInterest, &other.LoanInterest)
	c.CoveragePrincipal.Add(&c.CoveragePrincipal, &other.CoveragePrincipal)
	c.CoverageInterest.Add(&c.CoverageInterest, &other.CoverageInterest)
}

// Sub removes other from c. Callers check Covers first.
func (c *Claims) Sub(other *Claims) {
	c.LoanPrincipal.Sub(&c.LoanPrincipal, &other.LoanPrincipal)
	c.LoanInterest.Sub(&c.LoanInterest, &other.LoanInterest)
	c.CoveragePrincipal.Sub(&c.CoveragePrincipal, &other.CoveragePrincipal)
	c.CoverageInterest.Sub(&c.CoverageInterest, &other.CoverageInterest)
}

// Covers reports whether every component of c is at least the matching
// component of other.
func (c *Claims) Covers(other *Claims) bool {
	return !c.LoanPrincipal.Lt(&other.LoanPrincipal) &&
		!c.LoanInterest.Lt(&other.LoanInterest) &&
		!c.CoveragePrincipal.Lt(&other.CoveragePrincipal) &&
		!c.CoverageInterest.Lt(&other.CoverageInterest)
}

// State is the snapshot of a single maturity pool that the math operates on.
type State struct {
	Reserves       Tokens
	X              uint256.Int
	Y              uint256.Int
	Z              uint256.Int
	TotalLiquidity uint256.Int
	TotalClaims    Claims
	LPFeeStored    uint256.Int
}
