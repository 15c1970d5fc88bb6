package termswap

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"termswap/native/termswap/curve"
)

type (
	Tokens = curve.Tokens
	Claims = curve.Claims
	Fees   = curve.Fees
)

// Pool is the persisted record of one (asset, collateral, maturity) pool.
type Pool struct {
	State            curve.State
	TotalDebtCreated uint256.Int
}

// Clone returns a deep copy of the pool.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Due is one borrower obligation: repay Debt asset before maturity to recover
// Collateral.
type Due struct {
	ID         uint64
	Debt       uint256.Int
	Collateral uint256.Int
	CreatedAt  uint64
}

// DueList holds a borrower's dues in one pool. NextID only grows, so an id is
// never handed out twice even after the due it named is repaid.
type DueList struct {
	NextID uint64
	Dues   []Due
}

// Clone returns a deep copy of the list.
func (l *DueList) Clone() *DueList {
	if l == nil {
		return nil
	}
	clone := &DueList{NextID: l.NextID}
	if len(l.Dues) > 0 {
		clone.Dues = make([]Due, len(l.Dues))
		copy(clone.Dues, l.Dues)
	}
	return clone
}

func (l *DueList) index(id uint64) int {
	for i := range l.Dues {
		if l.Dues[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the due with id, if present.
func (l *DueList) Find(id uint64) (Due, bool) {
	if i := l.index(id); i >= 0 {
		return l.Dues[i], true
	}
	return Due{}, false
}

// Append stores a new due and returns its id.
func (l *DueList) Append(debt, collateral *uint256.Int, createdAt uint64) Due {
	due := Due{ID: l.NextID, CreatedAt: createdAt}
	due.Debt.Set(debt)
	due.Collateral.Set(collateral)
	l.NextID++
	l.Dues = append(l.Dues, due)
	return due
}

func (l *DueList) remove(i int) {
	l.Dues = append(l.Dues[:i], l.Dues[i+1:]...)
}

// FeeAccrual is the pair-wide protocol and staking fee store.
type FeeAccrual struct {
	ProtocolFeeStored uint256.Int
	StakingFeeStored  uint256.Int
}

// PairInfo is the persisted identity of a pair.
type PairInfo struct {
	Address    common.Address
	Asset      common.Address
	Collateral common.Address
	Fees       Fees
}

type ownerRecord struct {
	Owner   common.Address
	Pending common.Address
}

// MintParams describe a liquidity supply.
type MintParams struct {
	Maturity         uint64
	Now              uint64
	Sender           common.Address
	LiquidityTo      common.Address
	DueTo            common.Address
	AssetIn          *uint256.Int
	InterestIncrease *uint256.Int
	CdpIncrease      *uint256.Int
}

// MintResult is returned by Mint.
type MintResult struct {
	LiquidityOut uint256.Int
	AssetIn      uint256.Int
	FeeIn        uint256.Int
	Due          Due
}

// LendParams describe selling asset into a pool for claims.
type LendParams struct {
	Maturity         uint64
	Now              uint64
	Sender           common.Address
	LoanTo           common.Address
	CoverageTo       common.Address
	AssetIn          *uint256.Int
	InterestDecrease *uint256.Int
	CdpDecrease      *uint256.Int
}

// LendResult is returned by Lend.
type LendResult struct {
	AssetIn       uint256.Int
	LoanTo        common.Address
	CoverageTo    common.Address
	ClaimsOut     Claims
	FeeIn         uint256.Int
	ProtocolFeeIn uint256.Int
	StakingFeeIn  uint256.Int
}

// BorrowParams describe buying asset out of a pool against collateral.
type BorrowParams struct {
	Maturity         uint64
	Now              uint64
	Sender           common.Address
	AssetTo          common.Address
	DueTo            common.Address
	AssetOut         *uint256.Int
	InterestIncrease *uint256.Int
	CdpIncrease      *uint256.Int
}

// BorrowResult is returned by Borrow. AssetOut is the amount the pool gave up;
// the recipient receives AssetOut less the three fees.
type BorrowResult struct {
	AssetOut      uint256.Int
	Due           Due
	DueID         uint64
	FeeIn         uint256.Int
	ProtocolFeeIn uint256.Int
	StakingFeeIn  uint256.Int
}

// BurnParams describe redeeming liquidity after maturity.
type BurnParams struct {
	Maturity     uint64
	Now          uint64
	Owner        common.Address
	AssetTo      common.Address
	CollateralTo common.Address
	LiquidityIn  *uint256.Int
}

// BurnResult is returned by Burn. AssetOut excludes FeeOut; both are paid to
// the asset recipient.
type BurnResult struct {
	LiquidityIn   uint256.Int
	AssetOut      uint256.Int
	CollateralOut uint256.Int
	FeeOut        uint256.Int
}

// WithdrawParams describe settling lender claims after maturity.
type WithdrawParams struct {
	Maturity     uint64
	Now          uint64
	Owner        common.Address
	AssetTo      common.Address
	CollateralTo common.Address
	ClaimsIn     Claims
}

// WithdrawResult is returned by Withdraw.
type WithdrawResult struct {
	TokensOut Tokens
	ClaimsIn  Claims
}

// PayParams describe repaying dues before maturity. The three slices are
// matched by index.
type PayParams struct {
	Maturity       uint64
	Now            uint64
	Owner          common.Address
	CollateralTo   common.Address
	IDs            []uint64
	AssetsIn       []*uint256.Int
	CollateralsOut []*uint256.Int
}

// PayResult is returned by Pay.
type PayResult struct {
	AssetIn       uint256.Int
	CollateralOut uint256.Int
	FullyPaidIDs  []uint64
}
