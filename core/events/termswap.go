package events

import (
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"termswap/core/types"
)

const (
	TypeTermswapPairCreated   = "termswap.pair_created"
	TypeTermswapMint          = "termswap.mint"
	TypeTermswapLend          = "termswap.lend"
	TypeTermswapBorrow        = "termswap.borrow"
	TypeTermswapBurn          = "termswap.burn"
	TypeTermswapWithdraw      = "termswap.withdraw"
	TypeTermswapPay           = "termswap.pay"
	TypeTermswapFeeCollected  = "termswap.fee_collected"
	TypeTermswapPositionMoved = "termswap.position_transferred"
	TypeTermswapOwnerChanged  = "termswap.owner_changed"
)

func amountString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func addressString(addr common.Address) string {
	if addr == (common.Address{}) {
		return ""
	}
	return addr.Hex()
}

func maturityString(maturity uint64) string {
	return strconv.FormatUint(maturity, 10)
}

// TermswapPairCreated is emitted once per (asset, collateral) pair.
type TermswapPairCreated struct {
	Pair       common.Address
	Asset      common.Address
	Collateral common.Address
}

func (TermswapPairCreated) EventType() string { return TypeTermswapPairCreated }

func (e TermswapPairCreated) Event() *types.Event {
	return &types.Event{
		Type: TypeTermswapPairCreated,
		Attributes: map[string]string{
			"pair":       addressString(e.Pair),
			"asset":      addressString(e.Asset),
			"collateral": addressString(e.Collateral),
		},
	}
}

// TermswapMint records a liquidity supply and the due it created.
type TermswapMint struct {
	Pair         common.Address
	Maturity     uint64
	Sender       common.Address
	LiquidityTo  common.Address
	DueTo        common.Address
	LiquidityOut *uint256.Int
	AssetIn      *uint256.Int
	FeeIn        *uint256.Int
	DueID        uint64
	Debt         *uint256.Int
	Collateral   *uint256.Int
	DueCreatedAt uint64
}

func (TermswapMint) EventType() string { return TypeTermswapMint }

func (e TermswapMint) Event() *types.Event {
	return &types.Event{
		Type: TypeTermswapMint,
		Attributes: map[string]string{
			"pair":         addressString(e.Pair),
			"maturity":     maturityString(e.Maturity),
			"sender":       addressString(e.Sender),
			"liquidityTo":  addressString(e.LiquidityTo),
			"dueTo":        addressString(e.DueTo),
			"liquidityOut": amountString(e.LiquidityOut),
			"assetIn":      amountString(e.AssetIn),
			"feeIn":        amountString(e.FeeIn),
			"dueId":        strconv.FormatUint(e.DueID, 10),
			"debt":         amountString(e.Debt),
			"collateral":   amountString(e.Collateral),
			"createdAt":    strconv.FormatUint(e.DueCreatedAt, 10),
		},
	}
}

// TermswapLend records the claims issued to a lender.
type TermswapLend struct {
	Pair              common.Address
	Maturity          uint64
	Sender            common.Address
	LoanTo            common.Address
	CoverageTo        common.Address
	AssetIn           *uint256.Int
	LoanPrincipal     *uint256.Int
	LoanInterest      *uint256.Int
	CoveragePrincipal *uint256.Int
	CoverageInterest  *uint256.Int
	FeeIn             *uint256.Int
	ProtocolFeeIn     *uint256.Int
	StakingFeeIn      *uint256.Int
}

func (TermswapLend) EventType() string { return TypeTermswapLend }

func (e TermswapLend) Event() *types.Event {
	return &types.Event{
		Type: TypeTermswapLend,
		Attributes: map[string]string{
			"pair":              addressString(e.Pair),
			"maturity":          maturityString(e.Maturity),
			"sender":            addressString(e.Sender),
			"loanTo":            addressString(e.LoanTo),
			"coverageTo":        addressString(e.CoverageTo),
			"assetIn":           amountString(e.AssetIn),
			"loanPrincipal":     amountString(e.LoanPrincipal),
			"loanInterest":      amountString(e.LoanInterest),
			"coveragePrincipal": amountString(e.CoveragePrincipal),
			"coverageInterest":  amountString(e.CoverageInterest),
			"feeIn":             amountString(e.FeeIn),
			"protocolFeeIn":     amountString(e.ProtocolFeeIn),
			"stakingFeeIn":      amountString(e.StakingFeeIn),
		},
	}
}

// TermswapBorrow records a borrow and the due it created.
type TermswapBorrow struct {
	Pair          common.Address
	Maturity      uint64
	Sender        common.Address
	AssetTo       common.Address
	DueTo         common.Address
	AssetOut      *uint256.Int
	DueID         uint64
	Debt          *uint256.Int
	Collateral    *uint256.Int
	FeeIn         *uint256.Int
	ProtocolFeeIn *uint256.Int
	StakingFeeIn  *uint256.Int
}

func (TermswapBorrow) EventType() string { return TypeTermswapBorrow }

func (e TermswapBorrow) Event() *types.Event {
	return &types.Event{
		Type: TypeTermswapBorrow,
		Attributes: map[string]string{
			"pair":          addressString(e.Pair),
			"maturity":      maturityString(e.Maturity),
			"sender":        addressString(e.Sender),
			"assetTo":       addressString(e.AssetTo),
			"dueTo":         addressString(e.DueTo),
			"assetOut":      amountString(e.AssetOut),
			"dueId":         strconv.FormatUint(e.DueID, 10),
			"debt":          amountString(e.Debt),
			"collateral":    amountString(e.Collateral),
			"feeIn":         amountString(e.FeeIn),
			"protocolFeeIn": amountString(e.ProtocolFeeIn),
			"stakingFeeIn":  amountString(e.StakingFeeIn),
		},
	}
}

// TermswapBurn records a liquidity withdrawal after maturity.
type TermswapBurn struct {
	Pair          common.Address
	Maturity      uint64
	Owner         common.Address
	AssetTo       common.Address
	CollateralTo  common.Address
	LiquidityIn   *uint256.Int
	AssetOut      *uint256.Int
	CollateralOut *uint256.Int
	FeeOut        *uint256.Int
}

func (TermswapBurn) EventType() string { return TypeTermswapBurn }

func (e TermswapBurn) Event() *types.Event {
	return &types.Event{
		Type: TypeTermswapBurn,
		Attributes: map[string]string{
			"pair":          addressString(e.Pair),
			"maturity":      maturityString(e.Maturity),
			"owner":         addressString(e.Owner),
			"assetTo":       addressString(e.AssetTo),
			"collateralTo":  addressString(e.CollateralTo),
			"liquidityIn":   amountString(e.LiquidityIn),
			"assetOut":      amountString(e.AssetOut),
			"collateralOut": amountString(e.CollateralOut),
			"feeOut":        amountString(e.FeeOut),
		},
	}
}

// TermswapWithdraw records a lender settling claims after maturity.
type TermswapWithdraw struct {
	Pair              common.Address
	Maturity          uint64
	Owner             common.Address
	AssetTo           common.Address
	CollateralTo      common.Address
	LoanPrincipal     *uint256.Int
	LoanInterest      *uint256.Int
	CoveragePrincipal *uint256.Int
	CoverageInterest  *uint256.Int
	AssetOut          *uint256.Int
	CollateralOut     *uint256.Int
}

func (TermswapWithdraw) EventType() string { return TypeTermswapWithdraw }

func (e TermswapWithdraw) Event() *types.Event {
	return &types.Event{
		Type: TypeTermswapWithdraw,
		Attributes: map[string]string{
			"pair":              addressString(e.Pair),
			"maturity":          maturityString(e.Maturity),
			"owner":             addressString(e.Owner),
			"assetTo":           addressString(e.AssetTo),
			"collateralTo":      addressString(e.CollateralTo),
			"loanPrincipal":     amountString(e.LoanPrincipal),
			"loanInterest":      amountString(e.LoanInterest),
			"coveragePrincipal": amountString(e.CoveragePrincipal),
			"coverageInterest":  amountString(e.CoverageInterest),
			"assetOut":          amountString(e.AssetOut),
			"collateralOut":     amountString(e.CollateralOut),
		},
	}
}

// TermswapPay records repayments against one or more dues.
type TermswapPay struct {
	Pair          common.Address
	Maturity      uint64
	Owner         common.Address
	CollateralTo  common.Address
	IDs           []uint64
	AssetIn       *uint256.Int
	CollateralOut *uint256.Int
	FullyPaidIDs  []uint64
}

func (TermswapPay) EventType() string { return TypeTermswapPay }

func (e TermswapPay) Event() *types.Event {
	return &types.Event{
		Type: TypeTermswapPay,
		Attributes: map[string]string{
			"pair":          addressString(e.Pair),
			"maturity":      maturityString(e.Maturity),
			"owner":         addressString(e.Owner),
			"collateralTo":  addressString(e.CollateralTo),
			"ids":           joinIDs(e.IDs),
			"assetIn":       amountString(e.AssetIn),
			"collateralOut": amountString(e.CollateralOut),
			"fullyPaidIds":  joinIDs(e.FullyPaidIDs),
		},
	}
}

// TermswapFeeCollected records the factory owner sweeping pair-wide fees.
type TermswapFeeCollected struct {
	Pair   common.Address
	Kind   string
	To     common.Address
	Amount *uint256.Int
}

func (TermswapFeeCollected) EventType() string { return TypeTermswapFeeCollected }

func (e TermswapFeeCollected) Event() *types.Event {
	return &types.Event{
		Type: TypeTermswapFeeCollected,
		Attributes: map[string]string{
			"pair":   addressString(e.Pair),
			"kind":   strings.TrimSpace(e.Kind),
			"to":     addressString(e.To),
			"amount": amountString(e.Amount),
		},
	}
}

// TermswapPositionTransferred records a liquidity, claim or due record changing hands.
type TermswapPositionTransferred struct {
	Pair     common.Address
	Maturity uint64
	Kind     string
	From     common.Address
	To       common.Address
	Detail   string
}

func (TermswapPositionTransferred) EventType() string { return TypeTermswapPositionMoved }

func (e TermswapPositionTransferred) Event() *types.Event {
	return &types.Event{
		Type: TypeTermswapPositionMoved,
		Attributes: map[string]string{
			"pair":     addressString(e.Pair),
			"maturity": maturityString(e.Maturity),
			"kind":     strings.TrimSpace(e.Kind),
			"from":     addressString(e.From),
			"to":       addressString(e.To),
			"detail":   strings.TrimSpace(e.Detail),
		},
	}
}

// TermswapOwnerChanged records factory ownership moving to a new account.
type TermswapOwnerChanged struct {
	Previous common.Address
	Owner    common.Address
}

func (TermswapOwnerChanged) EventType() string { return TypeTermswapOwnerChanged }

func (e TermswapOwnerChanged) Event() *types.Event {
	return &types.Event{
		Type: TypeTermswapOwnerChanged,
		Attributes: map[string]string{
			"previous": addressString(e.Previous),
			"owner":    addressString(e.Owner),
		},
	}
}

func joinIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(id, 10)
	}
	return strings.Join(parts, ",")
}
