package termswap

import (
	"github.com/holiman/uint256"

	"termswap/core/events"
	"termswap/native/bank"
	"termswap/native/termswap/curve"
	"termswap/native/termswap/fullmath"
	"termswap/storage"
)

// Mint supplies liquidity to the pool at Maturity, creating the pool on its
// first mint. The sender pays AssetIn plus the fee share of existing LPs in
// asset and the due's collateral in collateral.
func (p *Pair) Mint(params MintParams) (*MintResult, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	if err := checkActive(params.Maturity, params.Now); err != nil {
		return nil, err
	}
	if err := p.checkRecipients(params.Sender, params.LiquidityTo, params.DueTo); err != nil {
		return nil, err
	}
	if err := positive(params.AssetIn, params.InterestIncrease, params.CdpIncrease); err != nil {
		return nil, err
	}

	unlock := p.lockPool(params.Maturity)
	defer unlock()

	pool, exists, err := p.store.pool(p.info.Address, params.Maturity)
	if err != nil {
		return nil, err
	}
	if !exists {
		pool = new(Pool)
	}
	out, err := curve.Mint(&pool.State, params.Maturity, params.Now, params.AssetIn, params.InterestIncrease, params.CdpIncrease)
	if err != nil {
		return nil, translate(err)
	}

	s := &pool.State
	s.Reserves.Asset.Add(&s.Reserves.Asset, params.AssetIn)
	s.Reserves.Collateral.Add(&s.Reserves.Collateral, &out.Collateral)
	s.X.Add(&s.X, params.AssetIn)
	s.Y.Add(&s.Y, params.InterestIncrease)
	s.Z.Add(&s.Z, params.CdpIncrease)
	s.TotalLiquidity.Add(&s.TotalLiquidity, &out.LiquidityOut)
	s.LPFeeStored.Add(&s.LPFeeStored, &out.FeeStoredIncrease)
	totalDebt, err := fullmath.Add(&pool.TotalDebtCreated, &out.Debt)
	if err != nil {
		return nil, ErrOverflow
	}
	pool.TotalDebtCreated.Set(totalDebt)
	if err := checkPoolWidths(pool); err != nil {
		return nil, err
	}

	liquidity, err := p.store.liquidity(p.info.Address, params.Maturity, params.LiquidityTo)
	if err != nil {
		return nil, err
	}
	liquidity.Add(liquidity, &out.LiquidityOut)
	dues, err := p.store.dues(p.info.Address, params.Maturity, params.DueTo)
	if err != nil {
		return nil, err
	}
	due := dues.Append(&out.Debt, &out.Collateral, params.Now)

	paid := new(uint256.Int).Add(params.AssetIn, &out.FeeStoredIncrease)
	batch := storage.NewBatch()
	if err := stagePool(batch, p.info.Address, params.Maturity, pool); err != nil {
		return nil, err
	}
	if err := stageLiquidity(batch, p.info.Address, params.Maturity, params.LiquidityTo, liquidity); err != nil {
		return nil, err
	}
	if err := stageDues(batch, p.info.Address, params.Maturity, params.DueTo, dues); err != nil {
		return nil, err
	}
	transfers := []bank.Transfer{
		bank.NewTransfer(p.info.Asset, params.Sender, p.info.Address, paid),
		bank.NewTransfer(p.info.Collateral, params.Sender, p.info.Address, &out.Collateral),
	}

	if !exists {
		p.indexMu.Lock()
		defer p.indexMu.Unlock()
		if err := p.addMaturity(batch, params.Maturity); err != nil {
			return nil, err
		}
	}
	if err := p.ledger.Commit(batch, transfers); err != nil {
		return nil, err
	}

	result := &MintResult{Due: due}
	result.LiquidityOut.Set(&out.LiquidityOut)
	result.AssetIn.Set(params.AssetIn)
	result.FeeIn.Set(&out.FeeStoredIncrease)
	p.emit(events.TermswapMint{
		Pair:         p.info.Address,
		Maturity:     params.Maturity,
		Sender:       params.Sender,
		LiquidityTo:  params.LiquidityTo,
		DueTo:        params.DueTo,
		LiquidityOut: &result.LiquidityOut,
		AssetIn:      &result.AssetIn,
		FeeIn:        &result.FeeIn,
		DueID:        due.ID,
		Debt:         &due.Debt,
		Collateral:   &due.Collateral,
		DueCreatedAt: due.CreatedAt,
	})
	return result, nil
}
