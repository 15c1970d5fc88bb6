package termswap

import (
	"github.com/holiman/uint256"

	"termswap/core/events"
	"termswap/native/bank"
	"termswap/native/termswap/curve"
	"termswap/storage"
)

// Burn redeems LiquidityIn of the owner's liquidity after maturity for a share
// of what remains once lenders are covered, plus the owner's share of LP fees.
func (p *Pair) Burn(params BurnParams) (*BurnResult, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	if err := checkMatured(params.Maturity, params.Now); err != nil {
		return nil, err
	}
	if err := p.checkRecipients(params.Owner, params.AssetTo, params.CollateralTo); err != nil {
		return nil, err
	}
	if err := positive(params.LiquidityIn); err != nil {
		return nil, err
	}

	unlock := p.lockPool(params.Maturity)
	defer unlock()

	pool, err := p.loadActivePool(params.Maturity)
	if err != nil {
		return nil, err
	}
	balance, err := p.store.liquidity(p.info.Address, params.Maturity, params.Owner)
	if err != nil {
		return nil, err
	}
	if balance.Lt(params.LiquidityIn) {
		return nil, ErrInsufficientLiquidity
	}
	out, err := curve.Burn(&pool.State, params.Maturity, params.Now, params.LiquidityIn)
	if err != nil {
		return nil, translate(err)
	}

	s := &pool.State
	s.TotalLiquidity.Sub(&s.TotalLiquidity, params.LiquidityIn)
	s.Reserves.Asset.Sub(&s.Reserves.Asset, &out.AssetOut)
	s.Reserves.Collateral.Sub(&s.Reserves.Collateral, &out.CollateralOut)
	s.LPFeeStored.Sub(&s.LPFeeStored, &out.FeeOut)
	balance.Sub(balance, params.LiquidityIn)

	batch := storage.NewBatch()
	if err := stagePool(batch, p.info.Address, params.Maturity, pool); err != nil {
		return nil, err
	}
	if err := stageLiquidity(batch, p.info.Address, params.Maturity, params.Owner, balance); err != nil {
		return nil, err
	}
	assetPaid := new(uint256.Int).Add(&out.AssetOut, &out.FeeOut)
	transfers := []bank.Transfer{
		bank.NewTransfer(p.info.Asset, p.info.Address, params.AssetTo, assetPaid),
		bank.NewTransfer(p.info.Collateral, p.info.Address, params.CollateralTo, &out.CollateralOut),
	}
	if err := p.ledger.Commit(batch, transfers); err != nil {
		return nil, err
	}

	result := &BurnResult{}
	result.LiquidityIn.Set(params.LiquidityIn)
	result.AssetOut.Set(&out.AssetOut)
	result.CollateralOut.Set(&out.CollateralOut)
	result.FeeOut.Set(&out.FeeOut)
	p.emit(events.TermswapBurn{
		Pair:          p.info.Address,
		Maturity:      params.Maturity,
		Owner:         params.Owner,
		AssetTo:       params.AssetTo,
		CollateralTo:  params.CollateralTo,
		LiquidityIn:   &result.LiquidityIn,
		AssetOut:      &result.AssetOut,
		CollateralOut: &result.CollateralOut,
		FeeOut:        &result.FeeOut,
	})
	return result, nil
}
