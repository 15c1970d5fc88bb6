package termswap

import (
	"github.com/holiman/uint256"

	"termswap/core/events"
	"termswap/native/bank"
	"termswap/native/termswap/curve"
	"termswap/storage"
)

// Pay repays the owner's dues before maturity. Every entry must lie exactly on
// its due's debt:collateral line; a due whose debt reaches zero is removed and
// its id reported in FullyPaidIDs. The owner pays the asset and the released
// collateral goes to CollateralTo.
func (p *Pair) Pay(params PayParams) (*PayResult, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	if err := checkActive(params.Maturity, params.Now); err != nil {
		return nil, err
	}
	if err := p.checkRecipients(params.Owner, params.CollateralTo); err != nil {
		return nil, err
	}
	n := len(params.IDs)
	if n == 0 || len(params.AssetsIn) != n || len(params.CollateralsOut) != n {
		return nil, ErrInvalidAmount
	}
	if err := positive(params.AssetsIn...); err != nil {
		return nil, err
	}

	unlock := p.lockPool(params.Maturity)
	defer unlock()

	pool, ok, err := p.store.pool(p.info.Address, params.Maturity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoSuchDue
	}
	dues, err := p.store.dues(p.info.Address, params.Maturity, params.Owner)
	if err != nil {
		return nil, err
	}

	result := &PayResult{FullyPaidIDs: []uint64{}}
	for i, id := range params.IDs {
		idx := dues.index(id)
		if idx < 0 {
			return nil, ErrNoSuchDue
		}
		due := &dues.Dues[idx]
		assetIn := params.AssetsIn[i]
		collateralOut := orZero(params.CollateralsOut[i])
		if err := curve.CheckProportional(&due.Debt, &due.Collateral, assetIn, collateralOut); err != nil {
			return nil, translate(err)
		}
		due.Debt.Sub(&due.Debt, assetIn)
		due.Collateral.Sub(&due.Collateral, collateralOut)
		result.AssetIn.Add(&result.AssetIn, assetIn)
		result.CollateralOut.Add(&result.CollateralOut, collateralOut)
		if due.Debt.IsZero() {
			dues.remove(idx)
			result.FullyPaidIDs = append(result.FullyPaidIDs, id)
		}
	}

	s := &pool.State
	if s.Reserves.Collateral.Lt(&result.CollateralOut) {
		return nil, ErrInvariantViolation
	}
	s.Reserves.Asset.Add(&s.Reserves.Asset, &result.AssetIn)
	s.Reserves.Collateral.Sub(&s.Reserves.Collateral, &result.CollateralOut)
	if err := checkPoolWidths(pool); err != nil {
		return nil, err
	}

	batch := storage.NewBatch()
	if err := stagePool(batch, p.info.Address, params.Maturity, pool); err != nil {
		return nil, err
	}
	if err := stageDues(batch, p.info.Address, params.Maturity, params.Owner, dues); err != nil {
		return nil, err
	}
	transfers := []bank.Transfer{
		bank.NewTransfer(p.info.Asset, params.Owner, p.info.Address, &result.AssetIn),
		bank.NewTransfer(p.info.Collateral, p.info.Address, params.CollateralTo, &result.CollateralOut),
	}
	if err := p.ledger.Commit(batch, transfers); err != nil {
		return nil, err
	}

	p.emit(events.TermswapPay{
		Pair:          p.info.Address,
		Maturity:      params.Maturity,
		Owner:         params.Owner,
		CollateralTo:  params.CollateralTo,
		IDs:           append([]uint64(nil), params.IDs...),
		AssetIn:       new(uint256.Int).Set(&result.AssetIn),
		CollateralOut: new(uint256.Int).Set(&result.CollateralOut),
		FullyPaidIDs:  append([]uint64(nil), result.FullyPaidIDs...),
	})
	return result, nil
}
