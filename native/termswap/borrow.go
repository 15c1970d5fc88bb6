package termswap

import (
	"github.com/holiman/uint256"

	"termswap/core/events"
	"termswap/native/bank"
	"termswap/native/termswap/curve"
	"termswap/native/termswap/fullmath"
	"termswap/storage"
)

// Borrow takes AssetOut out of the pool against a new due owned by DueTo. The
// recipient receives AssetOut less the borrow fee; the sender locks the due's
// collateral.
func (p *Pair) Borrow(params BorrowParams) (*BorrowResult, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	if err := checkActive(params.Maturity, params.Now); err != nil {
		return nil, err
	}
	if err := p.checkRecipients(params.Sender, params.AssetTo, params.DueTo); err != nil {
		return nil, err
	}
	if err := positive(params.AssetOut); err != nil {
		return nil, err
	}
	interestIncrease := orZero(params.InterestIncrease)
	cdpIncrease := orZero(params.CdpIncrease)

	unlock := p.lockPool(params.Maturity)
	defer unlock()

	pool, err := p.loadActivePool(params.Maturity)
	if err != nil {
		return nil, err
	}
	out, err := curve.Borrow(&pool.State, params.Maturity, params.Now, params.AssetOut, interestIncrease, cdpIncrease, p.info.Fees)
	if err != nil {
		return nil, translate(err)
	}

	s := &pool.State
	s.Reserves.Asset.Sub(&s.Reserves.Asset, params.AssetOut)
	s.Reserves.Collateral.Add(&s.Reserves.Collateral, &out.Collateral)
	s.X.Sub(&s.X, params.AssetOut)
	s.Y.Add(&s.Y, interestIncrease)
	s.Z.Add(&s.Z, cdpIncrease)
	s.LPFeeStored.Add(&s.LPFeeStored, &out.Fees.LP)
	totalDebt, err := fullmath.Add(&pool.TotalDebtCreated, &out.Debt)
	if err != nil {
		return nil, ErrOverflow
	}
	pool.TotalDebtCreated.Set(totalDebt)
	if err := checkPoolWidths(pool); err != nil {
		return nil, err
	}

	dues, err := p.store.dues(p.info.Address, params.Maturity, params.DueTo)
	if err != nil {
		return nil, err
	}
	due := dues.Append(&out.Debt, &out.Collateral, params.Now)

	batch := storage.NewBatch()
	if err := stagePool(batch, p.info.Address, params.Maturity, pool); err != nil {
		return nil, err
	}
	if err := stageDues(batch, p.info.Address, params.Maturity, params.DueTo, dues); err != nil {
		return nil, err
	}
	received := new(uint256.Int).Sub(params.AssetOut, out.Fees.Total())
	transfers := []bank.Transfer{
		bank.NewTransfer(p.info.Collateral, params.Sender, p.info.Address, &out.Collateral),
		bank.NewTransfer(p.info.Asset, p.info.Address, params.AssetTo, received),
	}

	p.feeMu.Lock()
	defer p.feeMu.Unlock()
	if err := p.accrueFees(batch, &out.Fees); err != nil {
		return nil, err
	}
	if err := p.ledger.Commit(batch, transfers); err != nil {
		return nil, err
	}

	result := &BorrowResult{Due: due, DueID: due.ID}
	result.AssetOut.Set(params.AssetOut)
	result.FeeIn.Set(&out.Fees.LP)
	result.ProtocolFeeIn.Set(&out.Fees.Protocol)
	result.StakingFeeIn.Set(&out.Fees.Staking)
	p.emit(events.TermswapBorrow{
		Pair:          p.info.Address,
		Maturity:      params.Maturity,
		Sender:        params.Sender,
		AssetTo:       params.AssetTo,
		DueTo:         params.DueTo,
		AssetOut:      &result.AssetOut,
		DueID:         due.ID,
		Debt:          &result.Due.Debt,
		Collateral:    &result.Due.Collateral,
		FeeIn:         &result.FeeIn,
		ProtocolFeeIn: &result.ProtocolFeeIn,
		StakingFeeIn:  &result.StakingFeeIn,
	})
	return result, nil
}
