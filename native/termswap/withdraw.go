package termswap

import (
	"termswap/core/events"
	"termswap/native/bank"
	"termswap/native/termswap/curve"
	"termswap/storage"
)

// Withdraw settles ClaimsIn of the owner's claims after maturity through the
// asset and collateral waterfalls.
func (p *Pair) Withdraw(params WithdrawParams) (*WithdrawResult, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	if err := checkMatured(params.Maturity, params.Now); err != nil {
		return nil, err
	}
	if err := p.checkRecipients(params.Owner, params.AssetTo, params.CollateralTo); err != nil {
		return nil, err
	}
	claimsIn := params.ClaimsIn
	if claimsIn.IsZero() {
		return nil, ErrInvalidAmount
	}

	unlock := p.lockPool(params.Maturity)
	defer unlock()

	pool, ok, err := p.store.pool(p.info.Address, params.Maturity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInsufficientLiquidity
	}
	held, err := p.store.claims(p.info.Address, params.Maturity, params.Owner)
	if err != nil {
		return nil, err
	}
	if !held.Covers(&claimsIn) {
		return nil, ErrInsufficientLiquidity
	}
	tokens, err := curve.Withdraw(&pool.State, params.Maturity, params.Now, &claimsIn)
	if err != nil {
		return nil, translate(err)
	}
	s := &pool.State
	if s.Reserves.Asset.Lt(&tokens.Asset) || s.Reserves.Collateral.Lt(&tokens.Collateral) {
		return nil, ErrInvariantViolation
	}

	s.TotalClaims.Sub(&claimsIn)
	s.Reserves.Asset.Sub(&s.Reserves.Asset, &tokens.Asset)
	s.Reserves.Collateral.Sub(&s.Reserves.Collateral, &tokens.Collateral)
	held.Sub(&claimsIn)

	batch := storage.NewBatch()
	if err := stagePool(batch, p.info.Address, params.Maturity, pool); err != nil {
		return nil, err
	}
	if err := stageClaims(batch, p.info.Address, params.Maturity, params.Owner, held); err != nil {
		return nil, err
	}
	transfers := []bank.Transfer{
		bank.NewTransfer(p.info.Asset, p.info.Address, params.AssetTo, &tokens.Asset),
		bank.NewTransfer(p.info.Collateral, p.info.Address, params.CollateralTo, &tokens.Collateral),
	}
	if err := p.ledger.Commit(batch, transfers); err != nil {
		return nil, err
	}

	result := &WithdrawResult{TokensOut: *tokens, ClaimsIn: claimsIn}
	p.emit(events.TermswapWithdraw{
		Pair:              p.info.Address,
		Maturity:          params.Maturity,
		Owner:             params.Owner,
		AssetTo:           params.AssetTo,
		CollateralTo:      params.CollateralTo,
		LoanPrincipal:     &result.ClaimsIn.LoanPrincipal,
		LoanInterest:      &result.ClaimsIn.LoanInterest,
		CoveragePrincipal: &result.ClaimsIn.CoveragePrincipal,
		CoverageInterest:  &result.ClaimsIn.CoverageInterest,
		AssetOut:          &result.TokensOut.Asset,
		CollateralOut:     &result.TokensOut.Collateral,
	})
	return result, nil
}
