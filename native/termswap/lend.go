package termswap

import (
	"github.com/holiman/uint256"

	"termswap/core/events"
	"termswap/native/bank"
	"termswap/native/termswap/curve"
	"termswap/storage"
)

// Lend sells AssetIn into the pool. Loan claims accrue to LoanTo and coverage
// claims to CoverageTo; the sender pays AssetIn plus the lend fee.
func (p *Pair) Lend(params LendParams) (*LendResult, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	if err := checkActive(params.Maturity, params.Now); err != nil {
		return nil, err
	}
	if err := p.checkRecipients(params.Sender, params.LoanTo, params.CoverageTo); err != nil {
		return nil, err
	}
	if err := positive(params.AssetIn); err != nil {
		return nil, err
	}
	interestDecrease := orZero(params.InterestDecrease)
	cdpDecrease := orZero(params.CdpDecrease)

	unlock := p.lockPool(params.Maturity)
	defer unlock()

	pool, err := p.loadActivePool(params.Maturity)
	if err != nil {
		return nil, err
	}
	out, err := curve.Lend(&pool.State, params.Maturity, params.Now, params.AssetIn, interestDecrease, cdpDecrease, p.info.Fees)
	if err != nil {
		return nil, translate(err)
	}

	s := &pool.State
	s.Reserves.Asset.Add(&s.Reserves.Asset, params.AssetIn)
	s.X.Add(&s.X, params.AssetIn)
	s.Y.Sub(&s.Y, interestDecrease)
	s.Z.Sub(&s.Z, cdpDecrease)
	s.TotalClaims.Add(&out.ClaimsOut)
	s.LPFeeStored.Add(&s.LPFeeStored, &out.Fees.LP)
	if err := checkPoolWidths(pool); err != nil {
		return nil, err
	}

	loanClaims, err := p.store.claims(p.info.Address, params.Maturity, params.LoanTo)
	if err != nil {
		return nil, err
	}
	loanClaims.LoanPrincipal.Add(&loanClaims.LoanPrincipal, &out.ClaimsOut.LoanPrincipal)
	loanClaims.LoanInterest.Add(&loanClaims.LoanInterest, &out.ClaimsOut.LoanInterest)
	coverageClaims := loanClaims
	if params.CoverageTo != params.LoanTo {
		coverageClaims, err = p.store.claims(p.info.Address, params.Maturity, params.CoverageTo)
		if err != nil {
			return nil, err
		}
	}
	coverageClaims.CoveragePrincipal.Add(&coverageClaims.CoveragePrincipal, &out.ClaimsOut.CoveragePrincipal)
	coverageClaims.CoverageInterest.Add(&coverageClaims.CoverageInterest, &out.ClaimsOut.CoverageInterest)

	batch := storage.NewBatch()
	if err := stagePool(batch, p.info.Address, params.Maturity, pool); err != nil {
		return nil, err
	}
	if err := stageClaims(batch, p.info.Address, params.Maturity, params.LoanTo, loanClaims); err != nil {
		return nil, err
	}
	if params.CoverageTo != params.LoanTo {
		if err := stageClaims(batch, p.info.Address, params.Maturity, params.CoverageTo, coverageClaims); err != nil {
			return nil, err
		}
	}

	paid := new(uint256.Int).Add(params.AssetIn, out.Fees.Total())
	transfers := []bank.Transfer{
		bank.NewTransfer(p.info.Asset, params.Sender, p.info.Address, paid),
	}

	p.feeMu.Lock()
	defer p.feeMu.Unlock()
	if err := p.accrueFees(batch, &out.Fees); err != nil {
		return nil, err
	}
	if err := p.ledger.Commit(batch, transfers); err != nil {
		return nil, err
	}

	result := &LendResult{
		LoanTo:     params.LoanTo,
		CoverageTo: params.CoverageTo,
		ClaimsOut:  out.ClaimsOut,
	}
	result.AssetIn.Set(params.AssetIn)
	result.FeeIn.Set(&out.Fees.LP)
	result.ProtocolFeeIn.Set(&out.Fees.Protocol)
	result.StakingFeeIn.Set(&out.Fees.Staking)
	p.emit(events.TermswapLend{
		Pair:              p.info.Address,
		Maturity:          params.Maturity,
		Sender:            params.Sender,
		LoanTo:            params.LoanTo,
		CoverageTo:        params.CoverageTo,
		AssetIn:           &result.AssetIn,
		LoanPrincipal:     &result.ClaimsOut.LoanPrincipal,
		LoanInterest:      &result.ClaimsOut.LoanInterest,
		CoveragePrincipal: &result.ClaimsOut.CoveragePrincipal,
		CoverageInterest:  &result.ClaimsOut.CoverageInterest,
		FeeIn:             &result.FeeIn,
		ProtocolFeeIn:     &result.ProtocolFeeIn,
		StakingFeeIn:      &result.StakingFeeIn,
	})
	return result, nil
}
