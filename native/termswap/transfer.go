package termswap

import (
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"termswap/core/events"
	"termswap/storage"
)

const (
	PositionLiquidity = "liquidity"
	PositionClaims    = "claims"
	PositionDue       = "due"
)

func (p *Pair) checkTransfer(from, to common.Address) error {
	if err := p.guard(); err != nil {
		return err
	}
	if err := p.checkRecipients(from, to); err != nil {
		return err
	}
	if from == to {
		return ErrInvalidRecipient
	}
	return nil
}

// TransferLiquidity moves amount of liquidity in the pool at maturity between
// owners. Pool totals are unchanged.
func (p *Pair) TransferLiquidity(maturity uint64, from, to common.Address, amount *uint256.Int) error {
	if err := p.checkTransfer(from, to); err != nil {
		return err
	}
	if err := positive(amount); err != nil {
		return err
	}
	unlock := p.lockPool(maturity)
	defer unlock()

	source, err := p.store.liquidity(p.info.Address, maturity, from)
	if err != nil {
		return err
	}
	if source.Lt(amount) {
		return ErrInsufficientLiquidity
	}
	target, err := p.store.liquidity(p.info.Address, maturity, to)
	if err != nil {
		return err
	}
	source.Sub(source, amount)
	target.Add(target, amount)

	batch := storage.NewBatch()
	if err := stageLiquidity(batch, p.info.Address, maturity, from, source); err != nil {
		return err
	}
	if err := stageLiquidity(batch, p.info.Address, maturity, to, target); err != nil {
		return err
	}
	if err := p.ledger.Commit(batch, nil); err != nil {
		return err
	}
	p.emit(events.TermswapPositionTransferred{
		Pair: p.info.Address, Maturity: maturity, Kind: PositionLiquidity,
		From: from, To: to, Detail: amount.Dec(),
	})
	return nil
}

// TransferClaims moves claims in the pool at maturity between owners.
func (p *Pair) TransferClaims(maturity uint64, from, to common.Address, claims Claims) error {
	if err := p.checkTransfer(from, to); err != nil {
		return err
	}
	if claims.IsZero() {
		return ErrInvalidAmount
	}
	unlock := p.lockPool(maturity)
	defer unlock()

	source, err := p.store.claims(p.info.Address, maturity, from)
	if err != nil {
		return err
	}
	if !source.Covers(&claims) {
		return ErrInsufficientLiquidity
	}
	target, err := p.store.claims(p.info.Address, maturity, to)
	if err != nil {
		return err
	}
	source.Sub(&claims)
	target.Add(&claims)

	batch := storage.NewBatch()
	if err := stageClaims(batch, p.info.Address, maturity, from, source); err != nil {
		return err
	}
	if err := stageClaims(batch, p.info.Address, maturity, to, target); err != nil {
		return err
	}
	if err := p.ledger.Commit(batch, nil); err != nil {
		return err
	}
	p.emit(events.TermswapPositionTransferred{
		Pair: p.info.Address, Maturity: maturity, Kind: PositionClaims,
		From: from, To: to, Detail: claims.TotalLoan().Dec() + "/" + claims.TotalCoverage().Dec(),
	})
	return nil
}

// TransferDue hands the due `id` owned by from to `to`, where it receives the
// next id of the recipient's list. The new id is returned.
func (p *Pair) TransferDue(maturity uint64, from, to common.Address, id uint64) (uint64, error) {
	if err := p.checkTransfer(from, to); err != nil {
		return 0, err
	}
	unlock := p.lockPool(maturity)
	defer unlock()

	source, err := p.store.dues(p.info.Address, maturity, from)
	if err != nil {
		return 0, err
	}
	idx := source.index(id)
	if idx < 0 {
		return 0, ErrNoSuchDue
	}
	due := source.Dues[idx]
	source.remove(idx)
	target, err := p.store.dues(p.info.Address, maturity, to)
	if err != nil {
		return 0, err
	}
	moved := target.Append(&due.Debt, &due.Collateral, due.CreatedAt)

	batch := storage.NewBatch()
	if err := stageDues(batch, p.info.Address, maturity, from, source); err != nil {
		return 0, err
	}
	if err := stageDues(batch, p.info.Address, maturity, to, target); err != nil {
		return 0, err
	}
	if err := p.ledger.Commit(batch, nil); err != nil {
		return 0, err
	}
	p.emit(events.TermswapPositionTransferred{
		Pair: p.info.Address, Maturity: maturity, Kind: PositionDue,
		From: from, To: to, Detail: strconv.FormatUint(id, 10) + "->" + strconv.FormatUint(moved.ID, 10),
	})
	return moved.ID, nil
}
