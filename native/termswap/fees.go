package termswap

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"termswap/core/events"
	"termswap/native/bank"
	"termswap/native/termswap/curve"
	"termswap/storage"
)

const (
	FeeKindProtocol = "protocol"
	FeeKindStaking  = "staking"
)

// accrueFees stages the pair-wide fee record with the protocol and staking
// shares of split added. Callers hold feeMu until the batch commits.
func (p *Pair) accrueFees(batch *storage.Batch, split *curve.FeeSplit) error {
	if split.Protocol.IsZero() && split.Staking.IsZero() {
		return nil
	}
	fees, err := p.store.fees(p.info.Address)
	if err != nil {
		return err
	}
	fees.ProtocolFeeStored.Add(&fees.ProtocolFeeStored, &split.Protocol)
	fees.StakingFeeStored.Add(&fees.StakingFeeStored, &split.Staking)
	if err := checkWidth(curve.BalanceBits, &fees.ProtocolFeeStored, &fees.StakingFeeStored); err != nil {
		return err
	}
	return stageFees(batch, p.info.Address, fees)
}

// CollectProtocolFee sweeps the whole stored protocol fee to `to`. Only the
// factory owner may call it.
func (p *Pair) CollectProtocolFee(caller, to common.Address) (*uint256.Int, error) {
	return p.collectFee(caller, to, FeeKindProtocol)
}

// CollectStakingFee sweeps the whole stored staking fee to `to`. Only the
// factory owner may call it.
func (p *Pair) CollectStakingFee(caller, to common.Address) (*uint256.Int, error) {
	return p.collectFee(caller, to, FeeKindStaking)
}

func (p *Pair) collectFee(caller, to common.Address, kind string) (*uint256.Int, error) {
	if err := p.guard(); err != nil {
		return nil, err
	}
	if err := p.checkRecipients(to); err != nil {
		return nil, err
	}
	if p.factory == nil {
		return nil, ErrUnauthorized
	}
	owner, err := p.factory.Owner()
	if err != nil {
		return nil, err
	}
	if caller != owner {
		return nil, ErrUnauthorized
	}

	p.feeMu.Lock()
	defer p.feeMu.Unlock()

	fees, err := p.store.fees(p.info.Address)
	if err != nil {
		return nil, err
	}
	stored := &fees.ProtocolFeeStored
	if kind == FeeKindStaking {
		stored = &fees.StakingFeeStored
	}
	amount := new(uint256.Int).Set(stored)
	if amount.IsZero() {
		return amount, nil
	}
	stored.Clear()

	batch := storage.NewBatch()
	if err := stageFees(batch, p.info.Address, fees); err != nil {
		return nil, err
	}
	transfers := []bank.Transfer{bank.NewTransfer(p.info.Asset, p.info.Address, to, amount)}
	if err := p.ledger.Commit(batch, transfers); err != nil {
		return nil, err
	}
	p.emit(events.TermswapFeeCollected{Pair: p.info.Address, Kind: kind, To: to, Amount: amount})
	return amount, nil
}
