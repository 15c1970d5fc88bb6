package termswap

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"termswap/core/events"
	nativecommon "termswap/native/common"
	"termswap/storage"
)

type pairID struct {
	asset      common.Address
	collateral common.Address
}

// Factory creates one Pair per ordered (asset, collateral) and owns the fee
// rates every new pair is created with. Pair identities and the factory owner
// are persisted, so a factory reopened on the same database sees the same
// pairs.
type Factory struct {
	store  *store
	ledger ledger
	fees   Fees

	mu      sync.RWMutex
	pairs   map[pairID]*Pair
	byAddr  map[common.Address]*Pair
	order   []*Pair
	owner   ownerRecord
	events  events.Emitter
	pauses  nativecommon.PauseView
	ownerMu sync.Mutex
}

// NewFactory opens the factory stored in db. On a fresh database owner becomes
// the factory owner; on an existing one the stored owner is kept.
func NewFactory(db storage.Database, l ledger, owner common.Address, fees Fees) (*Factory, error) {
	if db == nil || l == nil {
		return nil, ErrNilState
	}
	f := &Factory{
		store:  newStore(db),
		ledger: l,
		fees:   fees,
		pairs:  make(map[pairID]*Pair),
		byAddr: make(map[common.Address]*Pair),
		events: events.NoopEmitter{},
	}
	rec, ok, err := f.store.owner()
	if err != nil {
		return nil, err
	}
	if ok {
		f.owner = *rec
	} else {
		if owner == (common.Address{}) {
			return nil, ErrZeroAddress
		}
		f.owner = ownerRecord{Owner: owner}
		batch := storage.NewBatch()
		if err := stage(batch, ownerKey, &f.owner); err != nil {
			return nil, err
		}
		if err := db.Write(batch); err != nil {
			return nil, err
		}
	}

	index, err := f.store.pairIndex()
	if err != nil {
		return nil, err
	}
	for _, info := range index {
		f.register(info)
	}
	return f, nil
}

// SetEmitter wires the sink that receives operation events.
func (f *Factory) SetEmitter(emitter events.Emitter) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	f.events = emitter
}

// SetPauses wires the pause view checked by every mutating operation.
func (f *Factory) SetPauses(p nativecommon.PauseView) {
	if f == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses = p
}

func (f *Factory) emitter() events.Emitter {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.events
}

func (f *Factory) pauseView() nativecommon.PauseView {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.pauses
}

// Fees returns the rates given to newly created pairs.
func (f *Factory) Fees() Fees { return f.fees }

func (f *Factory) register(info PairInfo) *Pair {
	pair := newPair(info, f.store, f.ledger, f)
	f.pairs[pairID{asset: info.Asset, collateral: info.Collateral}] = pair
	f.byAddr[info.Address] = pair
	f.order = append(f.order, pair)
	return pair
}

// CreatePair creates the pair for (asset, collateral). The order matters: the
// pair for (B, A) is a different market.
func (f *Factory) CreatePair(asset, collateral common.Address) (*Pair, error) {
	if f == nil || f.store == nil {
		return nil, ErrNilState
	}
	if err := nativecommon.Guard(f.pauseView(), moduleName); err != nil {
		return nil, err
	}
	if asset == (common.Address{}) || collateral == (common.Address{}) {
		return nil, ErrZeroAddress
	}
	if asset == collateral {
		return nil, ErrIdenticalTokens
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.pairs[pairID{asset: asset, collateral: collateral}]; ok {
		return nil, ErrPairExists
	}
	info := PairInfo{
		Address:    PairAddress(asset, collateral),
		Asset:      asset,
		Collateral: collateral,
		Fees:       f.fees,
	}
	index := make([]PairInfo, 0, len(f.order)+1)
	for _, p := range f.order {
		index = append(index, p.info)
	}
	index = append(index, info)

	batch := storage.NewBatch()
	if err := stage(batch, pairKey(asset, collateral), &info); err != nil {
		return nil, err
	}
	if err := stage(batch, pairIndexKey, index); err != nil {
		return nil, err
	}
	if err := f.store.db.Write(batch); err != nil {
		return nil, err
	}
	pair := f.register(info)
	f.events.Emit(events.TermswapPairCreated{Pair: info.Address, Asset: asset, Collateral: collateral})
	return pair, nil
}

// Pair returns the pair for (asset, collateral) or ErrPairNotFound.
func (f *Factory) Pair(asset, collateral common.Address) (*Pair, error) {
	if f == nil {
		return nil, ErrNilState
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	pair, ok := f.pairs[pairID{asset: asset, collateral: collateral}]
	if !ok {
		return nil, ErrPairNotFound
	}
	return pair, nil
}

// PairByAddress looks a pair up by its account address.
func (f *Factory) PairByAddress(addr common.Address) (*Pair, error) {
	if f == nil {
		return nil, ErrNilState
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	pair, ok := f.byAddr[addr]
	if !ok {
		return nil, ErrPairNotFound
	}
	return pair, nil
}

// Pairs returns every pair in creation order.
func (f *Factory) Pairs() []*Pair {
	if f == nil {
		return nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Pair, len(f.order))
	copy(out, f.order)
	return out
}

// Owner returns the current factory owner.
func (f *Factory) Owner() (common.Address, error) {
	if f == nil {
		return common.Address{}, ErrNilState
	}
	f.ownerMu.Lock()
	defer f.ownerMu.Unlock()
	return f.owner.Owner, nil
}

// PendingOwner returns the account nominated by SetPendingOwner, if any.
func (f *Factory) PendingOwner() common.Address {
	if f == nil {
		return common.Address{}
	}
	f.ownerMu.Lock()
	defer f.ownerMu.Unlock()
	return f.owner.Pending
}

// SetPendingOwner nominates pending as the next owner. Ownership moves only
// when pending calls AcceptOwner.
func (f *Factory) SetPendingOwner(caller, pending common.Address) error {
	if f == nil || f.store == nil {
		return ErrNilState
	}
	if pending == (common.Address{}) {
		return ErrZeroAddress
	}
	f.ownerMu.Lock()
	defer f.ownerMu.Unlock()
	if caller != f.owner.Owner {
		return ErrUnauthorized
	}
	next := f.owner
	next.Pending = pending
	if err := f.writeOwner(&next); err != nil {
		return err
	}
	f.owner = next
	return nil
}

// AcceptOwner completes a transfer started by SetPendingOwner.
func (f *Factory) AcceptOwner(caller common.Address) error {
	if f == nil || f.store == nil {
		return ErrNilState
	}
	f.ownerMu.Lock()
	defer f.ownerMu.Unlock()
	if caller == (common.Address{}) || caller != f.owner.Pending {
		return ErrUnauthorized
	}
	previous := f.owner.Owner
	next := ownerRecord{Owner: caller}
	if err := f.writeOwner(&next); err != nil {
		return err
	}
	f.owner = next
	f.emitter().Emit(events.TermswapOwnerChanged{Previous: previous, Owner: caller})
	return nil
}

func (f *Factory) writeOwner(rec *ownerRecord) error {
	batch := storage.NewBatch()
	if err := stage(batch, ownerKey, rec); err != nil {
		return err
	}
	return f.store.db.Write(batch)
}
