package termswap

import (
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"termswap/core/events"
	"termswap/native/bank"
	nativecommon "termswap/native/common"
	"termswap/native/termswap/curve"
	"termswap/native/termswap/fullmath"
	"termswap/storage"
)

const moduleName = "termswap"

// ModuleName is the key checked against the pause view.
const ModuleName = moduleName

type ledger interface {
	Commit(batch *storage.Batch, transfers []bank.Transfer) error
}

// Pair runs the six pool operations for one (asset, collateral) pair. Each
// maturity has its own lock; the pair-wide fee record and maturity index have
// short-held locks of their own that are only taken while a pool lock is held
// or on their own.
type Pair struct {
	info    PairInfo
	store   *store
	ledger  ledger
	factory *Factory

	mu    sync.Mutex
	pools map[uint64]*sync.Mutex

	feeMu   sync.Mutex
	indexMu sync.Mutex
}

func newPair(info PairInfo, st *store, l ledger, factory *Factory) *Pair {
	return &Pair{
		info:    info,
		store:   st,
		ledger:  l,
		factory: factory,
		pools:   make(map[uint64]*sync.Mutex),
	}
}

// Address returns the account holding the pair's tokens.
func (p *Pair) Address() common.Address { return p.info.Address }

// Asset returns the asset token.
func (p *Pair) Asset() common.Address { return p.info.Asset }

// Collateral returns the collateral token.
func (p *Pair) Collateral() common.Address { return p.info.Collateral }

// Fees returns the fee rates fixed when the pair was created.
func (p *Pair) Fees() Fees { return p.info.Fees }

// Info returns a copy of the pair identity.
func (p *Pair) Info() PairInfo { return p.info }

func (p *Pair) lockPool(maturity uint64) func() {
	p.mu.Lock()
	lock, ok := p.pools[maturity]
	if !ok {
		lock = new(sync.Mutex)
		p.pools[maturity] = lock
	}
	p.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

func (p *Pair) ready() error {
	if p == nil || p.store == nil || p.ledger == nil {
		return ErrNilState
	}
	return nil
}

func (p *Pair) guard() error {
	if err := p.ready(); err != nil {
		return err
	}
	if p.factory == nil {
		return nil
	}
	return nativecommon.Guard(p.factory.pauseView(), moduleName)
}

func (p *Pair) emit(evt events.Event) {
	if p.factory == nil {
		return
	}
	p.factory.emitter().Emit(evt)
}

func (p *Pair) checkRecipients(addrs ...common.Address) error {
	for _, addr := range addrs {
		if addr == (common.Address{}) {
			return ErrZeroAddress
		}
	}
	for _, addr := range addrs {
		if addr == p.info.Address {
			return ErrInvalidRecipient
		}
	}
	return nil
}

func positive(values ...*uint256.Int) error {
	for _, v := range values {
		if v == nil || v.IsZero() {
			return ErrInvalidAmount
		}
	}
	return nil
}

func orZero(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v
}

func checkActive(maturity, now uint64) error {
	if now >= maturity {
		return ErrExpired
	}
	return nil
}

func checkMatured(maturity, now uint64) error {
	if now < maturity {
		return ErrStillActive
	}
	return nil
}

func checkWidth(bits int, values ...*uint256.Int) error {
	for _, v := range values {
		if err := fullmath.CheckWidth(v, bits); err != nil {
			return ErrOverflow
		}
	}
	return nil
}

// checkPoolWidths enforces the storage widths of every pool field.
func checkPoolWidths(pool *Pool) error {
	s := &pool.State
	if err := checkWidth(curve.ReserveBits, &s.X, &s.Y, &s.Z,
		&s.TotalClaims.LoanPrincipal, &s.TotalClaims.LoanInterest,
		&s.TotalClaims.CoveragePrincipal, &s.TotalClaims.CoverageInterest); err != nil {
		return err
	}
	return checkWidth(curve.BalanceBits, &s.Reserves.Asset, &s.Reserves.Collateral, &s.LPFeeStored)
}

// loadActivePool returns the pool at maturity or ErrInsufficientLiquidity when
// it has never been minted into.
func (p *Pair) loadActivePool(maturity uint64) (*Pool, error) {
	pool, ok, err := p.store.pool(p.info.Address, maturity)
	if err != nil {
		return nil, err
	}
	if !ok || pool.State.TotalLiquidity.IsZero() {
		return nil, ErrInsufficientLiquidity
	}
	return pool, nil
}

// Pool returns a copy of the pool at maturity.
func (p *Pair) Pool(maturity uint64) (*Pool, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	pool, ok, err := p.store.pool(p.info.Address, maturity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPoolNotFound
	}
	return pool, nil
}

// Maturities lists every maturity that has a pool, ascending.
func (p *Pair) Maturities() ([]uint64, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	list, err := p.store.maturities(p.info.Address)
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
	return list, nil
}

// LiquidityOf returns owner's liquidity in the pool at maturity.
func (p *Pair) LiquidityOf(maturity uint64, owner common.Address) (*uint256.Int, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return p.store.liquidity(p.info.Address, maturity, owner)
}

// ClaimsOf returns owner's claims in the pool at maturity.
func (p *Pair) ClaimsOf(maturity uint64, owner common.Address) (*Claims, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return p.store.claims(p.info.Address, maturity, owner)
}

// DuesOf returns owner's outstanding dues in the pool at maturity.
func (p *Pair) DuesOf(maturity uint64, owner common.Address) (*DueList, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return p.store.dues(p.info.Address, maturity, owner)
}

// DueOf returns a single due or ErrNoSuchDue.
func (p *Pair) DueOf(maturity uint64, owner common.Address, id uint64) (*Due, error) {
	list, err := p.DuesOf(maturity, owner)
	if err != nil {
		return nil, err
	}
	due, ok := list.Find(id)
	if !ok {
		return nil, ErrNoSuchDue
	}
	return &due, nil
}

// FeesStored returns the pair-wide protocol and staking fee totals.
func (p *Pair) FeesStored() (*FeeAccrual, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	return p.store.fees(p.info.Address)
}

// addMaturity records maturity in the pair index when the pool is new.
func (p *Pair) addMaturity(batch *storage.Batch, maturity uint64) error {
	list, err := p.store.maturities(p.info.Address)
	if err != nil {
		return err
	}
	for _, m := range list {
		if m == maturity {
			return nil
		}
	}
	list = append(list, maturity)
	return stage(batch, maturitiesKey(p.info.Address), list)
}
