package termswap

import (
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"termswap/core/events"
	"termswap/native/bank"
	"termswap/storage"
)

const (
	testNow      = uint64(1_000_000)
	testMaturity = testNow + 31_536_000
)

var (
	assetToken      = common.HexToAddress("0x00000000000000000000000000000000000000a5")
	collateralToken = common.HexToAddress("0x00000000000000000000000000000000000000c0")
	factoryOwner    = common.HexToAddress("0x0000000000000000000000000000000000000001")
	alice           = common.HexToAddress("0x1000000000000000000000000000000000000001")
	bob             = common.HexToAddress("0x2000000000000000000000000000000000000002")
	carol           = common.HexToAddress("0x3000000000000000000000000000000000000003")

	testFees = Fees{LP: 2, Protocol: 1, Staking: 1}
)

type captureEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (c *captureEmitter) Emit(evt events.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
}

func (c *captureEmitter) ofType(eventType string) []events.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []events.Event
	for _, evt := range c.events {
		if evt.EventType() == eventType {
			out = append(out, evt)
		}
	}
	return out
}

type mockPauses map[string]bool

func (m mockPauses) IsPaused(module string) bool { return m[module] }

type testEnv struct {
	db      *storage.MemDB
	ledger  *bank.Ledger
	factory *Factory
	pair    *Pair
	emitter *captureEmitter
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := storage.NewMemDB()
	ledger := bank.NewLedger(db)
	factory, err := NewFactory(db, ledger, factoryOwner, testFees)
	if err != nil {
		t.Fatalf("new factory: %v", err)
	}
	emitter := &captureEmitter{}
	factory.SetEmitter(emitter)
	pair, err := factory.CreatePair(assetToken, collateralToken)
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	funding := amount(t, "1000000000000000000000000")
	for _, who := range []common.Address{alice, bob, carol} {
		for _, token := range []common.Address{assetToken, collateralToken} {
			if err := ledger.Credit(token, who, funding); err != nil {
				t.Fatalf("credit: %v", err)
			}
		}
	}
	return &testEnv{db: db, ledger: ledger, factory: factory, pair: pair, emitter: emitter}
}

func amount(t *testing.T, s string) *uint256.Int {
	t.Helper()
	v, err := uint256.FromDecimal(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func expectAmount(t *testing.T, name string, got *uint256.Int, want string) {
	t.Helper()
	if got.Dec() != want {
		t.Fatalf("%s: got %s want %s", name, got.Dec(), want)
	}
}

func (e *testEnv) balance(t *testing.T, token, who common.Address) *uint256.Int {
	t.Helper()
	v, err := e.ledger.Balance(token, who)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return v
}

func (e *testEnv) pool(t *testing.T, maturity uint64) *Pool {
	t.Helper()
	pool, err := e.pair.Pool(maturity)
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	return pool
}

// seed mints the reference pool {100e18, 17753.67e18, 932.75e15} for alice.
func (e *testEnv) seed(t *testing.T) *MintResult {
	t.Helper()
	res, err := e.pair.Mint(MintParams{
		Maturity:         testMaturity,
		Now:              testNow,
		Sender:           alice,
		LiquidityTo:      alice,
		DueTo:            alice,
		AssetIn:          amount(t, "100000000000000000000"),
		InterestIncrease: amount(t, "17753670000000000000000"),
		CdpIncrease:      amount(t, "932750000000000000"),
	})
	if err != nil {
		t.Fatalf("seed mint: %v", err)
	}
	return res
}

// checkSolvency asserts the pair's token balances equal what its records
// account for.
func (e *testEnv) checkSolvency(t *testing.T) {
	t.Helper()
	wantAsset := new(uint256.Int)
	wantCollateral := new(uint256.Int)
	maturities, err := e.pair.Maturities()
	if err != nil {
		t.Fatalf("maturities: %v", err)
	}
	for _, m := range maturities {
		pool := e.pool(t, m)
		wantAsset.Add(wantAsset, &pool.State.Reserves.Asset)
		wantAsset.Add(wantAsset, &pool.State.LPFeeStored)
		wantCollateral.Add(wantCollateral, &pool.State.Reserves.Collateral)
	}
	fees, err := e.pair.FeesStored()
	if err != nil {
		t.Fatalf("fees: %v", err)
	}
	wantAsset.Add(wantAsset, &fees.ProtocolFeeStored)
	wantAsset.Add(wantAsset, &fees.StakingFeeStored)

	if got := e.balance(t, assetToken, e.pair.Address()); !got.Eq(wantAsset) {
		t.Fatalf("pair asset balance %s, records account for %s", got.Dec(), wantAsset.Dec())
	}
	if got := e.balance(t, collateralToken, e.pair.Address()); !got.Eq(wantCollateral) {
		t.Fatalf("pair collateral balance %s, records account for %s", got.Dec(), wantCollateral.Dec())
	}
}
