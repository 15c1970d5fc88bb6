package termswap

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"termswap/core/events"
	"termswap/native/bank"
	"termswap/storage"
)

func TestCreatePairRejects(t *testing.T) {
	env := newTestEnv(t)
	other := common.HexToAddress("0x00000000000000000000000000000000000000dd")

	if _, err := env.factory.CreatePair(assetToken, collateralToken); !errors.Is(err, ErrPairExists) {
		t.Fatalf("expected ErrPairExists, got %v", err)
	}
	if _, err := env.factory.CreatePair(other, other); !errors.Is(err, ErrIdenticalTokens) {
		t.Fatalf("expected ErrIdenticalTokens, got %v", err)
	}
	if _, err := env.factory.CreatePair(common.Address{}, other); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}

	// The reversed order is a distinct market with its own address.
	reversed, err := env.factory.CreatePair(collateralToken, assetToken)
	if err != nil {
		t.Fatalf("create reversed pair: %v", err)
	}
	if reversed.Address() == env.pair.Address() {
		t.Fatalf("reversed pair shares an address")
	}
	if got := env.emitter.ofType(events.TypeTermswapPairCreated); len(got) != 2 {
		t.Fatalf("expected 2 pair events, got %d", len(got))
	}
}

func TestPairAddressIsDeterministic(t *testing.T) {
	want := common.BytesToAddress(crypto.Keccak256(
		[]byte("termswap/pair-address/"), assetToken.Bytes(), collateralToken.Bytes(),
	)[12:])
	if got := PairAddress(assetToken, collateralToken); got != want {
		t.Fatalf("pair address: got %s want %s", got.Hex(), want.Hex())
	}
	if PairAddress(assetToken, collateralToken) == PairAddress(collateralToken, assetToken) {
		t.Fatalf("pair address ignores token order")
	}
}

func TestFactoryLookups(t *testing.T) {
	env := newTestEnv(t)
	byTokens, err := env.factory.Pair(assetToken, collateralToken)
	if err != nil || byTokens != env.pair {
		t.Fatalf("pair lookup: %v", err)
	}
	byAddr, err := env.factory.PairByAddress(env.pair.Address())
	if err != nil || byAddr != env.pair {
		t.Fatalf("address lookup: %v", err)
	}
	if _, err := env.factory.Pair(collateralToken, assetToken); !errors.Is(err, ErrPairNotFound) {
		t.Fatalf("expected ErrPairNotFound, got %v", err)
	}
	if pairs := env.factory.Pairs(); len(pairs) != 1 {
		t.Fatalf("expected one pair, got %d", len(pairs))
	}
	if env.pair.Fees() != testFees {
		t.Fatalf("pair fees %+v, want %+v", env.pair.Fees(), testFees)
	}
}

func TestFactoryReopensFromStorage(t *testing.T) {
	env := newTestEnv(t)
	seed := env.seed(t)

	// A different owner and fee schedule must not override what is stored.
	stranger := common.HexToAddress("0x5000000000000000000000000000000000000005")
	reopened, err := NewFactory(env.db, env.ledger, stranger, Fees{LP: 9})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	owner, err := reopened.Owner()
	if err != nil || owner != factoryOwner {
		t.Fatalf("owner after reopen: %s %v", owner.Hex(), err)
	}
	pair, err := reopened.Pair(assetToken, collateralToken)
	if err != nil {
		t.Fatalf("pair after reopen: %v", err)
	}
	if pair.Fees() != testFees {
		t.Fatalf("fees after reopen: %+v", pair.Fees())
	}
	liquidity, err := pair.LiquidityOf(testMaturity, alice)
	if err != nil {
		t.Fatalf("liquidity: %v", err)
	}
	if !liquidity.Eq(&seed.LiquidityOut) {
		t.Fatalf("liquidity after reopen: %s", liquidity.Dec())
	}
	maturities, err := pair.Maturities()
	if err != nil || len(maturities) != 1 || maturities[0] != testMaturity {
		t.Fatalf("maturities after reopen: %v %v", maturities, err)
	}
}

func TestNewFactoryRequiresOwnerOnFreshStore(t *testing.T) {
	db := storage.NewMemDB()
	if _, err := NewFactory(db, bank.NewLedger(db), common.Address{}, testFees); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	if _, err := NewFactory(nil, nil, factoryOwner, testFees); !errors.Is(err, ErrNilState) {
		t.Fatalf("expected ErrNilState, got %v", err)
	}
}

func TestOwnershipTransfer(t *testing.T) {
	env := newTestEnv(t)

	if err := env.factory.SetPendingOwner(alice, bob); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := env.factory.SetPendingOwner(factoryOwner, common.Address{}); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("expected ErrZeroAddress, got %v", err)
	}
	if err := env.factory.SetPendingOwner(factoryOwner, bob); err != nil {
		t.Fatalf("set pending: %v", err)
	}
	if env.factory.PendingOwner() != bob {
		t.Fatalf("pending owner not recorded")
	}
	if err := env.factory.AcceptOwner(carol); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := env.factory.AcceptOwner(bob); err != nil {
		t.Fatalf("accept: %v", err)
	}
	owner, _ := env.factory.Owner()
	if owner != bob || env.factory.PendingOwner() != (common.Address{}) {
		t.Fatalf("ownership not moved: owner %s pending %s", owner.Hex(), env.factory.PendingOwner().Hex())
	}
	if got := env.emitter.ofType(events.TypeTermswapOwnerChanged); len(got) != 1 {
		t.Fatalf("expected one owner event, got %d", len(got))
	}

	// Fee collection follows the new owner.
	env.seed(t)
	if _, err := env.pair.Lend(LendParams{
		Maturity: testMaturity, Now: testNow, Sender: carol, LoanTo: carol, CoverageTo: carol,
		AssetIn:          amount(t, "1000000000000000000"),
		InterestDecrease: amount(t, "100000000000000000000"),
		CdpDecrease:      amount(t, "4000000000000000"),
	}); err != nil {
		t.Fatalf("lend: %v", err)
	}
	if _, err := env.pair.CollectStakingFee(factoryOwner, factoryOwner); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("previous owner collected fees: %v", err)
	}
	collected, err := env.pair.CollectStakingFee(bob, bob)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	expectAmount(t, "staking fee", collected, "28681824915111")
	fees, err := env.pair.FeesStored()
	if err != nil {
		t.Fatalf("fees: %v", err)
	}
	if !fees.StakingFeeStored.IsZero() || fees.ProtocolFeeStored.IsZero() {
		t.Fatalf("unexpected fee store %+v", fees)
	}
	if got := env.emitter.ofType(events.TypeTermswapFeeCollected); len(got) != 1 {
		t.Fatalf("expected one fee event, got %d", len(got))
	}
	env.checkSolvency(t)
}

func TestMintThenBurnConservesTokens(t *testing.T) {
	env := newTestEnv(t)
	assetBefore := env.balance(t, assetToken, alice)
	collateralBefore := env.balance(t, collateralToken, alice)
	seed := env.seed(t)

	if _, err := env.pair.Burn(BurnParams{
		Maturity: testMaturity, Now: testMaturity,
		Owner: alice, AssetTo: alice, CollateralTo: alice,
		LiquidityIn: new(uint256.Int).AddUint64(&seed.LiquidityOut, 1),
	}); !errors.Is(err, ErrInsufficientLiquidity) {
		t.Fatalf("expected ErrInsufficientLiquidity, got %v", err)
	}
	res, err := env.pair.Burn(BurnParams{
		Maturity: testMaturity, Now: testMaturity,
		Owner: alice, AssetTo: alice, CollateralTo: alice,
		LiquidityIn: &seed.LiquidityOut,
	})
	if err != nil {
		t.Fatalf("burn: %v", err)
	}
	expectAmount(t, "asset", &res.AssetOut, "100000000000000000000")
	expectAmount(t, "collateral", &res.CollateralOut, seed.Due.Collateral.Dec())
	if !env.balance(t, assetToken, alice).Eq(assetBefore) {
		t.Fatalf("asset not conserved")
	}
	if !env.balance(t, collateralToken, alice).Eq(collateralBefore) {
		t.Fatalf("collateral not conserved")
	}
	pool := env.pool(t, testMaturity)
	if !pool.State.TotalLiquidity.IsZero() {
		t.Fatalf("liquidity left after full burn")
	}
	env.checkSolvency(t)
}
