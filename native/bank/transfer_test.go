package bank

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"termswap/storage"
)

var (
	tokenA = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	tokenB = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	alice  = common.HexToAddress("0x1000000000000000000000000000000000000001")
	bob    = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

func mustBalance(t *testing.T, l *Ledger, token, owner common.Address, want uint64) {
	t.Helper()
	got, err := l.Balance(token, owner)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !got.Eq(uint256.NewInt(want)) {
		t.Fatalf("balance of %s: got %s want %d", owner.Hex(), got.Dec(), want)
	}
}

func TestLedgerCreditAndTransfer(t *testing.T) {
	l := NewLedger(storage.NewMemDB())
	mustBalance(t, l, tokenA, alice, 0)

	if err := l.Credit(tokenA, alice, uint256.NewInt(100)); err != nil {
		t.Fatalf("credit: %v", err)
	}
	if err := l.Transfer(tokenA, alice, bob, uint256.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	mustBalance(t, l, tokenA, alice, 60)
	mustBalance(t, l, tokenA, bob, 40)
	mustBalance(t, l, tokenB, bob, 0)
}

func TestLedgerCommitIsAllOrNothing(t *testing.T) {
	db := storage.NewMemDB()
	l := NewLedger(db)
	if err := l.Credit(tokenA, alice, uint256.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	batch := storage.NewBatch()
	batch.Put([]byte("record"), []byte("pending"))
	err := l.Commit(batch, []Transfer{
		NewTransfer(tokenA, alice, bob, uint256.NewInt(10)),
		NewTransfer(tokenA, alice, bob, uint256.NewInt(1)),
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := db.Get([]byte("record")); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("record written despite failed commit: %v", err)
	}
	mustBalance(t, l, tokenA, alice, 10)
	mustBalance(t, l, tokenA, bob, 0)
}

func TestLedgerCommitWritesRecordsWithBalances(t *testing.T) {
	db := storage.NewMemDB()
	l := NewLedger(db)
	if err := l.Credit(tokenA, alice, uint256.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	// bob spends what he receives earlier in the same commit.
	batch := storage.NewBatch()
	batch.Put([]byte("record"), []byte("done"))
	err := l.Commit(batch, []Transfer{
		NewTransfer(tokenA, alice, bob, uint256.NewInt(7)),
		NewTransfer(tokenA, bob, alice, uint256.NewInt(2)),
		NewTransfer(tokenB, bob, alice, uint256.NewInt(0)),
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if got, err := db.Get([]byte("record")); err != nil || string(got) != "done" {
		t.Fatalf("record: %q %v", got, err)
	}
	mustBalance(t, l, tokenA, alice, 5)
	mustBalance(t, l, tokenA, bob, 5)
}

func TestLedgerRejectsOverflowAndZeroToken(t *testing.T) {
	l := NewLedger(storage.NewMemDB())
	huge := new(uint256.Int).Lsh(uint256.NewInt(1), balanceBits)
	if err := l.Credit(tokenA, alice, huge); !errors.Is(err, ErrBalanceOverflow) {
		t.Fatalf("expected ErrBalanceOverflow, got %v", err)
	}
	if err := l.Credit(common.Address{}, alice, uint256.NewInt(1)); !errors.Is(err, ErrZeroToken) {
		t.Fatalf("expected ErrZeroToken, got %v", err)
	}
}
