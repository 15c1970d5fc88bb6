package bank

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"termswap/storage"
)

var (
	// ErrInsufficientBalance is returned when a transfer would overdraw its source.
	ErrInsufficientBalance = errors.New("bank: insufficient balance")
	// ErrBalanceOverflow is returned when a credit would exceed 128 bits.
	ErrBalanceOverflow = errors.New("bank: balance overflow")
	ErrZeroToken       = errors.New("bank: token address required")
)

const balanceBits = 128

var balancePrefix = []byte("bank/balance/")

func balanceKey(token, owner common.Address) []byte {
	buf := make([]byte, len(balancePrefix)+common.AddressLength*2)
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], token.Bytes())
	copy(buf[len(balancePrefix)+common.AddressLength:], owner.Bytes())
	return ethcrypto.Keccak256(buf)
}

// Transfer moves Amount of Token from From to To.
type Transfer struct {
	Token  common.Address
	From   common.Address
	To     common.Address
	Amount uint256.Int
}

// NewTransfer builds a transfer, copying amount.
func NewTransfer(token, from, to common.Address, amount *uint256.Int) Transfer {
	t := Transfer{Token: token, From: from, To: to}
	t.Amount.Set(amount)
	return t
}

type holding struct {
	token common.Address
	owner common.Address
}

// Ledger keeps per-token balances in the shared store. Balance changes are
// committed in the same storage batch as the records of the operation that
// caused them.
type Ledger struct {
	mu sync.Mutex
	db storage.Database
}

// NewLedger wraps db.
func NewLedger(db storage.Database) *Ledger {
	return &Ledger{db: db}
}

// Balance returns owner's balance of token. Unknown holdings are zero.
func (l *Ledger) Balance(token, owner common.Address) (*uint256.Int, error) {
	return l.balance(token, owner)
}

func (l *Ledger) balance(token, owner common.Address) (*uint256.Int, error) {
	data, err := l.db.Get(balanceKey(token, owner))
	if errors.Is(err, storage.ErrNotFound) {
		return new(uint256.Int), nil
	}
	if err != nil {
		return nil, err
	}
	return new(uint256.Int).SetBytes(data), nil
}

// Credit mints amount of token to owner. It is used for genesis and developer
// funding only.
func (l *Ledger) Credit(token, owner common.Address, amount *uint256.Int) error {
	if token == (common.Address{}) {
		return ErrZeroToken
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	current, err := l.balance(token, owner)
	if err != nil {
		return err
	}
	next, overflow := new(uint256.Int).AddOverflow(current, amount)
	if overflow || next.BitLen() > balanceBits {
		return ErrBalanceOverflow
	}
	return l.db.Put(balanceKey(token, owner), next.Bytes())
}

// Transfer moves a single amount on its own.
func (l *Ledger) Transfer(token, from, to common.Address, amount *uint256.Int) error {
	return l.Commit(nil, []Transfer{NewTransfer(token, from, to, amount)})
}

// Commit validates every transfer in order against running balances, appends
// the resulting balances to batch and writes the batch. Nothing is written when
// any transfer fails. A nil batch commits the transfers alone.
func (l *Ledger) Commit(batch *storage.Batch, transfers []Transfer) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	balances := make(map[holding]*uint256.Int)
	var order []holding
	load := func(token, owner common.Address) (*uint256.Int, error) {
		h := holding{token: token, owner: owner}
		if v, ok := balances[h]; ok {
			return v, nil
		}
		v, err := l.balance(token, owner)
		if err != nil {
			return nil, err
		}
		balances[h] = v
		order = append(order, h)
		return v, nil
	}

	for i := range transfers {
		t := &transfers[i]
		if t.Amount.IsZero() || t.From == t.To {
			continue
		}
		if t.Token == (common.Address{}) {
			return ErrZeroToken
		}
		from, err := load(t.Token, t.From)
		if err != nil {
			return err
		}
		if from.Lt(&t.Amount) {
			return fmt.Errorf("%w: %s holds %s of %s, needs %s", ErrInsufficientBalance,
				t.From.Hex(), from.Dec(), t.Token.Hex(), t.Amount.Dec())
		}
		to, err := load(t.Token, t.To)
		if err != nil {
			return err
		}
		from.Sub(from, &t.Amount)
		if _, overflow := to.AddOverflow(to, &t.Amount); overflow || to.BitLen() > balanceBits {
			return ErrBalanceOverflow
		}
	}

	if batch == nil {
		batch = storage.NewBatch()
	}
	for _, h := range order {
		batch.Put(balanceKey(h.token, h.owner), balances[h].Bytes())
	}
	return l.db.Write(batch)
}
