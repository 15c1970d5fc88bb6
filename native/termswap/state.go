package termswap

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"

	"termswap/storage"
)

// store reads records straight from the database and stages writes into a
// batch, so that an operation's records and its token movements commit
// together.
type store struct {
	db storage.Database
}

func newStore(db storage.Database) *store {
	return &store{db: db}
}

func (s *store) get(key []byte, out interface{}) (bool, error) {
	data, err := s.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, fmt.Errorf("termswap: decode record: %w", err)
	}
	return true, nil
}

func stage(batch *storage.Batch, key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("termswap: encode record: %w", err)
	}
	batch.Put(key, encoded)
	return nil
}

func (s *store) pool(pair common.Address, maturity uint64) (*Pool, bool, error) {
	pool := new(Pool)
	ok, err := s.get(poolKey(pair, maturity), pool)
	if err != nil || !ok {
		return nil, false, err
	}
	return pool, true, nil
}

func (s *store) maturities(pair common.Address) ([]uint64, error) {
	var list []uint64
	if _, err := s.get(maturitiesKey(pair), &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *store) liquidity(pair common.Address, maturity uint64, owner common.Address) (*uint256.Int, error) {
	amount := new(uint256.Int)
	if _, err := s.get(liquidityKey(pair, maturity, owner), amount); err != nil {
		return nil, err
	}
	return amount, nil
}

func (s *store) claims(pair common.Address, maturity uint64, owner common.Address) (*Claims, error) {
	claims := new(Claims)
	if _, err := s.get(claimsKey(pair, maturity, owner), claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (s *store) dues(pair common.Address, maturity uint64, owner common.Address) (*DueList, error) {
	list := new(DueList)
	if _, err := s.get(duesKey(pair, maturity, owner), list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *store) fees(pair common.Address) (*FeeAccrual, error) {
	fees := new(FeeAccrual)
	if _, err := s.get(feesKey(pair), fees); err != nil {
		return nil, err
	}
	return fees, nil
}

func (s *store) pairInfo(asset, collateral common.Address) (*PairInfo, bool, error) {
	info := new(PairInfo)
	ok, err := s.get(pairKey(asset, collateral), info)
	if err != nil || !ok {
		return nil, false, err
	}
	return info, true, nil
}

func (s *store) pairIndex() ([]PairInfo, error) {
	var list []PairInfo
	if _, err := s.get(pairIndexKey, &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (s *store) owner() (*ownerRecord, bool, error) {
	rec := new(ownerRecord)
	ok, err := s.get(ownerKey, rec)
	if err != nil || !ok {
		return nil, false, err
	}
	return rec, true, nil
}

func stagePool(batch *storage.Batch, pair common.Address, maturity uint64, pool *Pool) error {
	return stage(batch, poolKey(pair, maturity), pool)
}

func stageLiquidity(batch *storage.Batch, pair common.Address, maturity uint64, owner common.Address, amount *uint256.Int) error {
	key := liquidityKey(pair, maturity, owner)
	if amount.IsZero() {
		batch.Delete(key)
		return nil
	}
	return stage(batch, key, amount)
}

func stageClaims(batch *storage.Batch, pair common.Address, maturity uint64, owner common.Address, claims *Claims) error {
	key := claimsKey(pair, maturity, owner)
	if claims.IsZero() {
		batch.Delete(key)
		return nil
	}
	return stage(batch, key, claims)
}

func stageDues(batch *storage.Batch, pair common.Address, maturity uint64, owner common.Address, list *DueList) error {
	return stage(batch, duesKey(pair, maturity, owner), list)
}

func stageFees(batch *storage.Batch, pair common.Address, fees *FeeAccrual) error {
	return stage(batch, feesKey(pair), fees)
}
