package termswap

import (
	"encoding/binary"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	pairPrefix       = []byte("termswap/pair/")
	pairIndexKey     = ethcrypto.Keccak256([]byte("termswap/pair/index"))
	ownerKey         = ethcrypto.Keccak256([]byte("termswap/factory/owner"))
	poolPrefix       = []byte("termswap/pool/")
	maturitiesPrefix = []byte("termswap/maturities/")
	liquidityPrefix  = []byte("termswap/liquidity/")
	claimsPrefix     = []byte("termswap/claims/")
	duesPrefix       = []byte("termswap/dues/")
	feesPrefix       = []byte("termswap/fees/")
	pairAddrPrefix   = []byte("termswap/pair-address/")
)

func joinKey(prefix []byte, parts ...[]byte) []byte {
	size := len(prefix)
	for _, p := range parts {
		size += len(p)
	}
	buf := make([]byte, 0, size)
	buf = append(buf, prefix...)
	for _, p := range parts {
		buf = append(buf, p...)
	}
	return ethcrypto.Keccak256(buf)
}

func maturityBytes(maturity uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], maturity)
	return buf[:]
}

// PairAddress derives the account that holds a pair's tokens.
func PairAddress(asset, collateral common.Address) common.Address {
	hash := ethcrypto.Keccak256(pairAddrPrefix, asset.Bytes(), collateral.Bytes())
	return common.BytesToAddress(hash[12:])
}

func pairKey(asset, collateral common.Address) []byte {
	return joinKey(pairPrefix, asset.Bytes(), collateral.Bytes())
}

func poolKey(pair common.Address, maturity uint64) []byte {
	return joinKey(poolPrefix, pair.Bytes(), maturityBytes(maturity))
}

func maturitiesKey(pair common.Address) []byte {
	return joinKey(maturitiesPrefix, pair.Bytes())
}

func liquidityKey(pair common.Address, maturity uint64, owner common.Address) []byte {
	return joinKey(liquidityPrefix, pair.Bytes(), maturityBytes(maturity), owner.Bytes())
}

func claimsKey(pair common.Address, maturity uint64, owner common.Address) []byte {
	return joinKey(claimsPrefix, pair.Bytes(), maturityBytes(maturity), owner.Bytes())
}

func duesKey(pair common.Address, maturity uint64, owner common.Address) []byte {
	return joinKey(duesPrefix, pair.Bytes(), maturityBytes(maturity), owner.Bytes())
}

func feesKey(pair common.Address) []byte {
	return joinKey(feesPrefix, pair.Bytes())
}
