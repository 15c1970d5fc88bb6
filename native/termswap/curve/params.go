// Package curve implements the stateless settlement math of a fixed-maturity
// constant-product pool. Every function takes a read-only State snapshot and
// the requested deltas and returns the resulting amounts; nothing here touches
// storage.
package curve

import (
	"errors"

	"github.com/holiman/uint256"
)

const (
	// InterestShift scales y against seconds to maturity: interest = t*y >> 32.
	InterestShift = 32
	// CoverageShift scales z against seconds to maturity: coverage = t*z >> 25.
	CoverageShift = 25
	// LiquidityShift bootstraps the first mint: liquidity = assetIn << 16.
	LiquidityShift = 16
	// YieldFloorShift bounds the minimum interest a trade must move.
	YieldFloorShift = 4
	// FeeScaleShift is the precision of the per-second fee rates.
	FeeScaleShift = 40
)

const (
	// ReserveBits bounds x, y, z, claim components and due amounts.
	ReserveBits = 112
	// BalanceBits bounds token reserves and stored fees.
	BalanceBits = 128
)

var feeScale = new(uint256.Int).Lsh(uint256.NewInt(1), FeeScaleShift)

var (
	ErrMatured           = errors.New("curve: maturity reached")
	ErrActive            = errors.New("curve: maturity not reached")
	ErrConstantProduct   = errors.New("curve: constant product decreased")
	ErrYieldFloor        = errors.New("curve: interest decrease below minimum yield")
	ErrInterestBounds    = errors.New("curve: interest increase out of bounds")
	ErrCoverageBounds    = errors.New("curve: coverage increase above maximum")
	ErrZeroLiquidity     = errors.New("curve: liquidity output is zero")
	ErrEmptyPool         = errors.New("curve: pool has no liquidity")
	ErrLiquidityExceeded = errors.New("curve: liquidity exceeds pool total")
	ErrReserveExceeded   = errors.New("curve: amount exceeds pool reserve")
)

// Fees holds the per-second fee rates charged on Lend and Borrow, expressed in
// units of 2^-40 per second to maturity.
type Fees struct {
	LP       uint16 `toml:"LPFee" yaml:"lp_fee"`
	Protocol uint16 `toml:"ProtocolFee" yaml:"protocol_fee"`
	Staking  uint16 `toml:"StakingFee" yaml:"staking_fee"`
}

// Total returns the combined rate.
func (f Fees) Total() uint64 {
	return uint64(f.LP) + uint64(f.Protocol) + uint64(f.Staking)
}

// FeeSplit is a fee amount divided between its three recipients.
type FeeSplit struct {
	LP       uint256.Int
	Protocol uint256.Int
	Staking  uint256.Int
}

// Total returns LP + Protocol + Staking.
func (f *FeeSplit) Total() *uint256.Int {
	total := new(uint256.Int).Add(&f.LP, &f.Protocol)
	return total.Add(total, &f.Staking)
}
