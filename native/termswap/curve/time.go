package curve

import (
	"github.com/holiman/uint256"

	"termswap/native/termswap/fullmath"
)

// duration returns the seconds remaining until maturity.
func duration(maturity, now uint64) (*uint256.Int, error) {
	if now >= maturity {
		return nil, ErrMatured
	}
	return uint256.NewInt(maturity - now), nil
}

// timeScaled returns (maturity-now)*amount >> shift, rounded up when roundUp is set.
func timeScaled(maturity, now uint64, amount *uint256.Int, shift uint, roundUp bool) (*uint256.Int, error) {
	d, err := duration(maturity, now)
	if err != nil {
		return nil, err
	}
	product, err := fullmath.Mul(d, amount)
	if err != nil {
		return nil, err
	}
	if roundUp {
		return fullmath.ShiftRightUp(product, shift), nil
	}
	return product.Rsh(product, shift), nil
}

// checkConstantProduct fails when xReserve*yReserve*zReserve < x*y*z.
func checkConstantProduct(s *State, xReserve, yReserve, zReserve *uint256.Int) error {
	if fullmath.CmpTriple(xReserve, yReserve, zReserve, &s.X, &s.Y, &s.Z) < 0 {
		return ErrConstantProduct
	}
	return nil
}

func checkReserves(values ...*uint256.Int) error {
	for _, v := range values {
		if err := fullmath.CheckWidth(v, ReserveBits); err != nil {
			return err
		}
	}
	return nil
}

// splitFees divides total between the three recipients by rate weight. The
// LP share takes the rounding remainder, so the split is lossless and a zero
// protocol or staking weight accrues nothing.
func splitFees(total *uint256.Int, fees Fees) (FeeSplit, error) {
	var split FeeSplit
	rate := fees.Total()
	if rate == 0 || total.IsZero() {
		return split, nil
	}
	denominator := uint256.NewInt(rate)
	protocol, err := fullmath.MulDiv(total, uint256.NewInt(uint64(fees.Protocol)), denominator)
	if err != nil {
		return split, err
	}
	staking, err := fullmath.MulDiv(total, uint256.NewInt(uint64(fees.Staking)), denominator)
	if err != nil {
		return split, err
	}
	split.Protocol.Set(protocol)
	split.Staking.Set(staking)
	split.LP.Sub(total, protocol)
	split.LP.Sub(&split.LP, staking)
	return split, nil
}
