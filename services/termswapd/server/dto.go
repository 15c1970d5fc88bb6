package server

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"termswap/native/termswap"
)

// Amounts travel as base-10 strings so no precision is lost in JSON.

func parseAmount(field, raw string) (*uint256.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, nil
	}
	v, err := uint256.FromDecimal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func parseAddress(field, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%s: %q is not a hex address", field, raw)
	}
	return common.HexToAddress(trimmed), nil
}

// optionalAddress returns fallback when raw is empty.
func optionalAddress(field, raw string, fallback common.Address) (common.Address, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return parseAddress(field, raw)
}

type createPairRequest struct {
	Asset      string `json:"asset"`
	Collateral string `json:"collateral"`
}

type pairResponse struct {
	Address           string   `json:"address"`
	Asset             string   `json:"asset"`
	Collateral        string   `json:"collateral"`
	LPFee             uint16   `json:"lpFee"`
	ProtocolFee       uint16   `json:"protocolFee"`
	StakingFee        uint16   `json:"stakingFee"`
	Maturities        []uint64 `json:"maturities,omitempty"`
	ProtocolFeeStored string   `json:"protocolFeeStored,omitempty"`
	StakingFeeStored  string   `json:"stakingFeeStored,omitempty"`
}

func newPairResponse(info termswap.PairInfo) pairResponse {
	return pairResponse{
		Address:     info.Address.Hex(),
		Asset:       info.Asset.Hex(),
		Collateral:  info.Collateral.Hex(),
		LPFee:       info.Fees.LP,
		ProtocolFee: info.Fees.Protocol,
		StakingFee:  info.Fees.Staking,
	}
}

type tokensJSON struct {
	Asset      string `json:"asset"`
	Collateral string `json:"collateral"`
}

func newTokensJSON(t *termswap.Tokens) tokensJSON {
	return tokensJSON{Asset: t.Asset.Dec(), Collateral: t.Collateral.Dec()}
}

type claimsJSON struct {
	LoanPrincipal     string `json:"loanPrincipal"`
	LoanInterest      string `json:"loanInterest"`
	CoveragePrincipal string `json:"coveragePrincipal"`
	CoverageInterest  string `json:"coverageInterest"`
}

func newClaimsJSON(c *termswap.Claims) claimsJSON {
	return claimsJSON{
		LoanPrincipal:     c.LoanPrincipal.Dec(),
		LoanInterest:      c.LoanInterest.Dec(),
		CoveragePrincipal: c.CoveragePrincipal.Dec(),
		CoverageInterest:  c.CoverageInterest.Dec(),
	}
}

func (c claimsJSON) parse() (termswap.Claims, error) {
	var out termswap.Claims
	fields := []struct {
		name string
		raw  string
		dst  *uint256.Int
	}{
		{"loanPrincipal", c.LoanPrincipal, &out.LoanPrincipal},
		{"loanInterest", c.LoanInterest, &out.LoanInterest},
		{"coveragePrincipal", c.CoveragePrincipal, &out.CoveragePrincipal},
		{"coverageInterest", c.CoverageInterest, &out.CoverageInterest},
	}
	for _, f := range fields {
		v, err := parseAmount(f.name, f.raw)
		if err != nil {
			return out, err
		}
		if v != nil {
			f.dst.Set(v)
		}
	}
	return out, nil
}

type dueJSON struct {
	ID         uint64 `json:"id"`
	Debt       string `json:"debt"`
	Collateral string `json:"collateral"`
	CreatedAt  uint64 `json:"createdAt"`
}

func newDueJSON(d *termswap.Due) dueJSON {
	return dueJSON{ID: d.ID, Debt: d.Debt.Dec(), Collateral: d.Collateral.Dec(), CreatedAt: d.CreatedAt}
}

type poolResponse struct {
	Maturity         uint64     `json:"maturity"`
	Reserves         tokensJSON `json:"reserves"`
	X                string     `json:"x"`
	Y                string     `json:"y"`
	Z                string     `json:"z"`
	TotalLiquidity   string     `json:"totalLiquidity"`
	TotalClaims      claimsJSON `json:"totalClaims"`
	LPFeeStored      string     `json:"lpFeeStored"`
	TotalDebtCreated string     `json:"totalDebtCreated"`
}

func newPoolResponse(maturity uint64, p *termswap.Pool) poolResponse {
	s := &p.State
	return poolResponse{
		Maturity:         maturity,
		Reserves:         newTokensJSON(&s.Reserves),
		X:                s.X.Dec(),
		Y:                s.Y.Dec(),
		Z:                s.Z.Dec(),
		TotalLiquidity:   s.TotalLiquidity.Dec(),
		TotalClaims:      newClaimsJSON(&s.TotalClaims),
		LPFeeStored:      s.LPFeeStored.Dec(),
		TotalDebtCreated: p.TotalDebtCreated.Dec(),
	}
}

type mintRequest struct {
	LiquidityTo      string `json:"liquidityTo"`
	DueTo            string `json:"dueTo"`
	AssetIn          string `json:"assetIn"`
	InterestIncrease string `json:"interestIncrease"`
	CdpIncrease      string `json:"cdpIncrease"`
}

type mintResponse struct {
	LiquidityOut string  `json:"liquidityOut"`
	AssetIn      string  `json:"assetIn"`
	FeeIn        string  `json:"feeIn"`
	Due          dueJSON `json:"due"`
}

type lendRequest struct {
	LoanTo           string `json:"loanTo"`
	CoverageTo       string `json:"coverageTo"`
	AssetIn          string `json:"assetIn"`
	InterestDecrease string `json:"interestDecrease"`
	CdpDecrease      string `json:"cdpDecrease"`
}

type lendResponse struct {
	AssetIn       string     `json:"assetIn"`
	LoanTo        string     `json:"loanTo"`
	CoverageTo    string     `json:"coverageTo"`
	ClaimsOut     claimsJSON `json:"claimsOut"`
	FeeIn         string     `json:"feeIn"`
	ProtocolFeeIn string     `json:"protocolFeeIn"`
	StakingFeeIn  string     `json:"stakingFeeIn"`
}

type borrowRequest struct {
	AssetTo          string `json:"assetTo"`
	DueTo            string `json:"dueTo"`
	AssetOut         string `json:"assetOut"`
	InterestIncrease string `json:"interestIncrease"`
	CdpIncrease      string `json:"cdpIncrease"`
}

type borrowResponse struct {
	AssetOut      string  `json:"assetOut"`
	Due           dueJSON `json:"due"`
	DueID         uint64  `json:"dueId"`
	FeeIn         string  `json:"feeIn"`
	ProtocolFeeIn string  `json:"protocolFeeIn"`
	StakingFeeIn  string  `json:"stakingFeeIn"`
}

type burnRequest struct {
	AssetTo      string `json:"assetTo"`
	CollateralTo string `json:"collateralTo"`
	LiquidityIn  string `json:"liquidityIn"`
}

type burnResponse struct {
	LiquidityIn   string `json:"liquidityIn"`
	AssetOut      string `json:"assetOut"`
	CollateralOut string `json:"collateralOut"`
	FeeOut        string `json:"feeOut"`
}

type withdrawRequest struct {
	AssetTo      string     `json:"assetTo"`
	CollateralTo string     `json:"collateralTo"`
	ClaimsIn     claimsJSON `json:"claimsIn"`
}

type withdrawResponse struct {
	TokensOut tokensJSON `json:"tokensOut"`
	ClaimsIn  claimsJSON `json:"claimsIn"`
}

type payRequest struct {
	CollateralTo   string   `json:"collateralTo"`
	IDs            []uint64 `json:"ids"`
	AssetsIn       []string `json:"assetsIn"`
	CollateralsOut []string `json:"collateralsOut"`
}

type payResponse struct {
	AssetIn       string   `json:"assetIn"`
	CollateralOut string   `json:"collateralOut"`
	FullyPaidIDs  []uint64 `json:"fullyPaidIds"`
}

type transferRequest struct {
	To     string     `json:"to"`
	Amount string     `json:"amount,omitempty"`
	Claims claimsJSON `json:"claims"`
	DueID  uint64     `json:"dueId"`
}

type collectRequest struct {
	Kind string `json:"kind"`
	To   string `json:"to"`
}

type ownerRequest struct {
	Pending string `json:"pending"`
}

type pauseRequest struct {
	Paused bool `json:"paused"`
}

type creditRequest struct {
	Account string `json:"account"`
	Token   string `json:"token"`
	Amount  string `json:"amount"`
}

type amountResponse struct {
	Amount string `json:"amount"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
