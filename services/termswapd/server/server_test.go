package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"termswap/core/events"
	"termswap/native/bank"
	"termswap/native/termswap"
	"termswap/observability"
	"termswap/services/termswapd/middleware"
	"termswap/storage"
)

var (
	ownerAccount = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice        = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob          = common.HexToAddress("0x00000000000000000000000000000000000000b0")
	assetToken   = common.HexToAddress("0x0000000000000000000000000000000000001111")
	collToken    = common.HexToAddress("0x0000000000000000000000000000000000002222")
)

const (
	testNow      = int64(5_000)
	testMaturity = uint64(15_000)
)

type harness struct {
	server  *Server
	factory *termswap.Factory
	ledger  *bank.Ledger
	pauses  *PauseSwitch
}

func newHarness(t *testing.T, devMode bool) *harness {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	ledger := bank.NewLedger(db)
	factory, err := termswap.NewFactory(db, ledger, ownerAccount, termswap.Fees{LP: 2, Protocol: 1, Staking: 1})
	require.NoError(t, err)
	sink := observability.NewEventSink(nil, observability.Termswap(), nil, 64)
	factory.SetEmitter(sink)
	pauses := NewPauseSwitch(false)
	factory.SetPauses(pauses)

	srv, err := New(Config{
		Factory: factory,
		Ledger:  ledger,
		Events:  sink,
		Pauses:  pauses,
		DevMode: devMode,
		Now:     func() time.Time { return time.Unix(testNow, 0) },
	})
	require.NoError(t, err)
	return &harness{server: srv, factory: factory, ledger: ledger, pauses: pauses}
}

func (h *harness) do(t *testing.T, method, path string, account common.Address, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	req.Header.Set("Content-Type", "application/json")
	if account != (common.Address{}) {
		req.Header.Set(middleware.AccountHeader, account.Hex())
	}
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func requireError(t *testing.T, rec *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
	var body errorResponse
	decodeBody(t, rec, &body)
	require.Equal(t, code, body.Error)
}

// createFundedPair creates the pair and credits alice with both tokens.
func (h *harness) createFundedPair(t *testing.T) pairResponse {
	t.Helper()
	rec := h.do(t, http.MethodPost, "/v1/pairs", ownerAccount, createPairRequest{
		Asset: assetToken.Hex(), Collateral: collToken.Hex(),
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var pair pairResponse
	decodeBody(t, rec, &pair)
	for _, token := range []common.Address{assetToken, collToken} {
		require.NoError(t, h.ledger.Credit(token, alice, uint256.NewInt(1_000_000)))
	}
	return pair
}

func poolURL(pair, suffix string) string {
	return fmt.Sprintf("/v1/pairs/%s/pools/%d%s", pair, testMaturity, suffix)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(t, http.MethodGet, "/healthz", common.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]interface{}
	decodeBody(t, rec, &health)
	require.Equal(t, "ok", health["status"])
	require.Equal(t, false, health["paused"])

	require.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = h.do(t, http.MethodGet, "/metrics", common.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "termswap_api_requests_total")
}

func TestPoolLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t, false)
	pair := h.createFundedPair(t)

	rec := h.do(t, http.MethodPost, "/v1/pairs", ownerAccount, createPairRequest{
		Asset: assetToken.Hex(), Collateral: collToken.Hex(),
	})
	requireError(t, rec, http.StatusConflict, "pair_exists")

	rec = h.do(t, http.MethodPost, poolURL(pair.Address, "/mint"), alice, mintRequest{
		AssetIn: "1000", InterestIncrease: "30", CdpIncrease: "2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var minted mintResponse
	decodeBody(t, rec, &minted)
	require.Equal(t, "65536000", minted.LiquidityOut)
	require.Equal(t, "1001", minted.Due.Debt)
	require.Equal(t, "3", minted.Due.Collateral)

	rec = h.do(t, http.MethodGet, poolURL(pair.Address, ""), common.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var pool poolResponse
	decodeBody(t, rec, &pool)
	require.Equal(t, "1000", pool.X)
	require.Equal(t, "30", pool.Y)
	require.Equal(t, "2", pool.Z)
	require.Equal(t, "1000", pool.Reserves.Asset)
	require.Equal(t, "3", pool.Reserves.Collateral)
	require.Equal(t, "1001", pool.TotalDebtCreated)

	rec = h.do(t, http.MethodGet, "/v1/pairs/"+pair.Address, common.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail pairResponse
	decodeBody(t, rec, &detail)
	require.Equal(t, []uint64{testMaturity}, detail.Maturities)
	require.Equal(t, "0", detail.ProtocolFeeStored)

	rec = h.do(t, http.MethodGet, poolURL(pair.Address, "/liquidity/"+alice.Hex()), common.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var liquidity amountResponse
	decodeBody(t, rec, &liquidity)
	require.Equal(t, "65536000", liquidity.Amount)

	rec = h.do(t, http.MethodGet, poolURL(pair.Address, "/dues/"+alice.Hex()), common.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var dues struct {
		NextID uint64    `json:"nextId"`
		Dues   []dueJSON `json:"dues"`
	}
	decodeBody(t, rec, &dues)
	require.Equal(t, uint64(1), dues.NextID)
	require.Len(t, dues.Dues, 1)

	rec = h.do(t, http.MethodGet, fmt.Sprintf("/v1/balances/%s/%s", assetToken.Hex(), alice.Hex()), common.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var balance amountResponse
	decodeBody(t, rec, &balance)
	require.Equal(t, "999000", balance.Amount)

	rec = h.do(t, http.MethodPost, poolURL(pair.Address, "/pay"), alice, payRequest{
		IDs: []uint64{0}, AssetsIn: []string{"1001"}, CollateralsOut: []string{"3"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var paid payResponse
	decodeBody(t, rec, &paid)
	require.Equal(t, []uint64{0}, paid.FullyPaidIDs)
	require.Equal(t, "3", paid.CollateralOut)

	rec = h.do(t, http.MethodGet, poolURL(pair.Address, "/dues/"+alice.Hex()+"/0"), common.Address{}, nil)
	requireError(t, rec, http.StatusNotFound, "no_such_due")

	rec = h.do(t, http.MethodGet, "/v1/events?limit=10", common.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var recent struct {
		Events []struct {
			Type string `json:"type"`
		} `json:"events"`
	}
	decodeBody(t, rec, &recent)
	var seen []string
	for _, evt := range recent.Events {
		seen = append(seen, evt.Type)
	}
	require.Equal(t, []string{events.TypeTermswapPairCreated, events.TypeTermswapMint, events.TypeTermswapPay}, seen)
}

func TestPositionTransfersOverHTTP(t *testing.T) {
	h := newHarness(t, false)
	pair := h.createFundedPair(t)
	rec := h.do(t, http.MethodPost, poolURL(pair.Address, "/mint"), alice, mintRequest{
		AssetIn: "1000", InterestIncrease: "30", CdpIncrease: "2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, poolURL(pair.Address, "/transfer/liquidity"), alice, transferRequest{
		To: bob.Hex(), Amount: "536000",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, poolURL(pair.Address, "/liquidity/"+bob.Hex()), common.Address{}, nil)
	var liquidity amountResponse
	decodeBody(t, rec, &liquidity)
	require.Equal(t, "536000", liquidity.Amount)

	rec = h.do(t, http.MethodPost, poolURL(pair.Address, "/transfer/due"), alice, transferRequest{To: bob.Hex(), DueID: 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var moved map[string]uint64
	decodeBody(t, rec, &moved)
	require.Equal(t, uint64(0), moved["dueId"])

	rec = h.do(t, http.MethodPost, poolURL(pair.Address, "/transfer/due"), alice, transferRequest{To: bob.Hex(), DueID: 0})
	requireError(t, rec, http.StatusNotFound, "no_such_due")

	rec = h.do(t, http.MethodPost, poolURL(pair.Address, "/transfer/liquidity"), alice, transferRequest{
		To: pair.Address, Amount: "1",
	})
	requireError(t, rec, http.StatusBadRequest, "invalid_recipient")
}

func TestMutationsRequireAccount(t *testing.T) {
	h := newHarness(t, false)
	pair := h.createFundedPair(t)

	rec := h.do(t, http.MethodPost, poolURL(pair.Address, "/mint"), common.Address{}, mintRequest{
		AssetIn: "1000", InterestIncrease: "30", CdpIncrease: "2",
	})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(t, http.MethodGet, poolURL(pair.Address, ""), common.Address{}, nil)
	requireError(t, rec, http.StatusNotFound, "pool_not_found")
}

func TestErrorMapping(t *testing.T) {
	h := newHarness(t, false)
	pair := h.createFundedPair(t)
	unknown := common.HexToAddress("0x0000000000000000000000000000000000009999").Hex()

	cases := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"zero amount", http.MethodPost, poolURL(pair.Address, "/mint"),
			mintRequest{AssetIn: "0", InterestIncrease: "30", CdpIncrease: "2"}, http.StatusBadRequest, "invalid_amount"},
		{"missing amount", http.MethodPost, poolURL(pair.Address, "/lend"),
			lendRequest{InterestDecrease: "1", CdpDecrease: "1"}, http.StatusBadRequest, "invalid_amount"},
		{"malformed amount", http.MethodPost, poolURL(pair.Address, "/mint"),
			mintRequest{AssetIn: "ten", InterestIncrease: "30", CdpIncrease: "2"}, http.StatusBadRequest, "bad_request"},
		{"unknown field", http.MethodPost, poolURL(pair.Address, "/mint"),
			map[string]string{"assetsIn": "1"}, http.StatusBadRequest, "bad_request"},
		{"unknown pair", http.MethodPost, poolURL(unknown, "/mint"),
			mintRequest{AssetIn: "1000", InterestIncrease: "30", CdpIncrease: "2"}, http.StatusNotFound, "pair_not_found"},
		{"lend on empty pool", http.MethodPost, poolURL(pair.Address, "/lend"),
			lendRequest{AssetIn: "10", InterestDecrease: "1", CdpDecrease: "1"}, http.StatusUnprocessableEntity, "insufficient_liquidity"},
		{"burn before maturity", http.MethodPost, poolURL(pair.Address, "/burn"),
			burnRequest{LiquidityIn: "1"}, http.StatusConflict, "still_active"},
		{"matured pool", http.MethodPost, fmt.Sprintf("/v1/pairs/%s/pools/%d/mint", pair.Address, testNow),
			mintRequest{AssetIn: "1000", InterestIncrease: "30", CdpIncrease: "2"}, http.StatusConflict, "expired"},
		{"identical tokens", http.MethodPost, "/v1/pairs",
			createPairRequest{Asset: assetToken.Hex(), Collateral: assetToken.Hex()}, http.StatusBadRequest, "identical_tokens"},
		{"bad fee kind", http.MethodPost, "/v1/pairs/" + pair.Address + "/fees/collect",
			collectRequest{Kind: "lp"}, http.StatusBadRequest, "bad_request"},
		{"fee collection by non-owner", http.MethodPost, "/v1/pairs/" + pair.Address + "/fees/collect",
			collectRequest{Kind: "protocol"}, http.StatusForbidden, "unauthorized"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := h.do(t, tc.method, tc.path, alice, tc.body)
			requireError(t, rec, tc.status, tc.code)
		})
	}

	rec := h.do(t, http.MethodGet, fmt.Sprintf("/v1/pairs/%s/pools/soon", pair.Address), common.Address{}, nil)
	requireError(t, rec, http.StatusBadRequest, "bad_request")
	rec = h.do(t, http.MethodGet, "/v1/events?limit=-1", common.Address{}, nil)
	requireError(t, rec, http.StatusBadRequest, "bad_request")
}

func TestPauseIsOwnerOnly(t *testing.T) {
	h := newHarness(t, false)
	pair := h.createFundedPair(t)

	rec := h.do(t, http.MethodPost, "/v1/admin/pause", alice, pauseRequest{Paused: true})
	requireError(t, rec, http.StatusForbidden, "unauthorized")

	rec = h.do(t, http.MethodPost, "/v1/admin/pause", ownerAccount, pauseRequest{Paused: true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, h.pauses.IsPaused(termswap.ModuleName))

	rec = h.do(t, http.MethodPost, poolURL(pair.Address, "/mint"), alice, mintRequest{
		AssetIn: "1000", InterestIncrease: "30", CdpIncrease: "2",
	})
	requireError(t, rec, http.StatusServiceUnavailable, "module_paused")

	rec = h.do(t, http.MethodGet, "/v1/pairs", common.Address{}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodPost, "/v1/admin/pause", ownerAccount, pauseRequest{Paused: false})
	require.Equal(t, http.StatusOK, rec.Code)
	rec = h.do(t, http.MethodPost, poolURL(pair.Address, "/mint"), alice, mintRequest{
		AssetIn: "1000", InterestIncrease: "30", CdpIncrease: "2",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestOwnershipHandoverOverHTTP(t *testing.T) {
	h := newHarness(t, false)

	rec := h.do(t, http.MethodPost, "/v1/owner/pending", alice, ownerRequest{Pending: bob.Hex()})
	requireError(t, rec, http.StatusForbidden, "unauthorized")

	rec = h.do(t, http.MethodPost, "/v1/owner/pending", ownerAccount, ownerRequest{Pending: bob.Hex()})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodPost, "/v1/owner/accept", alice, nil)
	requireError(t, rec, http.StatusForbidden, "unauthorized")

	rec = h.do(t, http.MethodPost, "/v1/owner/accept", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	owner, err := h.factory.Owner()
	require.NoError(t, err)
	require.Equal(t, bob, owner)
}

func TestDevCreditRoute(t *testing.T) {
	h := newHarness(t, false)
	rec := h.do(t, http.MethodPost, "/v1/dev/credit", alice, creditRequest{Token: assetToken.Hex(), Amount: "5"})
	require.Equal(t, http.StatusNotFound, rec.Code)

	h = newHarness(t, true)
	rec = h.do(t, http.MethodPost, "/v1/dev/credit", alice, creditRequest{Token: assetToken.Hex(), Amount: "5"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var balance amountResponse
	decodeBody(t, rec, &balance)
	require.Equal(t, "5", balance.Amount)

	rec = h.do(t, http.MethodPost, "/v1/dev/credit", alice, creditRequest{Token: assetToken.Hex(), Amount: "0"})
	requireError(t, rec, http.StatusBadRequest, "bad_request")
}
