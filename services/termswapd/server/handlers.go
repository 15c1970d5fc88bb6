package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/holiman/uint256"

	"termswap/native/termswap"
	"termswap/services/termswapd/middleware"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// fields collects the first parse failure of a request body.
type fields struct {
	err error
}

func (f *fields) amount(name, raw string) *uint256.Int {
	if f.err != nil {
		return nil
	}
	v, err := parseAmount(name, raw)
	if err != nil {
		f.err = err
	}
	return v
}

func (f *fields) address(name, raw string, fallback common.Address) common.Address {
	if f.err != nil {
		return common.Address{}
	}
	addr, err := optionalAddress(name, raw, fallback)
	if err != nil {
		f.err = err
	}
	return addr
}

func (f *fields) claims(c claimsJSON) termswap.Claims {
	if f.err != nil {
		return termswap.Claims{}
	}
	out, err := c.parse()
	if err != nil {
		f.err = err
	}
	return out
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, requestBodyLimit))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("invalid payload: %v", err))
		return false
	}
	return true
}

func (s *Server) badRequest(w http.ResponseWriter, err error) {
	writeError(w, http.StatusBadRequest, "bad_request", err.Error())
}

// fail reports a failed operation to metrics, the log and the client.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code := classify(err)
	s.metrics.RecordOperation(op, code)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("termswapd: operation failed",
			slog.String("operation", op),
			slog.String("request_id", middleware.RequestIDFrom(r.Context())),
			slog.Any("error", err))
		message = "internal error"
	} else {
		s.logger.Debug("termswapd: operation rejected",
			slog.String("operation", op),
			slog.String("code", code),
			slog.String("request_id", middleware.RequestIDFrom(r.Context())))
	}
	writeError(w, status, code, message)
}

func (s *Server) succeed(op string) {
	s.metrics.RecordOperation(op, "")
}

func (s *Server) nowUnix() uint64 {
	now := s.now().Unix()
	if now < 0 {
		return 0
	}
	return uint64(now)
}

func toFloat(v *uint256.Int) float64 {
	f, _ := new(big.Float).SetInt(v.ToBig()).Float64()
	return f
}

// observePool refreshes the reserve gauges of one pool.
func (s *Server) observePool(pair *termswap.Pair, maturity uint64) {
	pool, err := pair.Pool(maturity)
	if err != nil {
		return
	}
	s.metrics.SetReserves(pair.Address().Hex(), maturity,
		toFloat(&pool.State.Reserves.Asset), toFloat(&pool.State.Reserves.Collateral))
}

func (s *Server) observePoolCount() {
	total := 0
	for _, pair := range s.factory.Pairs() {
		maturities, err := pair.Maturities()
		if err != nil {
			continue
		}
		total += len(maturities)
	}
	s.metrics.SetPools(total)
}

func (s *Server) pairFrom(w http.ResponseWriter, r *http.Request, op string) (*termswap.Pair, bool) {
	addr, err := parseAddress("pair", chi.URLParam(r, "pair"))
	if err != nil {
		s.badRequest(w, err)
		return nil, false
	}
	pair, err := s.factory.PairByAddress(addr)
	if err != nil {
		s.fail(w, r, op, err)
		return nil, false
	}
	return pair, true
}

func (s *Server) poolFrom(w http.ResponseWriter, r *http.Request, op string) (*termswap.Pair, uint64, bool) {
	pair, ok := s.pairFrom(w, r, op)
	if !ok {
		return nil, 0, false
	}
	maturity, err := strconv.ParseUint(chi.URLParam(r, "maturity"), 10, 64)
	if err != nil {
		s.badRequest(w, fmt.Errorf("maturity: %w", err))
		return nil, 0, false
	}
	return pair, maturity, true
}

func ownerParam(r *http.Request) (common.Address, error) {
	return parseAddress("owner", chi.URLParam(r, "owner"))
}

// caller is set by the authenticator on every mutating route.
func caller(r *http.Request) common.Address {
	account, _ := middleware.AccountFrom(r.Context())
	return account
}

func (s *Server) handleListPairs(w http.ResponseWriter, r *http.Request) {
	pairs := s.factory.Pairs()
	out := make([]pairResponse, 0, len(pairs))
	for _, pair := range pairs {
		out = append(out, newPairResponse(pair.Info()))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pairs": out})
}

func (s *Server) handleGetPair(w http.ResponseWriter, r *http.Request) {
	pair, ok := s.pairFrom(w, r, "get_pair")
	if !ok {
		return
	}
	resp := newPairResponse(pair.Info())
	maturities, err := pair.Maturities()
	if err != nil {
		s.fail(w, r, "get_pair", err)
		return
	}
	stored, err := pair.FeesStored()
	if err != nil {
		s.fail(w, r, "get_pair", err)
		return
	}
	resp.Maturities = maturities
	resp.ProtocolFeeStored = stored.ProtocolFeeStored.Dec()
	resp.StakingFeeStored = stored.StakingFeeStored.Dec()
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	pair, maturity, ok := s.poolFrom(w, r, "get_pool")
	if !ok {
		return
	}
	pool, err := pair.Pool(maturity)
	if err != nil {
		s.fail(w, r, "get_pool", err)
		return
	}
	writeJSON(w, http.StatusOK, newPoolResponse(maturity, pool))
}

func (s *Server) handleLiquidityOf(w http.ResponseWriter, r *http.Request) {
	pair, maturity, ok := s.poolFrom(w, r, "get_liquidity")
	if !ok {
		return
	}
	owner, err := ownerParam(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	amount, err := pair.LiquidityOf(maturity, owner)
	if err != nil {
		s.fail(w, r, "get_liquidity", err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: amount.Dec()})
}

func (s *Server) handleClaimsOf(w http.ResponseWriter, r *http.Request) {
	pair, maturity, ok := s.poolFrom(w, r, "get_claims")
	if !ok {
		return
	}
	owner, err := ownerParam(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	claims, err := pair.ClaimsOf(maturity, owner)
	if err != nil {
		s.fail(w, r, "get_claims", err)
		return
	}
	writeJSON(w, http.StatusOK, newClaimsJSON(claims))
}

func (s *Server) handleDuesOf(w http.ResponseWriter, r *http.Request) {
	pair, maturity, ok := s.poolFrom(w, r, "get_dues")
	if !ok {
		return
	}
	owner, err := ownerParam(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	list, err := pair.DuesOf(maturity, owner)
	if err != nil {
		s.fail(w, r, "get_dues", err)
		return
	}
	dues := make([]dueJSON, 0, len(list.Dues))
	for i := range list.Dues {
		dues = append(dues, newDueJSON(&list.Dues[i]))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"nextId": list.NextID, "dues": dues})
}

func (s *Server) handleDueOf(w http.ResponseWriter, r *http.Request) {
	pair, maturity, ok := s.poolFrom(w, r, "get_due")
	if !ok {
		return
	}
	owner, err := ownerParam(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.badRequest(w, fmt.Errorf("id: %w", err))
		return
	}
	due, err := pair.DueOf(maturity, owner, id)
	if err != nil {
		s.fail(w, r, "get_due", err)
		return
	}
	writeJSON(w, http.StatusOK, newDueJSON(due))
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	token, err := parseAddress("token", chi.URLParam(r, "token"))
	if err != nil {
		s.badRequest(w, err)
		return
	}
	owner, err := ownerParam(r)
	if err != nil {
		s.badRequest(w, err)
		return
	}
	amount, err := s.ledger.Balance(token, owner)
	if err != nil {
		s.fail(w, r, "get_balance", err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: amount.Dec()})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := defaultEventLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.badRequest(w, fmt.Errorf("limit must be a positive integer"))
			return
		}
		limit = parsed
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	out := []interface{}{}
	if s.events != nil {
		for _, evt := range s.events.Recent(limit) {
			out = append(out, evt)
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": out})
}

func (s *Server) handleCreatePair(w http.ResponseWriter, r *http.Request) {
	const op = "create_pair"
	var req createPairRequest
	if !s.decode(w, r, &req) {
		return
	}
	var f fields
	asset := f.address("asset", req.Asset, common.Address{})
	collateral := f.address("collateral", req.Collateral, common.Address{})
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	pair, err := s.factory.CreatePair(asset, collateral)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	s.logger.Info("termswapd: pair created",
		slog.String("pair", pair.Address().Hex()),
		slog.String("account", caller(r).Hex()))
	writeJSON(w, http.StatusCreated, newPairResponse(pair.Info()))
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	const op = "mint"
	pair, maturity, ok := s.poolFrom(w, r, op)
	if !ok {
		return
	}
	var req mintRequest
	if !s.decode(w, r, &req) {
		return
	}
	sender := caller(r)
	var f fields
	params := termswap.MintParams{
		Maturity:         maturity,
		Now:              s.nowUnix(),
		Sender:           sender,
		LiquidityTo:      f.address("liquidityTo", req.LiquidityTo, sender),
		DueTo:            f.address("dueTo", req.DueTo, sender),
		AssetIn:          f.amount("assetIn", req.AssetIn),
		InterestIncrease: f.amount("interestIncrease", req.InterestIncrease),
		CdpIncrease:      f.amount("cdpIncrease", req.CdpIncrease),
	}
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	res, err := pair.Mint(params)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	s.observePool(pair, maturity)
	s.observePoolCount()
	writeJSON(w, http.StatusOK, mintResponse{
		LiquidityOut: res.LiquidityOut.Dec(),
		AssetIn:      res.AssetIn.Dec(),
		FeeIn:        res.FeeIn.Dec(),
		Due:          newDueJSON(&res.Due),
	})
}

func (s *Server) handleLend(w http.ResponseWriter, r *http.Request) {
	const op = "lend"
	pair, maturity, ok := s.poolFrom(w, r, op)
	if !ok {
		return
	}
	var req lendRequest
	if !s.decode(w, r, &req) {
		return
	}
	sender := caller(r)
	var f fields
	params := termswap.LendParams{
		Maturity:         maturity,
		Now:              s.nowUnix(),
		Sender:           sender,
		LoanTo:           f.address("loanTo", req.LoanTo, sender),
		CoverageTo:       f.address("coverageTo", req.CoverageTo, sender),
		AssetIn:          f.amount("assetIn", req.AssetIn),
		InterestDecrease: f.amount("interestDecrease", req.InterestDecrease),
		CdpDecrease:      f.amount("cdpDecrease", req.CdpDecrease),
	}
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	res, err := pair.Lend(params)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	s.observePool(pair, maturity)
	writeJSON(w, http.StatusOK, lendResponse{
		AssetIn:       res.AssetIn.Dec(),
		LoanTo:        res.LoanTo.Hex(),
		CoverageTo:    res.CoverageTo.Hex(),
		ClaimsOut:     newClaimsJSON(&res.ClaimsOut),
		FeeIn:         res.FeeIn.Dec(),
		ProtocolFeeIn: res.ProtocolFeeIn.Dec(),
		StakingFeeIn:  res.StakingFeeIn.Dec(),
	})
}

func (s *Server) handleBorrow(w http.ResponseWriter, r *http.Request) {
	const op = "borrow"
	pair, maturity, ok := s.poolFrom(w, r, op)
	if !ok {
		return
	}
	var req borrowRequest
	if !s.decode(w, r, &req) {
		return
	}
	sender := caller(r)
	var f fields
	params := termswap.BorrowParams{
		Maturity:         maturity,
		Now:              s.nowUnix(),
		Sender:           sender,
		AssetTo:          f.address("assetTo", req.AssetTo, sender),
		DueTo:            f.address("dueTo", req.DueTo, sender),
		AssetOut:         f.amount("assetOut", req.AssetOut),
		InterestIncrease: f.amount("interestIncrease", req.InterestIncrease),
		CdpIncrease:      f.amount("cdpIncrease", req.CdpIncrease),
	}
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	res, err := pair.Borrow(params)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	s.observePool(pair, maturity)
	writeJSON(w, http.StatusOK, borrowResponse{
		AssetOut:      res.AssetOut.Dec(),
		Due:           newDueJSON(&res.Due),
		DueID:         res.DueID,
		FeeIn:         res.FeeIn.Dec(),
		ProtocolFeeIn: res.ProtocolFeeIn.Dec(),
		StakingFeeIn:  res.StakingFeeIn.Dec(),
	})
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	const op = "burn"
	pair, maturity, ok := s.poolFrom(w, r, op)
	if !ok {
		return
	}
	var req burnRequest
	if !s.decode(w, r, &req) {
		return
	}
	owner := caller(r)
	var f fields
	params := termswap.BurnParams{
		Maturity:     maturity,
		Now:          s.nowUnix(),
		Owner:        owner,
		AssetTo:      f.address("assetTo", req.AssetTo, owner),
		CollateralTo: f.address("collateralTo", req.CollateralTo, owner),
		LiquidityIn:  f.amount("liquidityIn", req.LiquidityIn),
	}
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	res, err := pair.Burn(params)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	s.observePool(pair, maturity)
	writeJSON(w, http.StatusOK, burnResponse{
		LiquidityIn:   res.LiquidityIn.Dec(),
		AssetOut:      res.AssetOut.Dec(),
		CollateralOut: res.CollateralOut.Dec(),
		FeeOut:        res.FeeOut.Dec(),
	})
}

func (s *Server) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	const op = "withdraw"
	pair, maturity, ok := s.poolFrom(w, r, op)
	if !ok {
		return
	}
	var req withdrawRequest
	if !s.decode(w, r, &req) {
		return
	}
	owner := caller(r)
	var f fields
	params := termswap.WithdrawParams{
		Maturity:     maturity,
		Now:          s.nowUnix(),
		Owner:        owner,
		AssetTo:      f.address("assetTo", req.AssetTo, owner),
		CollateralTo: f.address("collateralTo", req.CollateralTo, owner),
		ClaimsIn:     f.claims(req.ClaimsIn),
	}
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	res, err := pair.Withdraw(params)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	s.observePool(pair, maturity)
	writeJSON(w, http.StatusOK, withdrawResponse{
		TokensOut: newTokensJSON(&res.TokensOut),
		ClaimsIn:  newClaimsJSON(&res.ClaimsIn),
	})
}

func (s *Server) handlePay(w http.ResponseWriter, r *http.Request) {
	const op = "pay"
	pair, maturity, ok := s.poolFrom(w, r, op)
	if !ok {
		return
	}
	var req payRequest
	if !s.decode(w, r, &req) {
		return
	}
	owner := caller(r)
	var f fields
	params := termswap.PayParams{
		Maturity:       maturity,
		Now:            s.nowUnix(),
		Owner:          owner,
		CollateralTo:   f.address("collateralTo", req.CollateralTo, owner),
		IDs:            req.IDs,
		AssetsIn:       make([]*uint256.Int, len(req.AssetsIn)),
		CollateralsOut: make([]*uint256.Int, len(req.CollateralsOut)),
	}
	for i, raw := range req.AssetsIn {
		params.AssetsIn[i] = f.amount(fmt.Sprintf("assetsIn[%d]", i), raw)
	}
	for i, raw := range req.CollateralsOut {
		params.CollateralsOut[i] = f.amount(fmt.Sprintf("collateralsOut[%d]", i), raw)
	}
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	res, err := pair.Pay(params)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	s.observePool(pair, maturity)
	writeJSON(w, http.StatusOK, payResponse{
		AssetIn:       res.AssetIn.Dec(),
		CollateralOut: res.CollateralOut.Dec(),
		FullyPaidIDs:  res.FullyPaidIDs,
	})
}

func (s *Server) handleTransferLiquidity(w http.ResponseWriter, r *http.Request) {
	const op = "transfer_liquidity"
	pair, maturity, ok := s.poolFrom(w, r, op)
	if !ok {
		return
	}
	var req transferRequest
	if !s.decode(w, r, &req) {
		return
	}
	var f fields
	to := f.address("to", req.To, common.Address{})
	amount := f.amount("amount", req.Amount)
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	if err := pair.TransferLiquidity(maturity, caller(r), to, amount); err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	writeJSON(w, http.StatusOK, amountResponse{Amount: amount.Dec()})
}

func (s *Server) handleTransferClaims(w http.ResponseWriter, r *http.Request) {
	const op = "transfer_claims"
	pair, maturity, ok := s.poolFrom(w, r, op)
	if !ok {
		return
	}
	var req transferRequest
	if !s.decode(w, r, &req) {
		return
	}
	var f fields
	to := f.address("to", req.To, common.Address{})
	claims := f.claims(req.Claims)
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	if err := pair.TransferClaims(maturity, caller(r), to, claims); err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	writeJSON(w, http.StatusOK, newClaimsJSON(&claims))
}

func (s *Server) handleTransferDue(w http.ResponseWriter, r *http.Request) {
	const op = "transfer_due"
	pair, maturity, ok := s.poolFrom(w, r, op)
	if !ok {
		return
	}
	var req transferRequest
	if !s.decode(w, r, &req) {
		return
	}
	var f fields
	to := f.address("to", req.To, common.Address{})
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	id, err := pair.TransferDue(maturity, caller(r), to, req.DueID)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	writeJSON(w, http.StatusOK, map[string]uint64{"dueId": id})
}

func (s *Server) handleCollectFee(w http.ResponseWriter, r *http.Request) {
	const op = "collect_fee"
	pair, ok := s.pairFrom(w, r, op)
	if !ok {
		return
	}
	var req collectRequest
	if !s.decode(w, r, &req) {
		return
	}
	account := caller(r)
	var f fields
	to := f.address("to", req.To, account)
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	var (
		amount *uint256.Int
		err    error
	)
	switch strings.ToLower(strings.TrimSpace(req.Kind)) {
	case termswap.FeeKindProtocol:
		amount, err = pair.CollectProtocolFee(account, to)
	case termswap.FeeKindStaking:
		amount, err = pair.CollectStakingFee(account, to)
	default:
		s.badRequest(w, fmt.Errorf("kind must be %q or %q", termswap.FeeKindProtocol, termswap.FeeKindStaking))
		return
	}
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	writeJSON(w, http.StatusOK, amountResponse{Amount: amount.Dec()})
}

func (s *Server) handleSetPendingOwner(w http.ResponseWriter, r *http.Request) {
	const op = "set_pending_owner"
	var req ownerRequest
	if !s.decode(w, r, &req) {
		return
	}
	var f fields
	pending := f.address("pending", req.Pending, common.Address{})
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	if err := s.factory.SetPendingOwner(caller(r), pending); err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	writeJSON(w, http.StatusOK, map[string]string{"pending": pending.Hex()})
}

func (s *Server) handleAcceptOwner(w http.ResponseWriter, r *http.Request) {
	const op = "accept_owner"
	account := caller(r)
	if err := s.factory.AcceptOwner(account); err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	writeJSON(w, http.StatusOK, map[string]string{"owner": account.Hex()})
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	const op = "pause"
	var req pauseRequest
	if !s.decode(w, r, &req) {
		return
	}
	owner, err := s.factory.Owner()
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	account := caller(r)
	if account != owner {
		s.fail(w, r, op, termswap.ErrUnauthorized)
		return
	}
	s.pauses.Set(req.Paused)
	s.succeed(op)
	s.logger.Warn("termswapd: pause state changed",
		slog.Bool("paused", req.Paused),
		slog.String("account", account.Hex()))
	writeJSON(w, http.StatusOK, map[string]bool{"paused": req.Paused})
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	const op = "credit"
	var req creditRequest
	if !s.decode(w, r, &req) {
		return
	}
	account := caller(r)
	var f fields
	to := f.address("account", req.Account, account)
	token := f.address("token", req.Token, common.Address{})
	amount := f.amount("amount", req.Amount)
	if f.err == nil && (amount == nil || amount.IsZero()) {
		f.err = fmt.Errorf("amount: must be positive")
	}
	if f.err != nil {
		s.badRequest(w, f.err)
		return
	}
	if err := s.ledger.Credit(token, to, amount); err != nil {
		s.fail(w, r, op, err)
		return
	}
	s.succeed(op)
	balance, err := s.ledger.Balance(token, to)
	if err != nil {
		s.fail(w, r, op, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse{Amount: balance.Dec()})
}
