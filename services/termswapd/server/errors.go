package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"termswap/native/bank"
	nativecommon "termswap/native/common"
	"termswap/native/termswap"
)

type errorClass struct {
	target error
	status int
	code   string
}

// Order matters: ErrOverflow wraps ErrInvalidAmount and must be matched first.
var errorClasses = []errorClass{
	{termswap.ErrOverflow, http.StatusBadRequest, "overflow"},
	{termswap.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{termswap.ErrZeroAddress, http.StatusBadRequest, "zero_address"},
	{termswap.ErrInvalidRecipient, http.StatusBadRequest, "invalid_recipient"},
	{termswap.ErrIdenticalTokens, http.StatusBadRequest, "identical_tokens"},
	{bank.ErrZeroToken, http.StatusBadRequest, "zero_token"},
	{termswap.ErrPairNotFound, http.StatusNotFound, "pair_not_found"},
	{termswap.ErrPoolNotFound, http.StatusNotFound, "pool_not_found"},
	{termswap.ErrNoSuchDue, http.StatusNotFound, "no_such_due"},
	{termswap.ErrPairExists, http.StatusConflict, "pair_exists"},
	{termswap.ErrExpired, http.StatusConflict, "expired"},
	{termswap.ErrStillActive, http.StatusConflict, "still_active"},
	{termswap.ErrInvariantViolation, http.StatusUnprocessableEntity, "invariant_violation"},
	{termswap.ErrRatioMismatch, http.StatusUnprocessableEntity, "ratio_mismatch"},
	{termswap.ErrInsufficientLiquidity, http.StatusUnprocessableEntity, "insufficient_liquidity"},
	{bank.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
	{bank.ErrBalanceOverflow, http.StatusUnprocessableEntity, "balance_overflow"},
	{termswap.ErrUnauthorized, http.StatusForbidden, "unauthorized"},
	{nativecommon.ErrModulePaused, http.StatusServiceUnavailable, "module_paused"},
}

// classify maps an operation error onto an HTTP status and a stable code.
func classify(err error) (int, string) {
	for _, class := range errorClasses {
		if errors.Is(err, class.target) {
			return class.status, class.code
		}
	}
	return http.StatusInternalServerError, "internal"
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}
