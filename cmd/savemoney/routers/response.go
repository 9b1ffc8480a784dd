package routers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/service"
)

type envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	codeValidation   = "VALIDATION_ERROR"
	codeUnauthorized = "UNAUTHORIZED"
	codeInvalidToken = "INVALID_TOKEN"
	codeTokenExpired = "TOKEN_EXPIRED"
	codeForbidden    = "FORBIDDEN"
	codeRateLimited  = "RATE_LIMITED"
	codeNotFound     = "NOT_FOUND"
	codeInternal     = "INTERNAL_ERROR"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: true, Data: data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Success: false, Error: &errorBody{Code: code, Message: message}})
}

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{service.ErrValidation, http.StatusBadRequest, codeValidation},
	{service.ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
	{service.ErrInvalidMethod, http.StatusBadRequest, "INVALID_METHOD"},
	{service.ErrBelowMinimum, http.StatusBadRequest, "BELOW_MINIMUM"},
	{service.ErrInsufficientBalance, http.StatusBadRequest, "INSUFFICIENT_BALANCE"},
	{service.ErrInvalidAccountDetails, http.StatusBadRequest, "INVALID_ACCOUNT_DETAILS"},
	{service.ErrAccountSuspended, http.StatusForbidden, "ACCOUNT_SUSPENDED"},
	{service.ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{service.ErrWithdrawalNotFound, http.StatusNotFound, "WITHDRAWAL_NOT_FOUND"},
	{service.ErrTransactionNotFound, http.StatusNotFound, "TRANSACTION_NOT_FOUND"},
	{service.ErrIdempotencyConflict, http.StatusConflict, "IDEMPOTENCY_CONFLICT"},
	{service.ErrDuplicateOrder, http.StatusConflict, "DUPLICATE_ORDER"},
	{service.ErrInvalidTransition, http.StatusConflict, "INVALID_STATUS_TRANSITION"},
}

// errorStatus сопоставляет доменную ошибку с HTTP-статусом и кодом ответа.
// Всё нераспознанное, включая ErrUnavailable и ErrLedgerIntegrity, это 500.
func errorStatus(err error) (int, string) {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, codeInternal
}
