package service

import (
	"errors"
	"fmt"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/db"
)

var (
	ErrValidation            = errors.New("invalid request")
	ErrInvalidAmount         = errors.New("amount must be a positive number with at most 2 decimal places")
	ErrInvalidMethod         = errors.New("unknown withdrawal method")
	ErrBelowMinimum          = errors.New("amount is below the minimum for this withdrawal method")
	ErrInsufficientBalance   = errors.New("insufficient available cashback")
	ErrInvalidAccountDetails = errors.New("account details are missing or invalid for this method")
	ErrAccountSuspended      = errors.New("account is suspended")
	ErrUserNotFound          = errors.New("user not found")
	ErrWithdrawalNotFound    = errors.New("withdrawal not found")
	ErrTransactionNotFound   = errors.New("transaction not found")
	ErrIdempotencyConflict   = errors.New("request id already used with a different payload")
	ErrDuplicateOrder        = errors.New("order already tracked for this store")
	ErrInvalidTransition     = errors.New("status transition not allowed")
	ErrLedgerIntegrity       = errors.New("ledger integrity violation")
	ErrUnavailable           = errors.New("storage unavailable")
)

// storeError переводит ошибки хранилища в доменные. notFound задаёт, какой
// сущности не нашлось; всё нераспознанное считается временной недоступностью.
func storeError(err error, notFound error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, db.ErrUserNotFound):
		return ErrUserNotFound
	case errors.Is(err, db.ErrNotFound):
		return notFound
	case errors.Is(err, db.ErrUserSuspended):
		return ErrAccountSuspended
	case errors.Is(err, db.ErrInsufficientBalance):
		return ErrInsufficientBalance
	case errors.Is(err, db.ErrInvalidTransition):
		return ErrInvalidTransition
	case errors.Is(err, db.ErrBalanceConstraint):
		return fmt.Errorf("%w: %w", ErrLedgerIntegrity, err)
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, err)
}
