package models

import "github.com/shopspring/decimal"

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionConfirmed TransactionStatus = "confirmed"
	TransactionCancelled TransactionStatus = "cancelled"
)

func (s TransactionStatus) Valid() bool {
	switch s {
	case TransactionPending, TransactionConfirmed, TransactionCancelled:
		return true
	}
	return false
}

func (s TransactionStatus) Terminal() bool {
	return s == TransactionConfirmed || s == TransactionCancelled
}

// CanTransitionTo: транзакция меняет статус только из pending.
func (s TransactionStatus) CanTransitionTo(next TransactionStatus) bool {
	return s == TransactionPending && next.Terminal()
}

type WithdrawalStatus string

const (
	WithdrawalPending    WithdrawalStatus = "pending"
	WithdrawalProcessing WithdrawalStatus = "processing"
	WithdrawalCompleted  WithdrawalStatus = "completed"
	WithdrawalFailed     WithdrawalStatus = "failed"
)

func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalPending, WithdrawalProcessing, WithdrawalCompleted, WithdrawalFailed:
		return true
	}
	return false
}

func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalCompleted || s == WithdrawalFailed
}

// CanTransitionTo описывает допустимые переходы заявки на вывод:
// pending -> processing|completed|failed, processing -> completed|failed.
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	switch s {
	case WithdrawalPending:
		return next == WithdrawalProcessing || next.Terminal()
	case WithdrawalProcessing:
		return next.Terminal()
	}
	return false
}

type WithdrawalMethod string

const (
	MethodUPI     WithdrawalMethod = "upi"
	MethodBank    WithdrawalMethod = "bank"
	MethodPaytm   WithdrawalMethod = "paytm"
	MethodVoucher WithdrawalMethod = "voucher"
)

var minimumWithdrawal = map[WithdrawalMethod]decimal.Decimal{
	MethodUPI:     decimal.NewFromInt(10),
	MethodPaytm:   decimal.NewFromInt(10),
	MethodBank:    decimal.NewFromInt(50),
	MethodVoucher: decimal.NewFromInt(100),
}

func (m WithdrawalMethod) Valid() bool {
	_, ok := minimumWithdrawal[m]
	return ok
}

// Minimum возвращает минимальную сумму вывода для метода; ok=false для неизвестного метода.
func (m WithdrawalMethod) Minimum() (decimal.Decimal, bool) {
	min, ok := minimumWithdrawal[m]
	return min, ok
}
