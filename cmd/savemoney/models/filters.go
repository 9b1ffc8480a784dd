package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionFilter struct {
	UserID uuid.UUID
	Status *TransactionStatus
	Limit  int
	Offset int
}

// PendingCursor указывает на последнюю просмотренную pending-транзакцию:
// следующая выборка начинается строго после пары (CreatedAt, ID).
type PendingCursor struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

type WithdrawalFilter struct {
	UserID *uuid.UUID
	Status *WithdrawalStatus
	Limit  int
	Offset int
}

// NewWithdrawal: уже провалидированная заявка, которую репозиторий
// создаёт вместе с резервированием суммы.
type NewWithdrawal struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	Method         WithdrawalMethod
	AccountDetails json.RawMessage
	RequestID      *string
}
