package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UserStatus string

const (
	UserStatusActive    UserStatus = "active"
	UserStatusSuspended UserStatus = "suspended"
)

// User хранит три баланса кэшбэка. Выведенное значение withdrawn не хранится.
type User struct {
	ID                uuid.UUID       `db:"id"`
	Email             string          `db:"email"`
	Status            UserStatus      `db:"status"`
	TotalCashback     decimal.Decimal `db:"total_cashback"`
	AvailableCashback decimal.Decimal `db:"available_cashback"`
	PendingCashback   decimal.Decimal `db:"pending_cashback"`
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

type Wallet struct {
	TotalCashback     decimal.Decimal `json:"totalCashback"`
	AvailableCashback decimal.Decimal `json:"availableCashback"`
	PendingCashback   decimal.Decimal `json:"pendingCashback"`
	WithdrawnCashback decimal.Decimal `json:"withdrawnCashback"`
}

type Transaction struct {
	ID             uuid.UUID         `db:"id" json:"id"`
	UserID         uuid.UUID         `db:"user_id" json:"userId"`
	StoreID        uuid.UUID         `db:"store_id" json:"storeId"`
	OfferID        *uuid.UUID        `db:"offer_id" json:"offerId,omitempty"`
	Amount         decimal.Decimal   `db:"amount" json:"amount"`
	CashbackEarned decimal.Decimal   `db:"cashback_earned" json:"cashbackEarned"`
	Status         TransactionStatus `db:"status" json:"status"`
	OrderID        string            `db:"order_id" json:"orderId"`
	CreatedAt      time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time         `db:"updated_at" json:"updatedAt"`
}

type Withdrawal struct {
	ID             uuid.UUID        `db:"id" json:"id"`
	UserID         uuid.UUID        `db:"user_id" json:"userId"`
	Amount         decimal.Decimal  `db:"amount" json:"amount"`
	Method         WithdrawalMethod `db:"method" json:"method"`
	AccountDetails json.RawMessage  `db:"account_details" json:"accountDetails"`
	Status         WithdrawalStatus `db:"status" json:"status"`
	AdminNotes     *string          `db:"admin_notes" json:"adminNotes,omitempty"`
	TransactionID  *string          `db:"transaction_id" json:"transactionId,omitempty"`
	RequestID      *string          `db:"request_id" json:"requestId,omitempty"`
	RequestDate    time.Time        `db:"request_date" json:"requestDate"`
	ProcessedDate  *time.Time       `db:"processed_date" json:"processedDate,omitempty"`
	UpdatedAt      time.Time        `db:"updated_at" json:"updatedAt"`
}

type WithdrawRequest struct {
	Amount         decimal.Decimal  `json:"amount"`
	Method         WithdrawalMethod `json:"method"`
	AccountDetails json.RawMessage  `json:"accountDetails"`
	RequestID      string           `json:"requestId,omitempty"`
}

type WithdrawalStatusRequest struct {
	Status        WithdrawalStatus `json:"status"`
	AdminNotes    *string          `json:"adminNotes,omitempty"`
	TransactionID *string          `json:"transactionId,omitempty"`
}

type PurchaseRequest struct {
	UserID         uuid.UUID       `json:"userId"`
	StoreID        uuid.UUID       `json:"storeId"`
	OfferID        *uuid.UUID      `json:"offerId,omitempty"`
	OrderID        string          `json:"orderId"`
	Amount         decimal.Decimal `json:"amount"`
	CashbackEarned decimal.Decimal `json:"cashbackEarned"`
}

type TransactionStatusRequest struct {
	Status TransactionStatus `json:"status"`
}

type Pagination struct {
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"totalPages"`
}

type TransactionPage struct {
	Transactions []Transaction `json:"transactions"`
	Pagination   Pagination    `json:"pagination"`
}

type WithdrawalPage struct {
	Withdrawals []Withdrawal `json:"withdrawals"`
	Pagination  Pagination   `json:"pagination"`
}
