package routers

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/auth"
	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/models"
	"github.com/AlexeySalamakhin/savemoney/cmd/savemoney/service"
)

const (
	maxBodyBytes       = 1 << 20
	healthCheckTimeout = 2 * time.Second
	idempotencyHeader  = "Idempotency-Key"
)

type WalletService interface {
	GetWallet(ctx context.Context, userID uuid.UUID) (models.Wallet, error)
	ListTransactions(ctx context.Context, userID uuid.UUID, q service.PageQuery, status *models.TransactionStatus) (*models.TransactionPage, error)
	RequestWithdrawal(ctx context.Context, userID uuid.UUID, req models.WithdrawRequest) (*models.Withdrawal, bool, error)
	ListWithdrawals(ctx context.Context, userID *uuid.UUID, q service.PageQuery, status *models.WithdrawalStatus) (*models.WithdrawalPage, error)
}

type AdminService interface {
	ListWithdrawals(ctx context.Context, userID *uuid.UUID, q service.PageQuery, status *models.WithdrawalStatus) (*models.WithdrawalPage, error)
	GetWithdrawal(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error)
	UpdateWithdrawalStatus(ctx context.Context, id uuid.UUID, upd models.WithdrawalStatusRequest) (*models.Withdrawal, error)
	RecordPurchase(ctx context.Context, p models.PurchaseRequest) (*models.Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status models.TransactionStatus) (*models.Transaction, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	WalletService WalletService
	AdminService  AdminService
	Health        Pinger
	Logger        *zap.Logger
}

func NewHandler(ledger *service.LedgerService, health Pinger, logger *zap.Logger) *Handler {
	return &Handler{WalletService: ledger, AdminService: ledger, Health: health, Logger: logger}
}

func (h *Handler) GetWalletHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.userFromRequest(w, r)
		if !ok {
			return
		}
		wallet, err := h.WalletService.GetWallet(r.Context(), userID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, wallet)
	}
}

func (h *Handler) GetTransactionsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.userFromRequest(w, r)
		if !ok {
			return
		}
		q, err := service.ParsePageQuery(r.URL.Query().Get("page"), r.URL.Query().Get("limit"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		status, err := service.ParseTransactionStatus(r.URL.Query().Get("status"))
		if err != nil {
			h.fail(w, r, err)
			return
		}
		page, err := h.WalletService.ListTransactions(r.Context(), userID, q, status)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func (h *Handler) WithdrawHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.userFromRequest(w, r)
		if !ok {
			return
		}
		var req models.WithdrawRequest
		if !h.decode(w, r, &req) {
			return
		}
		if key := strings.TrimSpace(r.Header.Get(idempotencyHeader)); key != "" {
			req.RequestID = key
		}
		withdrawal, replayed, err := h.WalletService.RequestWithdrawal(r.Context(), userID, req)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if replayed {
			writeJSON(w, http.StatusOK, withdrawal)
			return
		}
		writeJSON(w, http.StatusCreated, withdrawal)
	}
}

func (h *Handler) GetWithdrawalsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := h.userFromRequest(w, r)
		if !ok {
			return
		}
		q, status, ok := h.withdrawalQuery(w, r)
		if !ok {
			return
		}
		page, err := h.WalletService.ListWithdrawals(r.Context(), &userID, q, status)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func (h *Handler) AdminListWithdrawalsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, status, ok := h.withdrawalQuery(w, r)
		if !ok {
			return
		}
		var userID *uuid.UUID
		if s := r.URL.Query().Get("userId"); s != "" {
			id, err := uuid.Parse(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeValidation, "userId must be a UUID")
				return
			}
			userID = &id
		}
		page, err := h.AdminService.ListWithdrawals(r.Context(), userID, q, status)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func (h *Handler) AdminGetWithdrawalHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		withdrawal, err := h.AdminService.GetWithdrawal(r.Context(), id)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, withdrawal)
	}
}

func (h *Handler) AdminUpdateWithdrawalStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req models.WithdrawalStatusRequest
		if !h.decode(w, r, &req) {
			return
		}
		withdrawal, err := h.AdminService.UpdateWithdrawalStatus(r.Context(), id, req)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, withdrawal)
	}
}

func (h *Handler) AdminRecordPurchaseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.PurchaseRequest
		if !h.decode(w, r, &req) {
			return
		}
		tx, err := h.AdminService.RecordPurchase(r.Context(), req)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

func (h *Handler) AdminUpdateTransactionStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(w, r)
		if !ok {
			return
		}
		var req models.TransactionStatusRequest
		if !h.decode(w, r, &req) {
			return
		}
		tx, err := h.AdminService.UpdateTransactionStatus(r.Context(), id, req.Status)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, tx)
	}
}

func (h *Handler) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.Health != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := h.Health.Ping(ctx); err != nil {
				h.Logger.Error("БД недоступна", zap.Error(err))
				writeError(w, http.StatusInternalServerError, codeInternal, "database unavailable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// userFromRequest возвращает пользователя из контекста. Личность оператора
// без UUID пользователя к кошельковым маршрутам не допускается.
func (h *Handler) userFromRequest(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, codeUnauthorized, "authentication required")
		return uuid.Nil, false
	}
	if id.UserID == uuid.Nil {
		writeError(w, http.StatusForbidden, codeForbidden, "user token required")
		return uuid.Nil, false
	}
	return id.UserID, true
}

func (h *Handler) withdrawalQuery(w http.ResponseWriter, r *http.Request) (service.PageQuery, *models.WithdrawalStatus, bool) {
	q, err := service.ParsePageQuery(r.URL.Query().Get("page"), r.URL.Query().Get("limit"))
	if err != nil {
		h.fail(w, r, err)
		return service.PageQuery{}, nil, false
	}
	status, err := service.ParseWithdrawalStatus(r.URL.Query().Get("status"))
	if err != nil {
		h.fail(w, r, err)
		return service.PageQuery{}, nil, false
	}
	return q, status, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid request body")
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("Ошибка обработки запроса",
			zap.String("url", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		writeError(w, status, code, "internal server error")
		return
	}
	writeError(w, status, code, err.Error())
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, "id must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

type RouterOptions struct {
	Auth        *Authenticator
	Withdrawals *RateLimiter
	CORSOrigins []string
}

func SetupRoutersWithLogger(h *Handler, opts RouterOptions, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(LoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   opts.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", idempotencyHeader, adminKeyHeader},
		// браузеры отвергают credentials вместе с "*", а rs/cors в этом случае
		// отражает любой Origin: для wildcard куки и Authorization не разрешаем
		AllowCredentials: !slices.Contains(opts.CORSOrigins, "*"),
	}).Handler)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, codeValidation, "method not allowed")
	})

	r.Get("/health", h.HealthHandler())

	wallet := func(r chi.Router) {
		r.Use(opts.Auth.Middleware)
		r.Get("/", h.GetWalletHandler())
		r.Get("/transactions", h.GetTransactionsHandler())
		withdraw := h.WithdrawHandler()
		if opts.Withdrawals != nil {
			r.With(opts.Withdrawals.Limit).Post("/withdraw", withdraw)
		} else {
			r.Post("/withdraw", withdraw)
		}
		r.Get("/withdrawals", h.GetWithdrawalsHandler())
	}
	// /wallet и /api/wallet обслуживаются одними обработчиками и общим лимитером
	r.Route("/wallet", wallet)
	r.Route("/api/wallet", wallet)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(opts.Auth.Middleware)
		r.Use(RequireAdmin)
		r.Get("/withdrawals", h.AdminListWithdrawalsHandler())
		r.Get("/withdrawals/{id}", h.AdminGetWithdrawalHandler())
		r.Put("/withdrawals/{id}/status", h.AdminUpdateWithdrawalStatusHandler())
		r.Post("/transactions", h.AdminRecordPurchaseHandler())
		r.Put("/transactions/{id}/status", h.AdminUpdateTransactionStatusHandler())
	})
	return r
}
