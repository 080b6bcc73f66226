package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/ivolkov/moneyflow/internal/api/middleware"
	"github.com/ivolkov/moneyflow/internal/domain"
	"github.com/ivolkov/moneyflow/internal/ledger"
	"github.com/ivolkov/moneyflow/internal/store"
	"github.com/ivolkov/moneyflow/internal/syncer"
)

const dateLayout = "2006-01-02"

// writeServiceError maps a service error to an HTTP response.
func writeServiceError(w http.ResponseWriter, log zerolog.Logger, err error, fallback string) {
	var invariantErr *ledger.BalanceInvariantError
	var refreshErr *syncer.ConnectionRefreshError

	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, store.ErrDuplicate):
		middleware.WriteError(w, http.StatusConflict, "Already exists")
	case errors.Is(err, store.ErrAccountLinked):
		middleware.WriteError(w, http.StatusConflict, "Account is linked to a bank connection; disconnect it first")
	case errors.Is(err, ledger.ErrSyncedImmutable):
		middleware.WriteError(w, http.StatusConflict, "Synced transactions cannot be modified")
	case errors.As(err, &invariantErr):
		middleware.WriteError(w, http.StatusUnprocessableEntity, invariantErr.Error())
	case errors.As(err, &refreshErr):
		middleware.WriteError(w, http.StatusBadGateway, "Bank connection needs to be re-authenticated")
	default:
		log.Error().Err(err).Msg(fallback)
		middleware.WriteError(w, http.StatusInternalServerError, fallback)
	}
}

// ConnectionsHandler handles bank connection endpoints.
type ConnectionsHandler struct {
	syncer *syncer.Service
	log    zerolog.Logger
}

// NewConnectionsHandler creates a new connections handler.
func NewConnectionsHandler(s *syncer.Service, log zerolog.Logger) *ConnectionsHandler {
	return &ConnectionsHandler{syncer: s, log: log}
}

// GetAuthURL handles GET /api/connections/auth-url
func (h *ConnectionsHandler) GetAuthURL(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"auth_url": h.syncer.GetAuthorizationURL(userID),
	})
}

// Callback handles GET /api/connections/callback
//
// This is the provider's redirect target, so the user arrives in the
// state parameter rather than a header.
func (h *ConnectionsHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		h.log.Warn().Str("provider_error", errParam).Msg("Authorization denied at provider")
		middleware.WriteError(w, http.StatusBadRequest, "Authorization was denied")
		return
	}

	code := query.Get("code")
	userID := query.Get("state")
	if code == "" || userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "code and state are required")
		return
	}

	result, err := h.syncer.HandleCallback(r.Context(), userID, code)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to complete bank connection")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// ListConnections handles GET /api/connections
func (h *ConnectionsHandler) ListConnections(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	connections, err := h.syncer.ListConnections(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list connections")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"connections": connections,
		"count":       len(connections),
	})
}

// GetConnection handles GET /api/connections/{id}
func (h *ConnectionsHandler) GetConnection(w http.ResponseWriter, r *http.Request, connectionID string) {
	userID := middleware.UserID(r.Context())

	conn, err := h.syncer.GetConnection(r.Context(), userID, connectionID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get connection")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, conn)
}

// SyncConnection handles POST /api/connections/{id}/sync
func (h *ConnectionsHandler) SyncConnection(w http.ResponseWriter, r *http.Request, connectionID string) {
	userID := middleware.UserID(r.Context())

	var from, to time.Time
	query := r.URL.Query()
	if v := query.Get("from"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid from date")
			return
		}
		from = parsed
	}
	if v := query.Get("to"); v != "" {
		parsed, err := time.Parse(dateLayout, v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid to date")
			return
		}
		to = parsed
	}

	result, err := h.syncer.SyncConnection(r.Context(), userID, connectionID, from, to)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to sync connection")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// DeleteConnection handles DELETE /api/connections/{id}
func (h *ConnectionsHandler) DeleteConnection(w http.ResponseWriter, r *http.Request, connectionID string) {
	userID := middleware.UserID(r.Context())

	if err := h.syncer.DeleteConnection(r.Context(), userID, connectionID); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete connection")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// AccountsHandler handles account endpoints.
type AccountsHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(l *ledger.Service, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{ledger: l, log: log}
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	accounts, err := h.ledger.ListAccounts(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list accounts")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// CreateAccount handles POST /api/accounts
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var input ledger.AccountInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if input.Name == "" || input.Type == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name and type are required")
		return
	}

	account, err := h.ledger.CreateAccount(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create account")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, account)
}

// GetAccount handles GET /api/accounts/{id}
func (h *AccountsHandler) GetAccount(w http.ResponseWriter, r *http.Request, accountID string) {
	userID := middleware.UserID(r.Context())

	account, err := h.ledger.GetAccount(r.Context(), userID, accountID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get account")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, account)
}

// DeleteAccount handles DELETE /api/accounts/{id}
func (h *AccountsHandler) DeleteAccount(w http.ResponseWriter, r *http.Request, accountID string) {
	userID := middleware.UserID(r.Context())

	if err := h.ledger.DeleteAccount(r.Context(), userID, accountID); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete account")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	ledger *ledger.Service
	log    zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(l *ledger.Service, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{ledger: l, log: log}
}

// ListTransactions handles GET /api/transactions
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	query := r.URL.Query()
	filter := store.TransactionFilter{
		AccountID: query.Get("account_id"),
		Type:      domain.TransactionType(query.Get("type")),
		Category:  query.Get("category"),
	}

	if v := query.Get("start_date"); v != "" {
		start, err := time.Parse(dateLayout, v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid start_date format")
			return
		}
		filter.Start = start
	}
	if v := query.Get("end_date"); v != "" {
		end, err := time.Parse(dateLayout, v)
		if err != nil {
			middleware.WriteError(w, http.StatusBadRequest, "Invalid end_date format")
			return
		}
		filter.End = end
	}
	if v := query.Get("limit"); v != "" {
		if limit, err := strconv.Atoi(v); err == nil {
			filter.Limit = limit
		}
	}
	if v := query.Get("offset"); v != "" {
		if offset, err := strconv.Atoi(v); err == nil {
			filter.Offset = offset
		}
	}

	transactions, err := h.ledger.ListTransactions(r.Context(), userID, filter)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to list transactions")
		return
	}

	if transactions == nil {
		transactions = []*domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID := middleware.UserID(r.Context())

	var input ledger.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if input.AccountID == "" || input.Type == "" {
		middleware.WriteError(w, http.StatusBadRequest, "accountId and type are required")
		return
	}

	tx, err := h.ledger.CreateTransaction(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to create transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// GetTransaction handles GET /api/transactions/{id}
func (h *TransactionsHandler) GetTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	userID := middleware.UserID(r.Context())

	tx, err := h.ledger.GetTransaction(r.Context(), userID, transactionID)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to get transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// UpdateTransaction handles PUT /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	userID := middleware.UserID(r.Context())

	var input ledger.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	tx, err := h.ledger.UpdateTransaction(r.Context(), userID, transactionID, input)
	if err != nil {
		writeServiceError(w, h.log, err, "Failed to update transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, tx)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request, transactionID string) {
	userID := middleware.UserID(r.Context())

	if err := h.ledger.DeleteTransaction(r.Context(), userID, transactionID); err != nil {
		writeServiceError(w, h.log, err, "Failed to delete transaction")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
