/**
 * @description
 * This file contains the HTTP handlers for the ledger-service's API endpoints.
 * Handlers are responsible for parsing incoming requests, calling the appropriate
 * methods on the account engine, and writing the HTTP response. They act as the
 * bridge between the web layer and the business logic layer.
 *
 * Error mapping: not-found conditions become 404, stateless argument violations
 * become 400, state conflicts (blocked account, insufficient balance, limit
 * exceeded, duplicate national id) become 409, throttled mutations become 429.
 *
 * @dependencies
 * - encoding/json, log, net/http: Standard Go libraries.
 * - github.com/go-chi/chi/v5: URL parameter extraction.
 * - internal/app, internal/domain, internal/store: For engine logic, models, and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tassi/ledger-service/internal/app"
	"github.com/tassi/ledger-service/internal/domain"
	"github.com/tassi/ledger-service/internal/store"
)

// birthDateLayout is the wire format for person birth dates.
const birthDateLayout = "2006-01-02"

// LedgerHandlers holds the account engine that handlers will use.
type LedgerHandlers struct {
	service *app.Service
}

// NewLedgerHandlers creates a new instance of LedgerHandlers.
func NewLedgerHandlers(service *app.Service) *LedgerHandlers {
	return &LedgerHandlers{service: service}
}

// CreatePersonHandler registers a new person in the person registry.
func (h *LedgerHandlers) CreatePersonHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreatePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.NationalID == "" {
		h.writeError(w, http.StatusBadRequest, "Name and national id are required")
		return
	}

	birthDate, err := time.Parse(birthDateLayout, req.BirthDate)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Birth date must be formatted as YYYY-MM-DD")
		return
	}

	person, err := h.service.RegisterPerson(r.Context(), &domain.Person{
		Name:       req.Name,
		NationalID: req.NationalID,
		BirthDate:  birthDate,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, person)
}

// ListPersonsHandler returns every registered person.
func (h *LedgerHandlers) ListPersonsHandler(w http.ResponseWriter, r *http.Request) {
	persons, err := h.service.ListPersons(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, persons)
}

// GetPersonHandler returns a single person by id.
func (h *LedgerHandlers) GetPersonHandler(w http.ResponseWriter, r *http.Request) {
	personID, ok := h.parseIDParam(w, r, "personID")
	if !ok {
		return
	}

	person, err := h.service.GetPerson(r.Context(), personID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, person)
}

// CreateAccountHandler opens a new account for an existing person.
func (h *LedgerHandlers) CreateAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	account, err := h.service.CreateAccount(r.Context(), req.PersonID, req.InitialDeposit, req.DailyWithdrawalLimit, req.AccountType)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, account)
}

// DepositHandler credits the account referenced in the URL.
func (h *LedgerHandlers) DepositHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseIDParam(w, r, "accountID")
	if !ok {
		return
	}

	var req domain.OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.service.Deposit(r.Context(), accountID, req.Amount); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// WithdrawHandler debits the account referenced in the URL.
func (h *LedgerHandlers) WithdrawHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseIDParam(w, r, "accountID")
	if !ok {
		return
	}

	var req domain.OperationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if _, err := h.service.Withdraw(r.Context(), accountID, req.Amount); err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, nil)
}

// GetBalanceHandler returns the account balance as a plain fixed-2 decimal body.
func (h *LedgerHandlers) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseIDParam(w, r, "accountID")
	if !ok {
		return
	}

	balance, err := h.service.GetBalance(r.Context(), accountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(balance.StringFixed(2)))
}

// BlockAccountHandler blocks the account and returns the updated record.
func (h *LedgerHandlers) BlockAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseIDParam(w, r, "accountID")
	if !ok {
		return
	}

	account, err := h.service.BlockAccount(r.Context(), accountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// UnblockAccountHandler reactivates the account and returns the updated record.
func (h *LedgerHandlers) UnblockAccountHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseIDParam(w, r, "accountID")
	if !ok {
		return
	}

	account, err := h.service.UnblockAccount(r.Context(), accountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, account)
}

// GetStatementHandler returns the account's transactions, newest first.
func (h *LedgerHandlers) GetStatementHandler(w http.ResponseWriter, r *http.Request) {
	accountID, ok := h.parseIDParam(w, r, "accountID")
	if !ok {
		return
	}

	statement, err := h.service.GetStatement(r.Context(), accountID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, statement)
}

// StatementByPeriodHandler is a declared extension point that has never been
// implemented; it answers 501 so clients can distinguish it from a bad route.
func (h *LedgerHandlers) StatementByPeriodHandler(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotImplemented, "Statement by period is not implemented")
}

func (h *LedgerHandlers) parseIDParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "Invalid id in URL")
		return 0, false
	}
	return id, true
}

func (h *LedgerHandlers) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrPersonNotFound):
		h.writeError(w, http.StatusNotFound, "Person not found")
	case errors.Is(err, store.ErrAccountNotFound):
		h.writeError(w, http.StatusNotFound, "Account not found")
	case errors.Is(err, app.ErrInvalidAmount):
		h.writeError(w, http.StatusBadRequest, "Amount must be positive")
	case errors.Is(err, store.ErrAccountBlocked):
		h.writeError(w, http.StatusConflict, "Account is blocked")
	case errors.Is(err, store.ErrAccountAlreadyBlocked):
		h.writeError(w, http.StatusConflict, "Account is already blocked")
	case errors.Is(err, store.ErrInsufficientBalance):
		h.writeError(w, http.StatusConflict, "Insufficient balance for withdrawal")
	case errors.Is(err, store.ErrWithdrawalLimitExceeded):
		h.writeError(w, http.StatusConflict, "Withdrawal amount exceeds daily limit")
	case errors.Is(err, store.ErrNationalIDTaken):
		h.writeError(w, http.StatusConflict, "National id is already registered")
	case errors.Is(err, app.ErrRateLimited):
		var rateLimited *app.RateLimitedError
		if errors.As(err, &rateLimited) && rateLimited.RetryAfterSeconds > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(rateLimited.RetryAfterSeconds))
		}
		h.writeError(w, http.StatusTooManyRequests, "Too many operations on this account. Please retry later.")
	default:
		log.Printf("level=error component=api msg=\"unhandled service error\" err=%v", err)
		h.writeError(w, http.StatusInternalServerError, "Unexpected server error")
	}
}

func (h *LedgerHandlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

func (h *LedgerHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
