package routes

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"nearaccount/account"
	accerrors "nearaccount/core/errors"
	"nearaccount/crypto"
)

type accountRoutes struct {
	provider account.Provider
	logger   *slog.Logger
	timeout  time.Duration
}

func (a *accountRoutes) handle(w http.ResponseWriter, r *http.Request) (*account.Account, context.Context, context.CancelFunc, bool) {
	id := chi.URLParam(r, "accountID")
	if err := account.ValidateID(id); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return nil, nil, nil, false
	}
	ctx, cancel := r.Context(), context.CancelFunc(func() {})
	if a.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
	}
	return account.New(a.provider, id, account.WithLogger(a.logger)), ctx, cancel, true
}

func (a *accountRoutes) state(w http.ResponseWriter, r *http.Request) {
	acct, ctx, cancel, ok := a.handle(w, r)
	if !ok {
		return
	}
	defer cancel()
	state, err := acct.ViewState(ctx)
	a.respond(w, acct, state, err)
}

func (a *accountRoutes) balance(w http.ResponseWriter, r *http.Request) {
	acct, ctx, cancel, ok := a.handle(w, r)
	if !ok {
		return
	}
	defer cancel()
	balance, err := acct.Balance(ctx)
	a.respond(w, acct, balance, err)
}

func (a *accountRoutes) keys(w http.ResponseWriter, r *http.Request) {
	acct, ctx, cancel, ok := a.handle(w, r)
	if !ok {
		return
	}
	defer cancel()
	list, err := acct.ViewAccessKeyList(ctx)
	a.respond(w, acct, list, err)
}

func (a *accountRoutes) key(w http.ResponseWriter, r *http.Request) {
	publicKey, err := crypto.ParsePublicKey(chi.URLParam(r, "publicKey"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	acct, ctx, cancel, ok := a.handle(w, r)
	if !ok {
		return
	}
	defer cancel()
	key, err := acct.ViewAccessKey(ctx, publicKey)
	a.respond(w, acct, key, err)
}

func (a *accountRoutes) respond(w http.ResponseWriter, acct *account.Account, payload any, err error) {
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			a.logger.Warn("account query failed",
				slog.String("account_id", acct.AccountID()),
				slog.Any("error", err))
		}
		writeError(w, status, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, accerrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, accerrors.ErrArithmetic):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
