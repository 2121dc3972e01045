// Package account binds an account identifier to a query provider and
// exposes read-only views of the account: its state, its access keys and its
// derived balance.
package account

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"nearaccount/core/balance"
	accerrors "nearaccount/core/errors"
	"nearaccount/core/types"
	"nearaccount/crypto"
)

const (
	requestViewAccount       = "view_account"
	requestViewAccessKey     = "view_access_key"
	requestViewAccessKeyList = "view_access_key_list"
)

// Provider executes typed queries against the chain.
type Provider interface {
	// Query issues a query request and decodes the response into result.
	Query(ctx context.Context, params map[string]string, result any) error
	// ExperimentalProtocolConfig returns the protocol config at the referenced block.
	ExperimentalProtocolConfig(ctx context.Context, ref types.BlockReference) (*types.ProtocolConfig, error)
}

// Option customises an Account.
type Option func(*Account)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Account) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// Account is an immutable handle on one on-chain account. It holds no
// mutable state and may be shared between goroutines.
type Account struct {
	provider  Provider
	accountID string
	logger    *slog.Logger
}

// New returns a handle for accountID backed by provider.
func New(provider Provider, accountID string, opts ...Option) *Account {
	a := &Account{
		provider:  provider,
		accountID: strings.TrimSpace(accountID),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With(slog.String("component", "account"), slog.String("account_id", a.accountID))
	return a
}

func (a *Account) AccountID() string { return a.accountID }

func (a *Account) Provider() Provider { return a.provider }

func (a *Account) queryParams(requestType string) map[string]string {
	params := types.AtFinality(types.FinalityOptimistic).QueryParams()
	params["request_type"] = requestType
	params["account_id"] = a.accountID
	return params
}

// ViewState fetches the account state at optimistic finality.
func (a *Account) ViewState(ctx context.Context) (*types.AccountState, error) {
	var state types.AccountState
	if err := a.provider.Query(ctx, a.queryParams(requestViewAccount), &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// ViewAccessKey fetches one access key registered to the account.
func (a *Account) ViewAccessKey(ctx context.Context, publicKey crypto.PublicKey) (*types.AccessKey, error) {
	if publicKey.IsZero() {
		return nil, fmt.Errorf("view access key: empty public key")
	}
	params := a.queryParams(requestViewAccessKey)
	params["public_key"] = publicKey.String()
	var key types.AccessKey
	if err := a.provider.Query(ctx, params, &key); err != nil {
		return nil, err
	}
	return &key, nil
}

// ViewAccessKeyList fetches every access key registered to the account. An
// account without keys yields an empty list.
func (a *Account) ViewAccessKeyList(ctx context.Context) (*types.AccountAccessKeyList, error) {
	list := types.AccountAccessKeyList{Keys: []types.AccountAccessKey{}}
	if err := a.provider.Query(ctx, a.queryParams(requestViewAccessKeyList), &list); err != nil {
		return nil, err
	}
	if list.Keys == nil {
		list.Keys = []types.AccountAccessKey{}
	}
	return &list, nil
}

// Balance fetches the protocol config at final finality and the account
// state concurrently, then derives the balance breakdown. The first failing
// fetch cancels the other and its error is returned unchanged.
func (a *Account) Balance(ctx context.Context) (*types.AccountBalance, error) {
	var (
		config *types.ProtocolConfig
		state  *types.AccountState
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cfg, err := a.provider.ExperimentalProtocolConfig(gctx, types.AtFinality(types.FinalityFinal))
		if err != nil {
			return err
		}
		config = cfg
		return nil
	})
	g.Go(func() error {
		st, err := a.ViewState(gctx)
		if err != nil {
			return err
		}
		state = st
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Debug("balance fetch failed", slog.Any("error", err))
		return nil, err
	}

	costPerByte, ok := config.StorageAmountPerByte()
	if !ok {
		return nil, accerrors.ErrProtocolConfig
	}
	result, err := balance.Compute(state, costPerByte)
	if err != nil {
		a.logger.Warn("balance calculation failed",
			slog.Uint64("block_height", state.BlockHeight),
			slog.Any("error", err))
		return nil, err
	}
	return result, nil
}
