package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"

	accerrors "nearaccount/core/errors"
	"nearaccount/core/types"
	"nearaccount/gateway/middleware"
)

type stubProvider struct {
	responses map[string]string
	queryErr  error
	config    string
	lastQuery map[string]string
}

func (s *stubProvider) Query(_ context.Context, params map[string]string, result any) error {
	s.lastQuery = params
	if s.queryErr != nil {
		return s.queryErr
	}
	raw, ok := s.responses[params["request_type"]]
	if !ok {
		return accerrors.NotFound("account %s does not exist", params["account_id"])
	}
	return json.Unmarshal([]byte(raw), result)
}

func (s *stubProvider) ExperimentalProtocolConfig(context.Context, types.BlockReference) (*types.ProtocolConfig, error) {
	var cfg types.ProtocolConfig
	if err := json.Unmarshal([]byte(s.config), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type stubStatus struct {
	status *types.NodeStatus
	err    error
}

func (s stubStatus) Status(context.Context) (*types.NodeStatus, error) { return s.status, s.err }

func newStub() *stubProvider {
	return &stubProvider{
		responses: map[string]string{
			"view_account": `{"amount":"1000","locked":"10","storage_usage":182,"block_height":9}`,
			"view_access_key_list": `{"keys":[{"public_key":"ed25519:` + base58.Encode(make([]byte, 32)) +
				`","access_key":{"nonce":3,"permission":"FullAccess"}}]}`,
			"view_access_key": `{"nonce":3,"permission":"FullAccess","block_height":9}`,
		},
		config: `{"runtime_config":{"storage_amount_per_byte":"5"}}`,
	}
}

func newRouter(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	handler, err := New(cfg)
	require.NoError(t, err)
	return handler
}

func get(handler http.Handler, path string) *httptest.ResponseRecorder {
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
	return res
}

func TestNewRequiresProvider(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
}

func TestBalanceRoute(t *testing.T) {
	router := newRouter(t, Config{Provider: newStub()})

	res := get(router, "/v1/accounts/alice.near/balance")
	require.Equal(t, http.StatusOK, res.Code)
	require.JSONEq(t, `{"total":"1010","stateStaked":"910","staked":"10","available":"100"}`, res.Body.String())
}

func TestStateAndKeyRoutes(t *testing.T) {
	stub := newStub()
	router := newRouter(t, Config{Provider: stub})

	res := get(router, "/v1/accounts/alice.near/state")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"amount":"1000"`)
	require.Equal(t, "alice.near", stub.lastQuery["account_id"])

	res = get(router, "/v1/accounts/alice.near/keys")
	require.Equal(t, http.StatusOK, res.Code)
	require.Contains(t, res.Body.String(), `"permission":"FullAccess"`)

	publicKey := "ed25519:" + base58.Encode(make([]byte, 32))
	res = get(router, "/v1/accounts/alice.near/keys/"+publicKey)
	require.Equal(t, http.StatusOK, res.Code)
	require.Equal(t, publicKey, stub.lastQuery["public_key"])
}

func TestAccountRouteErrors(t *testing.T) {
	cases := []struct {
		name   string
		path   string
		mutate func(*stubProvider)
		want   int
	}{
		{name: "invalid account id", path: "/v1/accounts/Alice!/state", want: http.StatusBadRequest},
		{name: "invalid public key", path: "/v1/accounts/alice.near/keys/ed25519:xyz", want: http.StatusBadRequest},
		{name: "unknown account", path: "/v1/accounts/ghost.near/state", mutate: func(s *stubProvider) {
			delete(s.responses, "view_account")
		}, want: http.StatusNotFound},
		{name: "inconsistent snapshot", path: "/v1/accounts/alice.near/balance", mutate: func(s *stubProvider) {
			s.responses["view_account"] = `{"amount":"0","locked":"0","storage_usage":10,"block_height":9}`
		}, want: http.StatusUnprocessableEntity},
		{name: "provider failure", path: "/v1/accounts/alice.near/keys", mutate: func(s *stubProvider) {
			s.queryErr = accerrors.Provider("connection refused")
		}, want: http.StatusBadGateway},
		{name: "missing storage price", path: "/v1/accounts/alice.near/balance", mutate: func(s *stubProvider) {
			s.config = `{"runtime_config":null}`
		}, want: http.StatusBadGateway},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stub := newStub()
			if tc.mutate != nil {
				tc.mutate(stub)
			}
			res := get(newRouter(t, Config{Provider: stub}), tc.path)
			require.Equal(t, tc.want, res.Code, res.Body.String())
			require.Contains(t, res.Body.String(), `"error"`)
		})
	}
}

func TestHealthAndReadiness(t *testing.T) {
	router := newRouter(t, Config{Provider: newStub()})
	require.Equal(t, http.StatusOK, get(router, "/healthz").Code)
	require.Equal(t, http.StatusOK, get(router, "/readyz").Code)

	syncing := &types.NodeStatus{ChainID: "testnet"}
	syncing.SyncInfo.Syncing = true
	router = newRouter(t, Config{Provider: newStub(), Status: stubStatus{status: syncing}})
	require.Equal(t, http.StatusServiceUnavailable, get(router, "/readyz").Code)

	router = newRouter(t, Config{Provider: newStub(), Status: stubStatus{err: accerrors.Provider("down")}})
	require.Equal(t, http.StatusServiceUnavailable, get(router, "/readyz").Code)
}

func TestMetricsAndRateLimit(t *testing.T) {
	router := newRouter(t, Config{
		Provider:      newStub(),
		Observability: middleware.NewObservability(middleware.ObservabilityConfig{}, nil),
		RateLimiter:   middleware.NewRateLimiter(middleware.RateLimit{RequestsPerMinute: 60, Burst: 1}),
	})

	require.Equal(t, http.StatusOK, get(router, "/v1/accounts/alice.near/balance").Code)
	require.Equal(t, http.StatusTooManyRequests, get(router, "/v1/accounts/alice.near/balance").Code)
	require.Equal(t, http.StatusOK, get(router, "/healthz").Code, "health checks are not rate limited")

	res := get(router, "/metrics")
	require.Equal(t, http.StatusOK, res.Code)
	require.True(t, strings.Contains(res.Body.String(), "nearaccount_gateway_requests_total"))
	require.Contains(t, res.Body.String(), `route="/v1/accounts/{accountID}/balance"`)
}

func TestCORSPreflight(t *testing.T) {
	router := newRouter(t, Config{Provider: newStub(), CORS: middleware.CORSConfig{AllowedOrigins: []string{"https://wallet.example"}}})
	req := httptest.NewRequest(http.MethodOptions, "/v1/accounts/alice.near/balance", nil)
	req.Header.Set("Origin", "https://wallet.example")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusNoContent, res.Code)
	require.Equal(t, "https://wallet.example", res.Header().Get("Access-Control-Allow-Origin"))
}
