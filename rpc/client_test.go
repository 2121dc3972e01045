package rpc

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nearaccount/account"
	accerrors "nearaccount/core/errors"
	"nearaccount/core/types"
)

var _ account.Provider = (*Client)(nil)

type recordedCall struct {
	Method string
	Params json.RawMessage
	Header http.Header
}

// fakeNode answers JSON-RPC calls from a per-method handler.
type fakeNode struct {
	mu       sync.Mutex
	calls    []recordedCall
	requests atomic.Int64
	handlers map[string]func(params json.RawMessage) (status int, body string)
}

func newFakeNode(t *testing.T) (*fakeNode, *httptest.Server) {
	t.Helper()
	node := &fakeNode{handlers: map[string]func(json.RawMessage) (int, string){}}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		node.requests.Add(1)
		payload, _ := io.ReadAll(r.Body)
		var req struct {
			JSONRPC string          `json:"jsonrpc"`
			ID      string          `json:"id"`
			Method  string          `json:"method"`
			Params  json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal(payload, &req); err != nil || req.JSONRPC != "2.0" || req.ID == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		node.mu.Lock()
		node.calls = append(node.calls, recordedCall{Method: req.Method, Params: req.Params, Header: r.Header.Clone()})
		handler := node.handlers[req.Method]
		node.mu.Unlock()
		if handler == nil {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		status, body := handler(req.Params)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(server.Close)
	return node, server
}

func (n *fakeNode) handle(method string, status int, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.handlers[method] = func(json.RawMessage) (int, string) { return status, body }
}

func (n *fakeNode) lastCall(t *testing.T) recordedCall {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.calls)
	return n.calls[len(n.calls)-1]
}

func result(body string) string {
	return `{"jsonrpc":"2.0","id":"x","result":` + body + `}`
}

const viewAccountResult = `{
	"amount": "399992611103597728750000000",
	"locked": "0",
	"code_hash": "11111111111111111111111111111111",
	"storage_usage": 642,
	"storage_paid_at": 0,
	"block_height": 17798231,
	"block_hash": "CcHwpKdebZAj1Zjj8gU7sV5ThB2xZxPcp1ACpebaR2hm"
}`

func TestNewClientValidatesEndpoint(t *testing.T) {
	for _, endpoint := range []string{"", "ftp://rpc.testnet.near.org", "http://", "://bad"} {
		_, err := NewClient(endpoint)
		require.Error(t, err, endpoint)
	}
	c, err := NewClient(" https://rpc.testnet.near.org ")
	require.NoError(t, err)
	require.Equal(t, "https://rpc.testnet.near.org", c.Endpoint())
}

func TestQueryEncodesParamsAndDecodesResult(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle(methodQuery, http.StatusOK, result(viewAccountResult))

	client, err := NewClient(server.URL, WithAPIKey("secret-key"))
	require.NoError(t, err)

	var state types.AccountState
	err = client.Query(context.Background(), map[string]string{
		"request_type": "view_account",
		"finality":     "optimistic",
		"account_id":   "alice.testnet",
	}, &state)
	require.NoError(t, err)
	require.Equal(t, "399992611103597728750000000", state.Amount)
	require.Equal(t, int64(642), state.StorageUsage)
	require.Equal(t, uint64(17798231), state.BlockHeight)

	call := node.lastCall(t)
	require.Equal(t, "query", call.Method)
	require.JSONEq(t, `{"request_type":"view_account","finality":"optimistic","account_id":"alice.testnet"}`, string(call.Params))
	require.Equal(t, "secret-key", call.Header.Get("x-api-key"))
	require.Equal(t, "application/json", call.Header.Get("Content-Type"))
}

func TestQueryNumericBlockIDIsSentAsHeight(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle(methodQuery, http.StatusOK, result(viewAccountResult))
	client, err := NewClient(server.URL)
	require.NoError(t, err)

	var state types.AccountState
	require.NoError(t, client.Query(context.Background(), map[string]string{
		"request_type": "view_account",
		"block_id":     "17798231",
		"account_id":   "alice.testnet",
	}, &state))
	require.JSONEq(t, `{"request_type":"view_account","block_id":17798231,"account_id":"alice.testnet"}`, string(node.lastCall(t).Params))
}

func TestProtocolConfigUsesBlockReference(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle(methodProtocolConfig, http.StatusOK, result(`{
		"protocol_version": 63,
		"chain_id": "testnet",
		"epoch_length": 43200,
		"runtime_config": {"storage_amount_per_byte": "10000000000000000000"}
	}`))
	client, err := NewClient(server.URL)
	require.NoError(t, err)

	cfg, err := client.ExperimentalProtocolConfig(context.Background(), types.AtFinality(types.FinalityFinal))
	require.NoError(t, err)
	cost, ok := cfg.StorageAmountPerByte()
	require.True(t, ok)
	require.Equal(t, "10000000000000000000", cost)
	require.Equal(t, "testnet", cfg.ChainID)
	require.JSONEq(t, `{"finality":"final"}`, string(node.lastCall(t).Params))

	_, err = client.ExperimentalProtocolConfig(context.Background(), types.BlockReference{})
	require.Error(t, err)
}

func TestStructuredUnknownAccountIsNotFound(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle(methodQuery, http.StatusOK, `{"jsonrpc":"2.0","id":"x","error":{
		"name":"HANDLER_ERROR",
		"cause":{"name":"UNKNOWN_ACCOUNT","info":{"requested_account_id":"ghost.testnet"}},
		"code":-32000,
		"message":"Server error",
		"data":"account ghost.testnet does not exist while viewing"
	}}`)
	client, err := NewClient(server.URL)
	require.NoError(t, err)

	var state types.AccountState
	err = client.Query(context.Background(), map[string]string{"request_type": "view_account"}, &state)
	require.ErrorIs(t, err, accerrors.ErrNotFound)
	require.Contains(t, err.Error(), "UNKNOWN_ACCOUNT")
}

func TestLegacyAccessKeyErrorIsNotFound(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle(methodQuery, http.StatusOK, result(`{
		"block_hash": "CcHwpKdebZAj1Zjj8gU7sV5ThB2xZxPcp1ACpebaR2hm",
		"block_height": 17798231,
		"error": "access key ed25519:11111111111111111111111111111111 does not exist while viewing",
		"logs": []
	}`))
	client, err := NewClient(server.URL)
	require.NoError(t, err)

	var key types.AccessKey
	err = client.Query(context.Background(), map[string]string{"request_type": "view_access_key"}, &key)
	require.ErrorIs(t, err, accerrors.ErrNotFound)
}

func TestOtherNodeErrorsAreProviderErrors(t *testing.T) {
	cases := map[string]struct {
		status int
		body   string
	}{
		"internal error": {
			status: http.StatusOK,
			body:   `{"jsonrpc":"2.0","id":"x","error":{"name":"INTERNAL_ERROR","cause":{"name":"INTERNAL_ERROR"},"code":-32000,"message":"Server error"}}`,
		},
		"http failure":   {status: http.StatusBadGateway, body: "upstream unavailable"},
		"garbage body":   {status: http.StatusOK, body: "not json"},
		"null result":    {status: http.StatusOK, body: result("null")},
		"status no body": {status: http.StatusServiceUnavailable, body: `{"jsonrpc":"2.0","id":"x"}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			node, server := newFakeNode(t)
			node.handle(methodQuery, tc.status, tc.body)
			client, err := NewClient(server.URL)
			require.NoError(t, err)

			var state types.AccountState
			err = client.Query(context.Background(), map[string]string{"request_type": "view_account"}, &state)
			require.ErrorIs(t, err, accerrors.ErrProvider)
			require.NotErrorIs(t, err, accerrors.ErrNotFound)
		})
	}
}

func TestUndecodableResultIsProviderError(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle(methodQuery, http.StatusOK, result(`{"amount": 12, "block_height": "high"}`))
	client, err := NewClient(server.URL)
	require.NoError(t, err)

	var state types.AccountState
	err = client.Query(context.Background(), map[string]string{"request_type": "view_account"}, &state)
	require.ErrorIs(t, err, accerrors.ErrProvider)
}

func TestTimeoutIsProviderError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(server.Close)
	t.Cleanup(func() { close(release) })

	client, err := NewClient(server.URL, WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	var status types.NodeStatus
	err = client.Call(context.Background(), methodStatus, []any{}, &status)
	require.ErrorIs(t, err, accerrors.ErrProvider)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle(methodStatus, http.StatusOK, result(`{"chain_id":"testnet","sync_info":{"latest_block_height":10,"latest_block_hash":"abc","syncing":false}}`))
	client, err := NewClient(server.URL, WithRateLimit(0.01, 1))
	require.NoError(t, err)

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	require.Equal(t, "testnet", status.ChainID)
	require.Equal(t, uint64(10), status.SyncInfo.LatestBlockHeight)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = client.Status(ctx)
	require.ErrorIs(t, err, accerrors.ErrProvider)
	require.Equal(t, int64(1), node.requests.Load())
}

func TestAccountBalanceOverJSONRPC(t *testing.T) {
	node, server := newFakeNode(t)
	node.handle(methodQuery, http.StatusOK, result(viewAccountResult))
	node.handle(methodProtocolConfig, http.StatusOK, result(`{"runtime_config":{"storage_amount_per_byte":"10000000000000000000"}}`))
	client, err := NewClient(server.URL)
	require.NoError(t, err)

	got, err := account.New(client, "alice.testnet").Balance(context.Background())
	require.NoError(t, err)
	require.Equal(t, &types.AccountBalance{
		Total:       "399992611103597728750000000",
		StateStaked: "6420000000000000000000",
		Staked:      "0",
		Available:   "399986191103597728750000000",
	}, got)
	require.Equal(t, int64(2), node.requests.Load())
}
