// Package rpc implements the account query provider over the node's
// JSON-RPC HTTP interface.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	accerrors "nearaccount/core/errors"
	"nearaccount/core/types"
	"nearaccount/observability"
	"nearaccount/observability/logging"
)

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 32 << 20

	methodQuery          = "query"
	methodProtocolConfig = "EXPERIMENTAL_protocol_config"
	methodStatus         = "status"
)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client. Its transport is used as is.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithTimeout bounds each HTTP round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithAPIKey sends key in the x-api-key header of every request.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = strings.TrimSpace(key)
	}
}

// WithRateLimit caps outgoing calls at rps with the given burst. A
// non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithLogger sets the logger for call diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is a JSON-RPC provider. It is safe for concurrent use and never
// retries; failures surface to the caller.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	apiKey   string
	limiter  *rate.Limiter
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewClient returns a provider for the node at endpoint.
func NewClient(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse rpc endpoint: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("rpc endpoint %q must use http or https", endpoint)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("rpc endpoint %q has no host", endpoint)
	}
	c := &Client{
		endpoint: endpoint,
		timeout:  defaultTimeout,
		logger:   slog.Default(),
		tracer:   otel.Tracer("nearaccount/rpc"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{
			Timeout:   c.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	c.logger = c.logger.With(
		slog.String("component", "rpc"),
		slog.String("endpoint", endpoint),
		logging.MaskField("api_key", c.apiKey),
	)
	return c, nil
}

// Endpoint returns the node URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Query issues a query request. A numeric block_id is sent as a height.
func (c *Client) Query(ctx context.Context, params map[string]string, result any) error {
	body := make(map[string]any, len(params))
	for k, v := range params {
		body[k] = v
	}
	if id, ok := params["block_id"]; ok {
		if height, err := strconv.ParseUint(id, 10, 64); err == nil {
			body["block_id"] = height
		}
	}
	return c.Call(ctx, methodQuery, body, result)
}

// ExperimentalProtocolConfig fetches the protocol config at ref.
func (c *Client) ExperimentalProtocolConfig(ctx context.Context, ref types.BlockReference) (*types.ProtocolConfig, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	var cfg types.ProtocolConfig
	if err := c.Call(ctx, methodProtocolConfig, ref.Params(), &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Status fetches the node's chain id and sync position.
func (c *Client) Status(ctx context.Context) (*types.NodeStatus, error) {
	var status types.NodeStatus
	if err := c.Call(ctx, methodStatus, []any{}, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// Call performs one JSON-RPC call and decodes the result into result.
func (c *Client) Call(ctx context.Context, method string, params any, result any) (err error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "rpc."+method, trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("rpc.method", method)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.logger.Debug("rpc call failed", slog.String("method", method), slog.Any("error", err))
		}
		span.End()
		observability.ProviderMetrics().Observe(method, err, time.Since(start))
	}()

	if c.limiter != nil {
		waitStart := time.Now()
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%w: %s: rate limiter: %w", accerrors.ErrProvider, method, err)
		}
		observability.ProviderMetrics().RecordThrottle(method, time.Since(waitStart))
	}

	raw, err := c.roundTrip(ctx, method, params)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("rpc.response_bytes", len(raw)))

	var legacy legacyQueryError
	if json.Unmarshal(raw, &legacy) == nil && legacy.Error != nil {
		return classifyLegacy(method, *legacy.Error)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return accerrors.Provider("%s: decode result: %v", method, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method string, params any) (json.RawMessage, error) {
	payload, err := json.Marshal(RPCRequest{
		JSONRPC: jsonRPCVersion,
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, accerrors.Provider("%s: encode request: %v", method, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, accerrors.Provider("%s: build request: %v", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: POST %s: %w", accerrors.ErrProvider, method, c.endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read response: %w", accerrors.ErrProvider, method, err)
	}

	var rpcResp RPCResponse
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, accerrors.Provider("%s: http status %d", method, resp.StatusCode)
		}
		return nil, accerrors.Provider("%s: decode response: %v", method, err)
	}
	if rpcResp.Error != nil {
		return nil, classify(method, rpcResp.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, accerrors.Provider("%s: http status %d", method, resp.StatusCode)
	}
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return nil, accerrors.Provider("%s: empty result", method)
	}
	return rpcResp.Result, nil
}
