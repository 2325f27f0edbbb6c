package fulfillment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/locoganga/storefront/internal/infrastructure/retry"
)

// maxResponseSize is the maximum allowed response size from the Winit API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// Transport-level errors. Application code distinguishes these from
// RemoteError to decide whether an operation may be retried.
var (
	ErrUpstreamTimeout     = errors.New("winit: request timed out")
	ErrUpstreamUnavailable = errors.New("winit: upstream unavailable")
	ErrInvalidResponse     = errors.New("winit: invalid response")
)

// RemoteError is an application-level rejection from the Winit API
type RemoteError struct {
	Code string
	Msg  string
}

// Error implements the error interface
func (e *RemoteError) Error() string {
	return fmt.Sprintf("winit: remote error %s: %s", e.Code, e.Msg)
}

// IsTransient reports whether an error is worth retrying. Remote rejections
// are definitive; only transport failures and timeouts are transient.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout) || errors.Is(err, ErrUpstreamUnavailable)
}

// Client is the signed-RPC client for the Winit open platform. Read actions
// are retried per the configured policy; mutating actions are sent exactly
// once so a lost response never produces a duplicate shipment.
type Client struct {
	config     *WinitConfig
	httpClient *http.Client
	readPolicy retry.Policy
	logger     *zap.Logger
	now        func() time.Time
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithReadRetryPolicy overrides the retry policy applied to read actions
func WithReadRetryPolicy(p retry.Policy) ClientOption {
	return func(c *Client) {
		c.readPolicy = p
	}
}

// WithHTTPClient overrides the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClock overrides the timestamp source
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) {
		c.now = now
	}
}

// NewClient creates a new Winit client with the given configuration
func NewClient(config *WinitConfig, logger *zap.Logger, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: time.Duration(config.TimeoutSeconds) * time.Second,
		},
		readPolicy: retry.Default(IsTransient),
		logger:     logger.Named("winit"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// call performs one signed action request and returns the envelope data
func (c *Client) call(ctx context.Context, action string, payload any) (json.RawMessage, error) {
	// Marshal the payload exactly once; the signed bytes and the wire bytes
	// must be identical or the upstream rejects the signature.
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("winit: failed to marshal payload: %w", err)
	}

	params := map[string]string{
		"action":      action,
		"app_key":     c.config.AppKey,
		"data":        string(data),
		"format":      "json",
		"language":    "zh_CN",
		"platform":    c.config.Platform,
		"sign_method": "md5",
		"timestamp":   c.now().Format("2006-01-02 15:04:05"),
		"version":     "1.0",
	}

	reqBody := apiRequest{
		Action:     params["action"],
		AppKey:     params["app_key"],
		Data:       json.RawMessage(data),
		Format:     params["format"],
		Language:   params["language"],
		Platform:   params["platform"],
		Sign:       c.config.Sign(params),
		SignMethod: params["sign_method"],
		Timestamp:  params["timestamp"],
		Version:    params["version"],
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("winit: failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.APIBaseURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("winit: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamTimeout, action, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, action, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, action, err)
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: %s: HTTP %d", ErrUpstreamUnavailable, action, resp.StatusCode)
	}

	var envelope apiResponse
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidResponse, action, err)
	}

	c.logger.Debug("action completed",
		zap.String("action", action),
		zap.String("code", envelope.Code),
		zap.Duration("elapsed", time.Since(start)),
	)

	if envelope.Code != "0" {
		return nil, &RemoteError{Code: envelope.Code, Msg: envelope.Msg}
	}
	return envelope.Data, nil
}

// read performs a retryable read action
func (c *Client) read(ctx context.Context, action string, payload any, out any) error {
	return c.readPolicy.Do(ctx, func(ctx context.Context) error {
		data, err := c.call(ctx, action, payload)
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, action, err)
		}
		return nil
	})
}

// mutate performs a single-shot mutating action
func (c *Client) mutate(ctx context.Context, action string, payload any, out any) error {
	data, err := c.call(ctx, action, payload)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidResponse, action, err)
	}
	return nil
}

// ProductBaseList fetches one page of the base product catalog
func (c *Client) ProductBaseList(ctx context.Context, req ProductBaseListRequest) (*ProductBaseListResult, error) {
	var result ProductBaseListResult
	if err := c.read(ctx, actionProductBaseList, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// QuerySPUList fetches one page of priced SPU detail with inventory
func (c *Client) QuerySPUList(ctx context.Context, req SPUListRequest) (*SPUListResult, error) {
	var result SPUListResult
	if err := c.read(ctx, actionQuerySPUList, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Warehouses lists the fulfillment warehouses available to the distributor
func (c *Client) Warehouses(ctx context.Context) ([]Warehouse, error) {
	var result []Warehouse
	if err := c.read(ctx, actionQueryWarehouse, struct{}{}, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// DeliveryWays lists delivery methods for a warehouse
func (c *Client) DeliveryWays(ctx context.Context, warehouseCode string) ([]DeliveryWay, error) {
	payload := struct {
		WarehouseCode string `json:"warehouseCode"`
	}{WarehouseCode: warehouseCode}

	var result []DeliveryWay
	if err := c.read(ctx, actionQueryDelivery, payload, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateOutboundOrder creates an outbound shipment. Never retried; callers
// decide recovery based on the error class.
func (c *Client) CreateOutboundOrder(ctx context.Context, req OutboundOrderRequest) (*OutboundOrderResult, error) {
	var result OutboundOrderResult
	if err := c.mutate(ctx, actionOrderCreate, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ConfirmOutboundOrder confirms draft outbound orders for processing
func (c *Client) ConfirmOutboundOrder(ctx context.Context, orderNums ...string) error {
	return c.mutate(ctx, actionOrderConfirm, ConfirmOrderRequest{OrderNums: orderNums}, nil)
}

// VoidOutboundOrder cancels an outbound order upstream. Never retried.
func (c *Client) VoidOutboundOrder(ctx context.Context, orderNum string) error {
	return c.mutate(ctx, actionOrderVoid, VoidOrderRequest{OrderNum: orderNum}, nil)
}

// QueryOutboundOrder fetches the current upstream state of one outbound order
func (c *Client) QueryOutboundOrder(ctx context.Context, req OrderQueryRequest) (*OutboundOrderDetail, error) {
	var result OutboundOrderDetail
	if err := c.read(ctx, actionOrderQuery, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// QueryOutboundOrderList pages through outbound orders
func (c *Client) QueryOutboundOrderList(ctx context.Context, req OrderListRequest) (*OrderListResult, error) {
	var result OrderListResult
	if err := c.read(ctx, actionOrderQueryList, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// isTimeout reports whether a transport error is a timeout
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
