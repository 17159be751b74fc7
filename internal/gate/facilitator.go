package gate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/gate/metrics"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/sentinel"
)

// VerifyResponse is the facilitator's answer to /verify.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer,omitempty"`
}

// SettleResponse is the facilitator's answer to /settle. It is echoed to the
// client in the X-PAYMENT-RESPONSE header.
type SettleResponse struct {
	Success     bool   `json:"success"`
	ErrorReason string `json:"errorReason,omitempty"`
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
	Payer       string `json:"payer,omitempty"`
}

type facilitatorRequest struct {
	X402Version         int                 `json:"x402Version"`
	PaymentPayload      PaymentPayload      `json:"paymentPayload"`
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

// Facilitator verifies and settles payments on the gate's behalf.
type Facilitator interface {
	Verify(ctx context.Context, payload PaymentPayload, req PaymentRequirements) (*VerifyResponse, error)
	Settle(ctx context.Context, payload PaymentPayload, req PaymentRequirements) (*SettleResponse, error)
}

// HTTPFacilitator talks to a facilitator service over HTTP.
type HTTPFacilitator struct {
	baseURL string
	client  *http.Client
	breaker *circuitBreaker
	metrics *metrics.Metrics
}

// FacilitatorOption configures an HTTPFacilitator.
type FacilitatorOption func(*HTTPFacilitator)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) FacilitatorOption {
	return func(f *HTTPFacilitator) {
		if c != nil {
			f.client = c
		}
	}
}

// WithFacilitatorMetrics records call latencies.
func WithFacilitatorMetrics(m *metrics.Metrics) FacilitatorOption {
	return func(f *HTTPFacilitator) {
		f.metrics = m
	}
}

// NewHTTPFacilitator constructs a client for the facilitator at baseURL.
func NewHTTPFacilitator(baseURL string, opts ...FacilitatorOption) *HTTPFacilitator {
	f := &HTTPFacilitator{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		breaker: newCircuitBreaker(5, 3, 30*time.Second),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Verify asks the facilitator whether payload satisfies req.
func (f *HTTPFacilitator) Verify(ctx context.Context, payload PaymentPayload, req PaymentRequirements) (*VerifyResponse, error) {
	var out VerifyResponse
	if err := f.post(ctx, "verify", payload, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Settle asks the facilitator to execute the payment.
func (f *HTTPFacilitator) Settle(ctx context.Context, payload PaymentPayload, req PaymentRequirements) (*SettleResponse, error) {
	var out SettleResponse
	if err := f.post(ctx, "settle", payload, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (f *HTTPFacilitator) post(ctx context.Context, op string, payload PaymentPayload, req PaymentRequirements, out any) error {
	if !f.breaker.allow(time.Now()) {
		return fmt.Errorf("facilitator %s: %w: circuit open", op, sentinel.ErrUnavailable)
	}

	start := time.Now()
	err := f.do(ctx, op, payload, req, out)
	result := "ok"
	if err != nil {
		result = "error"
		f.breaker.recordFailure(time.Now())
	} else {
		f.breaker.recordSuccess()
	}
	f.metrics.ObserveFacilitator(op, result, time.Since(start))
	return err
}

func (f *HTTPFacilitator) do(ctx context.Context, op string, payload PaymentPayload, req PaymentRequirements, out any) error {
	body, err := json.Marshal(facilitatorRequest{
		X402Version:         X402Version,
		PaymentPayload:      payload,
		PaymentRequirements: req,
	})
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/"+op, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build %s request: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("facilitator %s: %w: %v", op, sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("facilitator %s: %w: status %d", op, sentinel.ErrUnavailable, resp.StatusCode)
	}
	// 4xx bodies still carry isValid/invalidReason for verify and settle.
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response (status %d): %w", op, resp.StatusCode, err)
	}
	return nil
}

// circuitBreaker stops calling the facilitator after consecutive failures.
// Once the cooldown passes it admits one trial call at a time (half-open) and
// closes again after successThreshold trials in a row succeed. A failed trial
// reopens it.
type circuitBreaker struct {
	mu               sync.Mutex
	state            circuitState
	failureCount     int
	successCount     int
	failureThreshold int
	successThreshold int
	cooldown         time.Duration
	openedAt         time.Time
	trialInFlight    bool
}

type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

func newCircuitBreaker(failureThreshold, successThreshold int, cooldown time.Duration) *circuitBreaker {
	return &circuitBreaker{
		state:            circuitClosed,
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		cooldown:         cooldown,
	}
}

// allow reports whether a call may go out now. In half-open it admits a
// single caller until that call reports back.
func (c *circuitBreaker) allow(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case circuitOpen:
		if now.Sub(c.openedAt) < c.cooldown {
			return false
		}
		c.state = circuitHalfOpen
		c.successCount = 0
		c.trialInFlight = true
		return true
	case circuitHalfOpen:
		if c.trialInFlight {
			return false
		}
		c.trialInFlight = true
		return true
	default:
		return true
	}
}

func (c *circuitBreaker) recordFailure(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case circuitHalfOpen:
		c.open(now)
	case circuitClosed:
		c.failureCount++
		if c.failureCount >= c.failureThreshold {
			c.open(now)
		}
	}
}

func (c *circuitBreaker) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case circuitHalfOpen:
		c.trialInFlight = false
		c.successCount++
		if c.successCount >= c.successThreshold {
			c.state = circuitClosed
			c.failureCount = 0
			c.successCount = 0
		}
	case circuitClosed:
		c.failureCount = 0
	}
}

func (c *circuitBreaker) open(now time.Time) {
	c.state = circuitOpen
	c.openedAt = now
	c.successCount = 0
	c.trialInFlight = false
}
