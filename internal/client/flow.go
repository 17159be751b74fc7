// Package client drives the browser-side retrieval flow: request a match, hand
// off to the payment gate on the first 402, and retry exactly once when the
// caller comes back from paying.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/animals/handler"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/sentinel"
)

// State is a step of the retrieval flow.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateSuccess
	StatePaymentPending
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateSuccess:
		return "success"
	case StatePaymentPending:
		return "payment_pending"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// DefaultGraceDelay is the pause before retrying after a payment navigation.
const DefaultGraceDelay = time.Second

// Messages shown in the Failed state.
const (
	MessageNameRequired      = "Please enter your name"
	MessagePaymentIncomplete = "Payment required again after returning from payment. The payment may not have completed."
)

const retrievalPath = "/api/animals"

// Navigator leaves the page for url, where the gate presents its payment UI.
// It must not call back into the Flow.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, url string) error

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(ctx context.Context, url string) error {
	return f(ctx, url)
}

// Snapshot is the observable state of a Flow.
type Snapshot struct {
	State  State
	Name   string
	Result *handler.MatchResponse
	// Error is the user-facing message in StateFailed.
	Error string
	// Status is the last HTTP status seen, 0 before any response.
	Status int
}

// ShowForm reports whether the name input should be visible.
func (s Snapshot) ShowForm() bool {
	return s.State != StateSuccess
}

// Flow is one user's retrieval attempt. It is safe for concurrent use but
// only one request runs at a time.
type Flow struct {
	baseURL    *url.URL
	client     *http.Client
	navigator  Navigator
	graceDelay time.Duration
	logger     *slog.Logger

	mu    sync.Mutex
	state Snapshot
}

// Option configures a Flow.
type Option func(*Flow)

// WithHTTPClient sets the client. It should carry a cookie jar so receipts
// set by the gate are sent back.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Flow) {
		if c != nil {
			f.client = c
		}
	}
}

// WithGraceDelay overrides DefaultGraceDelay.
func WithGraceDelay(d time.Duration) Option {
	return func(f *Flow) {
		if d >= 0 {
			f.graceDelay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(f *Flow) {
		if l != nil {
			f.logger = l
		}
	}
}

// NewFlow builds a flow against the service at baseURL.
func NewFlow(baseURL string, navigator Navigator, opts ...Option) (*Flow, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", baseURL)
	}
	if navigator == nil {
		return nil, errors.New("navigator is required")
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	f := &Flow{
		baseURL:    u,
		client:     &http.Client{Jar: jar, Timeout: 30 * time.Second},
		navigator:  navigator,
		graceDelay: DefaultGraceDelay,
		logger:     slog.New(slog.DiscardHandler),
		state:      Snapshot{State: StateIdle},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Snapshot returns the current state.
func (f *Flow) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Submit starts a first attempt for name.
func (f *Flow) Submit(ctx context.Context, name string) (Snapshot, error) {
	name = strings.TrimSpace(name)
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state.State {
	case StateRequesting, StatePaymentPending:
		return f.state, fmt.Errorf("submit in state %s: %w", f.state.State, sentinel.ErrInvalidState)
	}
	if name == "" {
		f.state = Snapshot{State: StateFailed, Error: MessageNameRequired}
		return f.state, nil
	}
	f.state = Snapshot{State: StateRequesting, Name: name}
	f.fetch(ctx, name, false)
	return f.state, nil
}

// Resume retries once for name after the caller returns from a payment
// navigation. A second 402 is terminal.
func (f *Flow) Resume(ctx context.Context, name string) (Snapshot, error) {
	name = strings.TrimSpace(name)
	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state.State {
	case StateIdle, StatePaymentPending:
	default:
		return f.state, fmt.Errorf("resume in state %s: %w", f.state.State, sentinel.ErrInvalidState)
	}
	if name == "" {
		name = f.state.Name
	}
	if name == "" {
		f.state = Snapshot{State: StateFailed, Error: MessageNameRequired}
		return f.state, nil
	}
	f.state = Snapshot{State: StateRequesting, Name: name}

	if err := wait(ctx, f.graceDelay); err != nil {
		f.state = Snapshot{State: StateFailed, Name: name, Error: err.Error()}
		return f.state, nil
	}
	f.fetch(ctx, name, true)
	return f.state, nil
}

// fetch performs one retrieval request. Must be called while holding f.mu.
func (f *Flow) fetch(ctx context.Context, name string, isRetry bool) {
	target := f.retrievalURL(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		f.state = Snapshot{State: StateFailed, Name: name, Error: err.Error()}
		return
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.WarnContext(ctx, "retrieval request failed", "error", err)
		f.state = Snapshot{State: StateFailed, Name: name, Error: err.Error()}
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	switch {
	case resp.StatusCode == http.StatusOK:
		var result handler.MatchResponse
		if err := json.Unmarshal(body, &result); err != nil {
			f.state = Snapshot{State: StateFailed, Name: name, Status: resp.StatusCode, Error: fmt.Sprintf("decode response: %v", err)}
			return
		}
		f.state = Snapshot{State: StateSuccess, Name: name, Status: resp.StatusCode, Result: &result}

	case resp.StatusCode == http.StatusPaymentRequired && !isRetry:
		f.state = Snapshot{State: StatePaymentPending, Name: name, Status: resp.StatusCode}
		if err := f.navigator.Navigate(ctx, target); err != nil {
			f.state = Snapshot{State: StateFailed, Name: name, Status: resp.StatusCode, Error: fmt.Sprintf("open payment page: %v", err)}
		}

	case resp.StatusCode == http.StatusPaymentRequired:
		f.logger.WarnContext(ctx, "payment required after retry", "response", string(body))
		f.state = Snapshot{State: StateFailed, Name: name, Status: resp.StatusCode, Error: MessagePaymentIncomplete}

	default:
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		f.state = Snapshot{State: StateFailed, Name: name, Status: resp.StatusCode, Error: fmt.Sprintf("Error %d: %s", resp.StatusCode, text)}
	}
}

func (f *Flow) retrievalURL(name string) string {
	u := *f.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + retrievalPath
	u.RawQuery = url.Values{"name": []string{name}}.Encode()
	return u.String()
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
