// Package gate decides whether a request to a paid route may proceed.
//
// A Gate is a pure decision over a request: Allow (optionally with response
// headers and cookies to attach) or Deny with a payment challenge. The HTTP
// plumbing lives in Middleware, which never calls the wrapped handler before
// the gate has answered.
package gate

import (
	"context"
	"net/http"
)

// Outcome of a gate check.
type Outcome int

const (
	Denied Outcome = iota
	Allowed
)

func (o Outcome) String() string {
	if o == Allowed {
		return "allowed"
	}
	return "denied"
}

// Reasons recorded on decisions for logs and metrics.
const (
	ReasonDisabled       = "disabled"
	ReasonUnmetered      = "unmetered_route"
	ReasonReceipt        = "receipt"
	ReasonSettled        = "settled"
	ReasonMissingPayment = "missing_payment"
	ReasonInvalidPayment = "invalid_payment"
	ReasonVerifyRejected = "verify_rejected"
	ReasonSettleRejected = "settle_rejected"
)

// Challenge is the payment-required response body and headers. Its contents
// are opaque to everything but the gate that produced it.
type Challenge struct {
	Body   any
	Header http.Header
}

// Decision is the result of a gate check.
type Decision struct {
	Outcome   Outcome
	Reason    string
	Challenge *Challenge
	// Header and Cookies are attached to the response when the request is allowed.
	Header  http.Header
	Cookies []*http.Cookie
}

// Allow lets the request through.
func Allow(reason string) Decision {
	return Decision{Outcome: Allowed, Reason: reason}
}

// Deny stops the request with a payment challenge.
func Deny(reason string, challenge Challenge) Decision {
	return Decision{Outcome: Denied, Reason: reason, Challenge: &challenge}
}

// Allowed reports whether the request may proceed.
func (d Decision) Allowed() bool {
	return d.Outcome == Allowed
}

// Gate inspects a request and decides. A non-nil error means the gate could
// not reach a decision (for example the facilitator was unreachable).
type Gate interface {
	Check(ctx context.Context, r *http.Request) (Decision, error)
}

// Func adapts a function to the Gate interface.
type Func func(ctx context.Context, r *http.Request) (Decision, error)

// Check calls f.
func (f Func) Check(ctx context.Context, r *http.Request) (Decision, error) {
	return f(ctx, r)
}

// AllowAll is a gate for demo mode that lets every request through.
type AllowAll struct{}

// Check always allows.
func (AllowAll) Check(context.Context, *http.Request) (Decision, error) {
	return Allow(ReasonDisabled), nil
}
