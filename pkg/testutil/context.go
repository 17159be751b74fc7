package testutil

import (
	"net/http"
	"time"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/requestcontext"
)

// WithClientIP sets the client IP the metadata middleware would extract.
func WithClientIP(req *http.Request, ip string) *http.Request {
	return req.WithContext(requestcontext.WithClientIP(req.Context(), ip))
}

// WithRequestTime pins the request time seen by handlers, the payment gate and
// the rate limiter.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
