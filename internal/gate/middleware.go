package gate

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/gate/metrics"
	dErrors "github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/domain-errors"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/httputil"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/privacy"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/requestcontext"
)

var tracer = otel.Tracer("github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/gate")

// Middleware runs g before next. Denials become 402 responses carrying the
// challenge, gate failures a generic 500, and next only runs once the gate
// has allowed the request.
func Middleware(g Gate, logger *slog.Logger, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(r.Context(), "gate.Check")
			requestID := requestcontext.RequestID(ctx)

			decision, err := g.Check(ctx, r)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, "gate check failed")
				span.End()
				m.IncrementFailure()
				logger.ErrorContext(ctx, "payment gate check failed",
					"request_id", requestID,
					"path", r.URL.Path,
					"ip_prefix", privacy.AnonymizeIP(requestcontext.ClientIP(ctx)),
					"error", err,
				)
				httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "payment gate unavailable"))
				return
			}
			span.SetAttributes(
				attribute.String("gate.outcome", decision.Outcome.String()),
				attribute.String("gate.reason", decision.Reason),
			)
			span.End()
			m.IncrementDecision(decision.Outcome.String(), decision.Reason)

			if !decision.Allowed() {
				logger.InfoContext(ctx, "payment required",
					"request_id", requestID,
					"path", r.URL.Path,
					"reason", decision.Reason,
				)
				writeChallenge(w, r, decision.Challenge)
				return
			}

			for key, values := range decision.Header {
				for _, v := range values {
					w.Header().Add(key, v)
				}
			}
			for _, c := range decision.Cookies {
				http.SetCookie(w, c)
			}
			logger.DebugContext(ctx, "payment gate allowed request",
				"request_id", requestID,
				"reason", decision.Reason,
			)
			next.ServeHTTP(w, r)
		})
	}
}
