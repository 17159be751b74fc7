package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/animals/metrics"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/matching"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/httputil"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/negotiate"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/matcher-mocks.go -package=mocks Matcher

// Matcher defines the matching operations the handler needs.
type Matcher interface {
	Match(userName string) matching.MatchResult
	Size() int
}

// ResultsPath is the human-facing results view that document requests are
// redirected to.
const ResultsPath = "/animals"

var tracer = otel.Tracer("github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/animals/handler")

// Handler serves animal matches. It expects the payment gate to run before it.
type Handler struct {
	matcher Matcher
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New constructs a retrieval handler with its dependencies.
func New(matcher Matcher, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		matcher: matcher,
		logger:  logger,
		metrics: metrics,
	}
}

// Register mounts the retrieval endpoints on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/api/animals", h.HandleGet)
	r.Post("/api/animals", h.HandlePost)
}

// HandleGet handles GET /api/animals?name=. Browsers asking for HTML are
// redirected to the results view, everyone else gets JSON.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, nameFromQuery(r), negotiate.Preferred(r.Header.Get("Accept")))
}

// HandlePost handles POST /api/animals with a {"name": ...} body. It always
// responds with JSON.
func (h *Handler) HandlePost(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, nameFromBody(r), negotiate.Data)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, name string, rep negotiate.Representation) {
	ctx, span := tracer.Start(r.Context(), "animals.Match")
	defer span.End()
	requestID := requestcontext.RequestID(ctx)

	defer func() {
		if rec := recover(); rec != nil {
			span.SetStatus(codes.Error, "panic")
			h.metrics.IncrementResponse(rep.String(), "error")
			h.logger.ErrorContext(ctx, "animal retrieval failed",
				"request_id", requestID,
				"panic", rec,
			)
			httputil.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: fetchFailedMessage})
		}
	}()

	start := time.Now()
	result := h.matcher.Match(name)
	h.metrics.ObserveMatch(result.TieCount, time.Since(start))
	span.SetAttributes(
		attribute.String("animals.representation", rep.String()),
		attribute.Int("animals.min_distance", result.MinDistance),
		attribute.Int("animals.tie_count", result.TieCount),
	)

	if rep == negotiate.Document {
		target := resultsURL(r.URL, result.NormalizedName)
		h.metrics.IncrementResponse(rep.String(), "redirect")
		h.logger.InfoContext(ctx, "redirecting browser to results view",
			"request_id", requestID,
			"location", target,
		)
		http.Redirect(w, r, target, http.StatusTemporaryRedirect)
		return
	}

	body, err := json.Marshal(FromResult(result, h.matcher.Size()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode response")
		h.metrics.IncrementResponse(rep.String(), "error")
		h.logger.ErrorContext(ctx, "encode animal response",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteJSON(w, http.StatusInternalServerError, ErrorResponse{Error: fetchFailedMessage})
		return
	}

	h.metrics.IncrementResponse(rep.String(), "ok")
	h.logger.InfoContext(ctx, "animal matched",
		"request_id", requestID,
		"animal", result.Selected.Name,
		"similarity_score", result.MinDistance,
		"closest_matches", result.TieCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

// resultsURL keeps the caller's other query parameters and replaces name with
// the normalized one.
func resultsURL(u *url.URL, normalizedName string) string {
	q := u.Query()
	q.Set("name", normalizedName)
	return (&url.URL{Path: ResultsPath, RawQuery: q.Encode()}).String()
}
