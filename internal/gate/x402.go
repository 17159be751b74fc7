package gate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"time"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/gate/receipt"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/matching"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/negotiate"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/sentinel"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/requestcontext"
)

// Config is passed through to the x402 payment requirements unchanged.
type Config struct {
	PayTo       string
	Network     string
	Price       string
	Asset       string
	Description string
	// Routes are path.Match patterns of metered paths.
	Routes     []string
	MaxTimeout time.Duration
}

// X402 gates requests behind an x402 payment, delegating verification and
// settlement to a facilitator. A settled browser navigation is answered with a
// redirect instead of the result, so it also yields a single-use receipt
// cookie, bound to the paid name, for the follow-up fetch from the results
// view. Data requests get their result in the settling response and no receipt.
type X402 struct {
	cfg         Config
	amount      string
	asset       string
	facilitator Facilitator
	issuer      *receipt.Issuer
	receipts    receipt.Store
	logger      *slog.Logger
}

// NewX402 validates cfg and builds the gate.
func NewX402(cfg Config, facilitator Facilitator, issuer *receipt.Issuer, receipts receipt.Store, logger *slog.Logger) (*X402, error) {
	if cfg.PayTo == "" {
		return nil, errors.New("x402 gate: receiver address is required")
	}
	if !issuer.HasSigningKey() {
		return nil, errors.New("x402 gate: receipt signing key is required")
	}
	if receipts == nil {
		return nil, errors.New("x402 gate: receipt store is required")
	}
	if len(cfg.Routes) == 0 {
		return nil, errors.New("x402 gate: at least one route is required")
	}
	for _, pattern := range cfg.Routes {
		if _, err := path.Match(pattern, "/"); err != nil {
			return nil, fmt.Errorf("x402 gate: bad route pattern %q: %w", pattern, err)
		}
	}
	amount, err := AtomicAmount(cfg.Price)
	if err != nil {
		return nil, fmt.Errorf("x402 gate: %w", err)
	}
	asset := cfg.Asset
	if asset == "" {
		asset = USDCAsset(cfg.Network)
	}
	if asset == "" {
		return nil, fmt.Errorf("x402 gate: no USDC asset known for network %q, set X402_ASSET", cfg.Network)
	}
	if cfg.MaxTimeout <= 0 {
		cfg.MaxTimeout = 60 * time.Second
	}
	return &X402{
		cfg:         cfg,
		amount:      amount,
		asset:       asset,
		facilitator: facilitator,
		issuer:      issuer,
		receipts:    receipts,
		logger:      logger,
	}, nil
}

// Check implements Gate.
func (g *X402) Check(ctx context.Context, r *http.Request) (Decision, error) {
	if !g.meters(r.URL.Path) {
		return Allow(ReasonUnmetered), nil
	}

	if d, ok, err := g.redeemReceipt(ctx, r); err != nil || ok {
		return d, err
	}

	requirements := g.Requirements(r)
	header := r.Header.Get(PaymentHeader)
	if header == "" {
		return g.deny(ReasonMissingPayment, "X-PAYMENT header is required", requirements, ""), nil
	}

	payload, err := DecodePaymentHeader(header)
	if err != nil {
		return g.deny(ReasonInvalidPayment, "Invalid or malformed payment header", requirements, ""), nil
	}

	verified, err := g.facilitator.Verify(ctx, payload, requirements)
	if err != nil {
		return Decision{}, fmt.Errorf("verify payment: %w", err)
	}
	if !verified.IsValid {
		return g.deny(ReasonVerifyRejected, verified.InvalidReason, requirements, verified.Payer), nil
	}

	settled, err := g.facilitator.Settle(ctx, payload, requirements)
	if err != nil {
		return Decision{}, fmt.Errorf("settle payment: %w", err)
	}
	if !settled.Success {
		return g.deny(ReasonSettleRejected, settled.ErrorReason, requirements, settled.Payer), nil
	}

	return g.allowSettled(ctx, r, settled)
}

// Requirements builds the payment requirements for the requested resource.
func (g *X402) Requirements(r *http.Request) PaymentRequirements {
	return PaymentRequirements{
		Scheme:            "exact",
		Network:           g.cfg.Network,
		MaxAmountRequired: g.amount,
		Resource:          resourceURL(r),
		Description:       g.cfg.Description,
		MimeType:          "application/json",
		PayTo:             g.cfg.PayTo,
		MaxTimeoutSeconds: int(g.cfg.MaxTimeout / time.Second),
		Asset:             g.asset,
	}
}

func (g *X402) meters(p string) bool {
	for _, pattern := range g.cfg.Routes {
		if ok, _ := path.Match(pattern, p); ok {
			return true
		}
	}
	return false
}

// paidName is the normalized name a GET request asks for. Receipts are only
// issued for and redeemed by GET requests.
func paidName(r *http.Request) (string, bool) {
	if r.Method != http.MethodGet {
		return "", false
	}
	return matching.NormalizeName(r.URL.Query().Get("name")), true
}

func (g *X402) redeemReceipt(ctx context.Context, r *http.Request) (Decision, bool, error) {
	cookie, err := r.Cookie(receipt.CookieName)
	if err != nil || cookie.Value == "" {
		return Decision{}, false, nil
	}
	name, ok := paidName(r)
	if !ok {
		return Decision{}, false, nil
	}

	now := requestcontext.Now(ctx)
	claims, err := g.issuer.Validate(cookie.Value, now, r.URL.Path, name)
	if err != nil {
		g.logger.DebugContext(ctx, "ignoring unusable receipt", "error", err)
		return Decision{}, false, nil
	}

	ttl := claims.ExpiresAt.Sub(now)
	if ttl < time.Second {
		ttl = time.Second
	}
	err = g.receipts.Redeem(ctx, claims.ID, ttl)
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		g.logger.InfoContext(ctx, "receipt already redeemed", "receipt_id", claims.ID)
		return Decision{}, false, nil
	case err != nil:
		return Decision{}, false, fmt.Errorf("redeem receipt: %w", err)
	}

	d := Allow(ReasonReceipt)
	d.Cookies = []*http.Cookie{expiredReceiptCookie(r)}
	return d, true, nil
}

func (g *X402) allowSettled(ctx context.Context, r *http.Request, settled *SettleResponse) (Decision, error) {
	encoded, err := json.Marshal(settled)
	if err != nil {
		return Decision{}, fmt.Errorf("encode settlement: %w", err)
	}

	d := Allow(ReasonSettled)
	d.Header = http.Header{}
	d.Header.Set(PaymentResponseHeader, base64.StdEncoding.EncodeToString(encoded))
	d.Header.Set("Access-Control-Expose-Headers", PaymentResponseHeader)

	name, ok := paidName(r)
	if !ok || negotiate.Preferred(r.Header.Get("Accept")) != negotiate.Document {
		g.logger.InfoContext(ctx, "payment settled",
			"request_id", requestcontext.RequestID(ctx),
			"network", settled.Network,
			"transaction", settled.Transaction,
		)
		return d, nil
	}

	token, claims, err := g.issuer.Issue(requestcontext.Now(ctx), r.URL.Path, name, settled.Transaction, settled.Network)
	if err != nil {
		return Decision{}, err
	}
	d.Cookies = []*http.Cookie{{
		Name:     receipt.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  claims.ExpiresAt.Time,
		MaxAge:   int(g.issuer.TTL() / time.Second),
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	}}

	g.logger.InfoContext(ctx, "payment settled, receipt issued for results view",
		"request_id", requestcontext.RequestID(ctx),
		"network", settled.Network,
		"transaction", settled.Transaction,
		"receipt_id", claims.ID,
	)
	return d, nil
}

func (g *X402) deny(reason, message string, req PaymentRequirements, payer string) Decision {
	if message == "" {
		message = "payment required"
	}
	return Deny(reason, Challenge{Body: PaymentRequiredResponse{
		X402Version: X402Version,
		Error:       message,
		Accepts:     []PaymentRequirements{req},
		Payer:       payer,
	}})
}

// DecodePaymentHeader decodes a base64 X-PAYMENT header.
func DecodePaymentHeader(header string) (PaymentPayload, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		if raw, err = base64.RawURLEncoding.DecodeString(header); err != nil {
			return PaymentPayload{}, fmt.Errorf("decode payment header: %w", err)
		}
	}
	var payload PaymentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return PaymentPayload{}, fmt.Errorf("decode payment header: %w", err)
	}
	if payload.X402Version == 0 || len(payload.Payload) == 0 {
		return PaymentPayload{}, errors.New("decode payment header: missing version or payload")
	}
	return payload, nil
}

// EncodePaymentHeader is the inverse of DecodePaymentHeader.
func EncodePaymentHeader(payload PaymentPayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func expiredReceiptCookie(r *http.Request) *http.Cookie {
	return &http.Cookie{
		Name:     receipt.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
	}
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}

func resourceURL(r *http.Request) string {
	scheme := "http"
	if isHTTPS(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.Path
}
