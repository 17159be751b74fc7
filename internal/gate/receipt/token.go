package receipt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/sentinel"
)

// CookieName is the cookie carrying a receipt between the settling request
// and the follow-up fetch from the results view.
const CookieName = "x402_receipt"

const tokenIssuer = "animal-x402-gate"

// Claims are the receipt token claims. Subject is the paid resource path and
// Name the normalized name the payment was made for.
type Claims struct {
	Name        string `json:"name"`
	Transaction string `json:"txn,omitempty"`
	Network     string `json:"net,omitempty"`
	jwt.RegisteredClaims
}

// Issuer signs and validates receipt tokens.
type Issuer struct {
	signingKey []byte
	ttl        time.Duration
}

// NewIssuer constructs an Issuer. Receipts expire after ttl. An empty
// signingKey yields an issuer that refuses to sign.
func NewIssuer(signingKey string, ttl time.Duration) *Issuer {
	return &Issuer{signingKey: []byte(signingKey), ttl: ttl}
}

// TTL returns the lifetime of issued receipts.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// HasSigningKey reports whether the issuer can sign and verify receipts.
func (i *Issuer) HasSigningKey() bool {
	return i != nil && len(i.signingKey) > 0
}

// Issue signs a receipt for name at resource, recording the settlement transaction.
func (i *Issuer) Issue(now time.Time, resource, name, transaction, network string) (string, *Claims, error) {
	if !i.HasSigningKey() {
		return "", nil, errors.New("sign receipt: no signing key")
	}
	claims := &Claims{
		Name:        name,
		Transaction: transaction,
		Network:     network,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   resource,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.signingKey)
	if err != nil {
		return "", nil, fmt.Errorf("sign receipt: %w", err)
	}
	return signed, claims, nil
}

// Validate parses a receipt for name at resource as of now. Expired tokens
// wrap sentinel.ErrExpired; anything else unusable, including a receipt paid
// for another name, wraps sentinel.ErrInvalidState.
func (i *Issuer) Validate(token string, now time.Time, resource, name string) (*Claims, error) {
	if !i.HasSigningKey() {
		return nil, fmt.Errorf("receipt: %w: no signing key", sentinel.ErrInvalidState)
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return i.signingKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithSubject(resource),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("receipt: %w", sentinel.ErrExpired)
		}
		return nil, fmt.Errorf("receipt: %w: %v", sentinel.ErrInvalidState, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.ID == "" {
		return nil, fmt.Errorf("receipt: %w", sentinel.ErrInvalidState)
	}
	if claims.Name != name {
		return nil, fmt.Errorf("receipt: %w: issued for another name", sentinel.ErrInvalidState)
	}
	return claims, nil
}
