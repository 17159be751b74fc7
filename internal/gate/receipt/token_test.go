package receipt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/platform/sentinel"
)

const (
	testKey      = "receipt-signing-key-for-tests"
	testResource = "/api/animals"
	testName     = "Anna"
)

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := NewIssuer(testKey, 5*time.Minute)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	token, issued, err := issuer.Issue(now, testResource, testName, "5xTx", "solana-devnet")
	require.NoError(t, err)
	require.NotEmpty(t, issued.ID)

	claims, err := issuer.Validate(token, now.Add(time.Minute), testResource, testName)
	require.NoError(t, err)
	assert.Equal(t, issued.ID, claims.ID)
	assert.Equal(t, "5xTx", claims.Transaction)
	assert.Equal(t, "solana-devnet", claims.Network)
	assert.Equal(t, testResource, claims.Subject)
	assert.Equal(t, testName, claims.Name)
}

func TestIssuer_Rejects(t *testing.T) {
	issuer := NewIssuer(testKey, time.Minute)
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	token, _, err := issuer.Issue(now, testResource, testName, "", "")
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		_, err := issuer.Validate(token, now.Add(2*time.Minute), testResource, testName)
		assert.ErrorIs(t, err, sentinel.ErrExpired)
	})

	t.Run("other resource", func(t *testing.T) {
		_, err := issuer.Validate(token, now, "/api/other", testName)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("other name", func(t *testing.T) {
		_, err := issuer.Validate(token, now, testResource, "Bob")
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := NewIssuer("a-completely-different-key", time.Minute)
		_, err := other.Validate(token, now, testResource, testName)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := issuer.Validate("not.a.jwt", now, testResource, testName)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})

	t.Run("none algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
			Name: testName,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   testResource,
				Issuer:    tokenIssuer,
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
				ID:        "forged",
			},
		})
		forged, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = issuer.Validate(forged, now, testResource, testName)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	})
}

func TestIssuer_WithoutSigningKey(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	keyless := NewIssuer("", time.Minute)
	assert.False(t, keyless.HasSigningKey())

	_, _, err := keyless.Issue(now, testResource, testName, "", "")
	assert.Error(t, err)

	// A token signed with an empty HMAC key must not validate either.
	unsafe := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Name: testName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   testResource,
			Issuer:    tokenIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			ID:        "empty-key",
		},
	})
	signed, err := unsafe.SignedString([]byte{})
	if err == nil {
		_, err = keyless.Validate(signed, now, testResource, testName)
		assert.ErrorIs(t, err, sentinel.ErrInvalidState)
	}
}
