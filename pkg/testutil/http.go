// Package testutil provides request builders and assertions shared by handler and router tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AnimalsPath is the metered match endpoint.
const AnimalsPath = "/api/animals"

// AnimalsGet builds a GET match request. An empty name omits the query parameter.
// An empty accept leaves the Accept header unset.
func AnimalsGet(t *testing.T, name, accept string) *http.Request {
	t.Helper()
	target := AnimalsPath
	if name != "" {
		target += "?" + url.Values{"name": {name}}.Encode()
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return req
}

// AnimalsPost builds a POST match request. A string body is sent as-is so tests
// can exercise malformed JSON; anything else is marshaled.
func AnimalsPost(t *testing.T, body any) *http.Request {
	t.Helper()
	var raw []byte
	switch v := body.(type) {
	case string:
		raw = []byte(v)
	case nil:
	default:
		var err error
		raw, err = json.Marshal(v)
		require.NoError(t, err, "failed to marshal request body")
	}
	req := httptest.NewRequest(http.MethodPost, AnimalsPath, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// Serve runs req through h and returns the recorder.
func Serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// DecodeJSON unmarshals the recorded body into T.
func DecodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), "failed to unmarshal response: %s", rec.Body.String())
	return out
}

// AssertJSONError checks status and the {"error": message} body shape.
func AssertJSONError(t *testing.T, rec *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	assert.Equal(t, status, rec.Code, "unexpected status code")
	body := DecodeJSON[map[string]any](t, rec)
	assert.Equal(t, message, body["error"])
}
