package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/matching"
)

const maxBodyBytes = 4 << 10

// MatchRequest is the body of POST /api/animals. Name is left raw so that
// non-string values can fall back to the anonymous name.
type MatchRequest struct {
	Name json.RawMessage `json:"name"`
}

// ParsedName returns the name if it is a JSON string, otherwise the
// anonymous name.
func (r *MatchRequest) ParsedName() string {
	if r == nil || len(r.Name) == 0 {
		return matching.AnonymousName
	}
	var s string
	if err := json.Unmarshal(r.Name, &s); err != nil {
		return matching.AnonymousName
	}
	return s
}

// nameFromQuery reads ?name=. Absent means anonymous.
func nameFromQuery(r *http.Request) string {
	values, ok := r.URL.Query()["name"]
	if !ok || len(values) == 0 {
		return matching.AnonymousName
	}
	return values[0]
}

// nameFromBody reads {"name": ...}. Unreadable or malformed bodies are not an
// error for this endpoint; they match as anonymous.
func nameFromBody(r *http.Request) string {
	var req MatchRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil {
		return matching.AnonymousName
	}
	return req.ParsedName()
}
