// Package matching picks the catalog animal whose letter-repetition profile is
// closest to a user's name.
//
// Scoring is deterministic. The only randomness is the uniform choice among
// tied candidates, and it comes from an injected Rand so tests can pin it.
package matching

import (
	"errors"
	"math/rand/v2"
	"strings"
	"sync"
	"unicode"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/catalog"
)

// AnonymousName replaces names that are empty after trimming.
const AnonymousName = "anonymous"

// ErrEmptyCatalog is returned when a matcher is built without candidates.
var ErrEmptyCatalog = errors.New("matching: catalog must contain at least one animal")

// Rand is the source used to break ties. IntN returns a value in [0, n).
type Rand interface {
	IntN(n int) int
}

// ScoredCandidate is a catalog entry with its distance to the query.
type ScoredCandidate struct {
	Animal   catalog.Animal
	Distance int
}

// MatchResult is the outcome of one match.
type MatchResult struct {
	Selected       catalog.Animal
	MinDistance    int
	TieCount       int
	NormalizedName string
}

type candidate struct {
	animal  catalog.Animal
	profile LetterProfile
}

// Matcher scores names against a fixed catalog. It is safe for concurrent use.
type Matcher struct {
	candidates []candidate
	rng        Rand
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithRand injects the tie-break source. Calls are serialized, so a plain
// *rand.Rand is fine.
func WithRand(r Rand) Option {
	return func(m *Matcher) {
		if r != nil {
			m.rng = &lockedRand{src: r}
		}
	}
}

// New builds a Matcher over animals. Profiles for the catalog are computed
// once here since the catalog never changes.
func New(animals []catalog.Animal, opts ...Option) (*Matcher, error) {
	if len(animals) == 0 {
		return nil, ErrEmptyCatalog
	}
	m := &Matcher{
		candidates: make([]candidate, len(animals)),
		rng:        globalRand{},
	}
	for i, a := range animals {
		m.candidates[i] = candidate{animal: a, profile: Extract(a.Name)}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Match is a one-shot helper for callers without a long-lived Matcher.
func Match(userName string, animals []catalog.Animal, r Rand) (MatchResult, error) {
	m, err := New(animals, WithRand(r))
	if err != nil {
		return MatchResult{}, err
	}
	return m.Match(userName), nil
}

// Size returns the number of catalog entries the matcher scores against.
func (m *Matcher) Size() int {
	return len(m.candidates)
}

// Match normalizes userName, scores every catalog entry and picks uniformly
// among those at the minimum distance.
func (m *Matcher) Match(userName string) MatchResult {
	name := NormalizeName(userName)
	scored := m.score(Extract(name))

	minDistance := scored[0].Distance
	for _, c := range scored[1:] {
		if c.Distance < minDistance {
			minDistance = c.Distance
		}
	}

	ties := make([]catalog.Animal, 0, 4)
	for _, c := range scored {
		if c.Distance == minDistance {
			ties = append(ties, c.Animal)
		}
	}

	return MatchResult{
		Selected:       ties[m.rng.IntN(len(ties))],
		MinDistance:    minDistance,
		TieCount:       len(ties),
		NormalizedName: name,
	}
}

// Score returns every catalog entry with its distance to the normalized name,
// in catalog order.
func (m *Matcher) Score(userName string) []ScoredCandidate {
	return m.score(Extract(NormalizeName(userName)))
}

func (m *Matcher) score(user LetterProfile) []ScoredCandidate {
	out := make([]ScoredCandidate, len(m.candidates))
	for i, c := range m.candidates {
		out[i] = ScoredCandidate{Animal: c.animal, Distance: Distance(user, c.profile)}
	}
	return out
}

// NormalizeName trims surrounding whitespace and substitutes AnonymousName
// when nothing is left.
func NormalizeName(name string) string {
	trimmed := strings.TrimFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
	if trimmed == "" {
		return AnonymousName
	}
	return trimmed
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

type lockedRand struct {
	mu  sync.Mutex
	src Rand
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}
