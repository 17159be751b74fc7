package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/animals/handler/mocks"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/animals/metrics"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/catalog"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/gate"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/matching"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/internal/platform/logger"
	"github.com/YASH-YADAV-dynamo/solana-animal-x402/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	matcher *mocks.MockMatcher
	metrics *metrics.Metrics
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.matcher = mocks.NewMockMatcher(s.ctrl)
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.router = chi.NewRouter()
	New(s.matcher, logger.Discard(), s.metrics).Register(s.router)
}

func (s *HandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.Serve(s.router, req)
}

func annaResult() matching.MatchResult {
	return matching.MatchResult{
		Selected:       catalog.Animal{Name: "Ant", Description: "Tiny but mighty."},
		MinDistance:    3,
		TieCount:       2,
		NormalizedName: "Anna",
	}
}

func (s *HandlerSuite) TestGetReturnsMatchPayload() {
	s.matcher.EXPECT().Match("Anna").Return(annaResult())
	s.matcher.EXPECT().Size().Return(62)

	rec := s.do(testutil.AnimalsGet(s.T(), "Anna", "application/json"))

	s.Equal(http.StatusOK, rec.Code)
	s.Equal("application/json", rec.Header().Get("Content-Type"))
	s.JSONEq(`{
		"animal": {"name": "Ant", "description": "Tiny but mighty.", "similarityScore": 3},
		"originalName": "Anna",
		"totalAnimals": 62,
		"closestMatches": 2
	}`, rec.Body.String())
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Responses.WithLabelValues("data", "ok")))
}

func (s *HandlerSuite) TestGetWithoutNameIsAnonymous() {
	s.matcher.EXPECT().Match(matching.AnonymousName).Return(annaResult())
	s.matcher.EXPECT().Size().Return(62)

	rec := s.do(testutil.AnimalsGet(s.T(), "", ""))
	s.Equal(http.StatusOK, rec.Code)
}

func (s *HandlerSuite) TestBrowserNavigationRedirectsToResultsView() {
	result := annaResult()
	result.NormalizedName = "Ada Lovelace"
	s.matcher.EXPECT().Match("  Ada Lovelace ").Return(result)

	req := httptest.NewRequest(http.MethodGet, "/api/animals?name=++Ada+Lovelace+&ref=home", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	rec := s.do(req)

	s.Equal(http.StatusTemporaryRedirect, rec.Code)
	s.Equal("/animals?name=Ada+Lovelace&ref=home", rec.Header().Get("Location"))
	s.Equal(1.0, promtest.ToFloat64(s.metrics.Responses.WithLabelValues("document", "redirect")))
}

func (s *HandlerSuite) TestPostAlwaysReturnsData() {
	s.matcher.EXPECT().Match("Anna").Return(annaResult())
	s.matcher.EXPECT().Size().Return(62)

	req := testutil.AnimalsPost(s.T(), map[string]any{"name": "Anna"})
	req.Header.Set("Accept", "text/html")
	rec := s.do(req)

	s.Equal(http.StatusOK, rec.Code)
	body := testutil.DecodeJSON[MatchResponse](s.T(), rec)
	s.Equal("Ant", body.Animal.Name)
}

func (s *HandlerSuite) TestPostNonStringNameIsAnonymous() {
	bodies := []string{`{"name":42}`, `{"name":null}`, `{"name":["Anna"]}`, `{}`, `not json`, ``}
	for _, body := range bodies {
		s.Run(body, func() {
			s.matcher.EXPECT().Match(matching.AnonymousName).Return(annaResult())
			s.matcher.EXPECT().Size().Return(62)

			rec := s.do(testutil.AnimalsPost(s.T(), body))
			s.Equal(http.StatusOK, rec.Code)
		})
	}
}

func (s *HandlerSuite) TestPanicBecomesGenericError() {
	s.matcher.EXPECT().Match("Anna").DoAndReturn(func(string) matching.MatchResult {
		panic("catalog corrupted at index 7")
	})

	rec := s.do(testutil.AnimalsGet(s.T(), "Anna", ""))

	testutil.AssertJSONError(s.T(), rec, http.StatusInternalServerError, "Failed to fetch animal")
	s.NotContains(rec.Body.String(), "index 7")
}

func (s *HandlerSuite) TestGateDenialNeverReachesMatcher() {
	deny := gate.Func(func(context.Context, *http.Request) (gate.Decision, error) {
		return gate.Deny(gate.ReasonMissingPayment, gate.Challenge{Body: map[string]any{"x402Version": 1}}), nil
	})
	router := chi.NewRouter()
	router.Use(gate.Middleware(deny, logger.Discard(), nil))
	New(s.matcher, logger.Discard(), nil).Register(router)

	rec := testutil.Serve(router, testutil.AnimalsGet(s.T(), "Anna", ""))

	// No EXPECT on the mock: any Match call fails the test.
	s.Equal(http.StatusPaymentRequired, rec.Code)
}

func TestHandler_RealMatcherReportsCatalogAndTies(t *testing.T) {
	animals := []catalog.Animal{
		{Name: "Bat", Description: "b"},
		{Name: "Tab", Description: "t"},
		{Name: "Abt", Description: "a"},
		{Name: "Zebra", Description: "z"},
		{Name: "Koala", Description: "k"},
	}
	m, err := matching.New(animals)
	require.NoError(t, err)

	router := chi.NewRouter()
	New(m, logger.Discard(), nil).Register(router)

	rec := testutil.Serve(router, testutil.AnimalsGet(t, "tab", ""))
	require.Equal(t, http.StatusOK, rec.Code)

	body := testutil.DecodeJSON[MatchResponse](t, rec)
	assert.Equal(t, len(animals), body.TotalAnimals)
	assert.Equal(t, 3, body.ClosestMatches)
	assert.Equal(t, 0, body.Animal.SimilarityScore)
	assert.Contains(t, []string{"Bat", "Tab", "Abt"}, body.Animal.Name)
	assert.Equal(t, "tab", body.OriginalName)
}
