package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/DeafMist/comment-sentiment/internal/artifact"
	"github.com/DeafMist/comment-sentiment/internal/config"
	"github.com/DeafMist/comment-sentiment/internal/elasticsearch"
	"github.com/DeafMist/comment-sentiment/internal/inference"
	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/testsupport"
)

type stubSearcher struct {
	params elasticsearch.SearchParams
}

func (s *stubSearcher) SearchComments(_ context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error) {
	s.params = params
	return &elasticsearch.SearchResult{Total: 1, Items: []models.CommentDocument{{ID: "c1", Label: models.Positive}}}, nil
}

type fixture struct {
	handler  http.Handler
	binder   *artifact.Binder
	searcher *stubSearcher
	dir      string
}

func newFixture(t *testing.T, bound bool) *fixture {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := t.TempDir()
	binder := artifact.NewBinder(artifact.NewFileStore(dir), log)
	if bound {
		_, err := binder.Rebind(context.Background(), testsupport.WriteArtifacts(t, dir, "m1"))
		require.NoError(t, err)
	}

	svc, err := inference.New(binder, inference.Options{Workers: 2, MaxTextLength: 100}, log)
	require.NoError(t, err)

	searcher := &stubSearcher{}
	srv := &server{
		log:         log,
		cfg:         &config.API{MaxBatch: 10, WordcloudSize: 5, DefaultPage: 20, MaxPage: 50},
		binder:      binder,
		svc:         svc,
		es:          searcher,
		bindTimeout: time.Second,
	}
	return &fixture{handler: srv.routes(), binder: binder, searcher: searcher, dir: dir}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

const marchBatch = `{"comments":[
	{"text":"I love this!","published_at":"2024-03-10T12:00:00Z"},
	{"text":"","published_at":"2024-03-11T08:00:00Z"},
	{"text":"terrible, never again","published_at":"2024-03-12T20:00:00Z"}
]}`

func TestHealth(t *testing.T) {
	rec := newFixture(t, false).do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.False(t, decode[healthResponse](t, rec).Bound)

	rec = newFixture(t, true).do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[healthResponse](t, rec)
	require.True(t, resp.Bound)
	require.Equal(t, "logreg-m1", resp.Version.ClassifierID)
}

func TestPredict(t *testing.T) {
	rec := newFixture(t, true).do(t, http.MethodPost, "/predict", marchBatch)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[predictResponse](t, rec)
	require.Len(t, resp.Items, 3)
	require.Zero(t, resp.Failed)
	require.Equal(t, models.Positive, resp.Items[0].Label)
	require.Equal(t, models.Neutral, resp.Items[1].Label)
	require.Zero(t, resp.Items[1].Confidence)
	require.Equal(t, models.Negative, resp.Items[2].Label)
	require.Empty(t, resp.Items[0].PublishedAt)
}

func TestPredictWithTimestampsEchoesInput(t *testing.T) {
	rec := newFixture(t, true).do(t, http.MethodPost, "/predict_with_timestamps", marchBatch)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[predictResponse](t, rec)
	require.Equal(t, "2024-03-11T08:00:00Z", resp.Items[1].PublishedAt)
}

func TestPredictReportsItemErrors(t *testing.T) {
	body := `{"comments":[{"text":"love"},{"text":"` + strings.Repeat("x", 101) + `"}]}`
	rec := newFixture(t, true).do(t, http.MethodPost, "/predict", body)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[predictResponse](t, rec)
	require.Equal(t, 1, resp.Failed)
	require.Equal(t, "too_long", resp.Items[1].Error)
	require.Empty(t, resp.Items[1].Label)
}

func TestPredictRejectsBadRequests(t *testing.T) {
	f := newFixture(t, true)

	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/predict", "{").Code)
	require.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/predict", `{"comments":[]}`).Code)

	many := `{"comments":[` + strings.TrimSuffix(strings.Repeat(`{"text":"a"},`, 11), ",") + `]}`
	require.Equal(t, http.StatusRequestEntityTooLarge, f.do(t, http.MethodPost, "/predict", many).Code)
}

func TestPredictUnbound(t *testing.T) {
	rec := newFixture(t, false).do(t, http.MethodPost, "/predict", marchBatch)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDistribution(t *testing.T) {
	rec := newFixture(t, true).do(t, http.MethodPost, "/distribution", marchBatch)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[distributionResponse](t, rec)
	require.Equal(t, 3, resp.Distribution.Total)
	for _, l := range models.AllLabels {
		require.Equal(t, 1, resp.Distribution.Counts[l])
	}
}

func TestTrend(t *testing.T) {
	body := `{"comments":[
		{"text":"I love this!","published_at":"2024-03-10T12:00:00Z"},
		{"text":"","published_at":"2024-03-11T08:00:00Z"},
		{"text":"terrible, never again","published_at":"2024-03-12T20:00:00Z"},
		{"text":"great","published_at":"2024-01-02T00:00:00Z"},
		{"text":"great","published_at":"last week"}
	]}`
	rec := newFixture(t, true).do(t, http.MethodPost, "/trend", body)
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[trendResponse](t, rec)
	require.Len(t, resp.Trend.Buckets, 2)
	require.Equal(t, "2024-01", resp.Trend.Buckets[0].YearMonth)
	require.Equal(t, "2024-03", resp.Trend.Buckets[1].YearMonth)
	require.Equal(t, 3, resp.Trend.Buckets[1].Total)
	require.Len(t, resp.Trend.Skipped, 1)
	require.Equal(t, 4, resp.Trend.Skipped[0].Index)
}

func TestWordcloud(t *testing.T) {
	body := `{"comments":[{"text":"great video"},{"text":"great edit"},{"text":"great edit!"}]}`
	f := newFixture(t, false)

	rec := f.do(t, http.MethodPost, "/wordcloud?limit=2", body)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode[wordcloudResponse](t, rec)
	require.Len(t, resp.Tokens, 2)
	require.Equal(t, models.TokenCount{Token: "great", Count: 3}, resp.Tokens[0])
	require.Equal(t, 2, resp.Tokens[1].Count)

	rec = f.do(t, http.MethodPost, "/wordcloud", body)
	require.Len(t, decode[wordcloudResponse](t, rec).Tokens, 3)
}

func TestSearchComments(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/comments?video_id=abc&label=positive&size=500&start=2024-03-01T00:00:00Z", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "abc", f.searcher.params.VideoID)
	require.Equal(t, models.Positive, f.searcher.params.Label)
	require.Equal(t, 50, f.searcher.params.Size)
	require.NotNil(t, f.searcher.params.Start)
	require.Nil(t, f.searcher.params.End)

	rec = f.do(t, http.MethodGet, "/comments?label=angry", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRebind(t *testing.T) {
	f := newFixture(t, true)
	before, _ := f.binder.Current()

	refs := testsupport.WriteArtifacts(t, f.dir, "m2")
	body, err := json.Marshal(refs)
	require.NoError(t, err)

	rec := f.do(t, http.MethodPost, "/admin/artifacts", string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	version := decode[artifact.Version](t, rec)
	require.Equal(t, "logreg-m2", version.ClassifierID)
	require.NotEqual(t, before.Version.ID, version.ID)

	rec = f.do(t, http.MethodPost, "/admin/artifacts", `{"vectorizer":"nope.json","classifier":"nope.json"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
	current, _ := f.binder.Current()
	require.Equal(t, version.ID, current.Version.ID, "failed rebind keeps the live pair")

	rec = f.do(t, http.MethodPost, "/admin/artifacts", `{"vectorizer":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
