package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"github.com/DeafMist/comment-sentiment/internal/aggregate"
	"github.com/DeafMist/comment-sentiment/internal/artifact"
	"github.com/DeafMist/comment-sentiment/internal/config"
	"github.com/DeafMist/comment-sentiment/internal/elasticsearch"
	"github.com/DeafMist/comment-sentiment/internal/inference"
	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/processing"
)

const maxBodyBytes = 32 << 20

type binder interface {
	Current() (*artifact.Bundle, bool)
	Rebind(ctx context.Context, refs artifact.Refs) (artifact.Version, error)
}

type predictor interface {
	PredictBatch(comments []models.RawComment) (inference.BatchResult, error)
}

type commentSearcher interface {
	SearchComments(ctx context.Context, params elasticsearch.SearchParams) (*elasticsearch.SearchResult, error)
}

type server struct {
	log         *slog.Logger
	cfg         *config.API
	binder      binder
	svc         predictor
	es          commentSearcher
	bindTimeout time.Duration
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Post("/predict", s.handlePredict)
	r.Post("/predict_with_timestamps", s.handlePredictWithTimestamps)
	r.Post("/distribution", s.handleDistribution)
	r.Post("/trend", s.handleTrend)
	r.Post("/wordcloud", s.handleWordcloud)
	r.Get("/comments", s.handleSearch)
	r.Post("/admin/artifacts", s.handleRebind)
	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

type commentInput struct {
	Text        string `json:"text"`
	PublishedAt string `json:"published_at"`
	AuthorID    string `json:"author_id"`
}

type commentsRequest struct {
	Comments []commentInput `json:"comments" validate:"required,min=1"`
}

type itemResponse struct {
	Label       models.Label `json:"label,omitempty"`
	Confidence  float64      `json:"confidence"`
	PublishedAt string       `json:"published_at,omitempty"`
	Error       string       `json:"error,omitempty"`
}

type predictResponse struct {
	Version artifact.Version `json:"version"`
	Items   []itemResponse   `json:"items"`
	Failed  int              `json:"failed"`
}

type distributionResponse struct {
	Version      artifact.Version       `json:"version"`
	Distribution aggregate.Distribution `json:"distribution"`
}

type trendResponse struct {
	Version artifact.Version        `json:"version"`
	Trend   aggregate.MonthlyResult `json:"trend"`
	Failed  int                     `json:"failed"`
}

type wordcloudResponse struct {
	Tokens []models.TokenCount `json:"tokens"`
}

type healthResponse struct {
	Status  string            `json:"status"`
	Bound   bool              `json:"bound"`
	Version *artifact.Version `json:"version,omitempty"`
}

func (s *server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	bundle, ok := s.binder.Current()
	if !ok {
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unbound"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Bound: true, Version: &bundle.Version})
}

func (s *server) handlePredict(w http.ResponseWriter, r *http.Request) {
	s.predict(w, r, false)
}

func (s *server) handlePredictWithTimestamps(w http.ResponseWriter, r *http.Request) {
	s.predict(w, r, true)
}

func (s *server) predict(w http.ResponseWriter, r *http.Request, echoTimestamps bool) {
	comments, res, ok := s.score(w, r)
	if !ok {
		return
	}

	items := make([]itemResponse, len(res.Items))
	for i, item := range res.Items {
		out := itemResponse{
			Label:      item.Prediction.Label,
			Confidence: item.Prediction.Confidence,
			Error:      inference.ErrorCode(item.Err),
		}
		if item.Err != nil {
			out.Label = ""
			out.Confidence = 0
		}
		if echoTimestamps {
			out.PublishedAt = comments[i].PublishedAt
		}
		items[i] = out
	}

	writeJSON(w, http.StatusOK, predictResponse{Version: res.Version, Items: items, Failed: res.Failed})
}

func (s *server) handleDistribution(w http.ResponseWriter, r *http.Request) {
	_, res, ok := s.score(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, distributionResponse{
		Version:      res.Version,
		Distribution: aggregate.Distribute(res.Predictions()),
	})
}

func (s *server) handleTrend(w http.ResponseWriter, r *http.Request) {
	comments, res, ok := s.score(w, r)
	if !ok {
		return
	}

	preds := res.Predictions()
	records := make([]aggregate.Record, len(comments))
	for i, c := range comments {
		records[i] = aggregate.Record{PublishedAt: c.PublishedAt, Prediction: preds[i]}
	}

	writeJSON(w, http.StatusOK, trendResponse{
		Version: res.Version,
		Trend:   aggregate.ByMonth(records),
		Failed:  res.Failed,
	})
}

func (s *server) handleWordcloud(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(r.URL.Query().Get("limit"), s.cfg.WordcloudSize, s.cfg.WordcloudSize*10)

	req, ok := s.decodeComments(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, wordcloudResponse{Tokens: processing.TopTokens(toRaw(req.Comments), limit)})
}

func (s *server) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	params := elasticsearch.SearchParams{
		VideoID: strings.TrimSpace(q.Get("video_id")),
		Query:   strings.TrimSpace(q.Get("q")),
		From:    clampInt(q.Get("from"), 0, 10_000),
		Size:    clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
		Start:   parseTime(q.Get("start")),
		End:     parseTime(q.Get("end")),
	}
	if raw := strings.TrimSpace(q.Get("label")); raw != "" {
		label, err := models.ParseLabel(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
			return
		}
		params.Label = label
	}

	result, err := s.es.SearchComments(ctx, params)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *server) handleRebind(w http.ResponseWriter, r *http.Request) {
	var refs artifact.Refs
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&refs); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return
	}
	if err := validate.Struct(refs); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.bindTimeout)
	defer cancel()

	version, err := s.binder.Rebind(ctx, refs)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, artifact.ErrNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, version)
}

// score decodes the request body and runs it through inference. It writes
// the error response itself and reports whether the caller should go on.
func (s *server) score(w http.ResponseWriter, r *http.Request) ([]models.RawComment, inference.BatchResult, bool) {
	req, ok := s.decodeComments(w, r)
	if !ok {
		return nil, inference.BatchResult{}, false
	}

	comments := toRaw(req.Comments)

	res, err := s.svc.PredictBatch(comments)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, inference.ErrNotReady) {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return nil, inference.BatchResult{}, false
	}
	return comments, res, true
}

func (s *server) decodeComments(w http.ResponseWriter, r *http.Request) (commentsRequest, bool) {
	var req commentsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body"})
		return req, false
	}
	if err := validate.Struct(req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validationMessage(err)})
		return req, false
	}
	if len(req.Comments) > s.cfg.MaxBatch {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{
			Error: fmt.Sprintf("at most %d comments per request", s.cfg.MaxBatch),
		})
		return req, false
	}
	return req, true
}

func toRaw(in []commentInput) []models.RawComment {
	return lo.Map(in, func(c commentInput, _ int) models.RawComment {
		return models.RawComment{Text: c.Text, PublishedAt: c.PublishedAt, AuthorID: c.AuthorID}
	})
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := lo.Map(verrs, func(fe validator.FieldError, _ int) string {
		return strings.ToLower(fe.Field()) + " failed " + fe.Tag()
	})
	return strings.Join(parts, "; ")
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	return nil
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
