package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/comment-sentiment/internal/aggregate"
	"github.com/DeafMist/comment-sentiment/internal/elasticsearch"
	"github.com/DeafMist/comment-sentiment/internal/inference"
	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/processing"
)

// commentBatch is the Kafka payload: comments scraped from one video.
type commentBatch struct {
	VideoID  string              `json:"video_id" validate:"required"`
	Comments []models.RawComment `json:"comments" validate:"required,min=1"`
}

type scorer interface {
	PredictBatch(comments []models.RawComment) (inference.BatchResult, error)
}

type commentIndexer interface {
	IndexComments(ctx context.Context, docs []models.CommentDocument) (elasticsearch.BulkResult, error)
}

type seenCache interface {
	Filter(ids []string) []string
	Mark(ids ...string)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

type pipeline struct {
	log     *slog.Logger
	scorer  scorer
	indexer commentIndexer
	cache   seenCache
	now     func() time.Time
}

// process scores one batch message and indexes the comments not seen
// before. Per-comment inference failures are indexed with their error;
// only undecodable payloads and storage failures fail the message.
func (p *pipeline) process(ctx context.Context, msg kafka.Message) error {
	var batch commentBatch
	if err := json.Unmarshal(msg.Value, &batch); err != nil {
		return fmt.Errorf("decode batch: %w", err)
	}
	batch.VideoID = strings.TrimSpace(batch.VideoID)
	if batch.VideoID == "" && len(msg.Key) > 0 {
		batch.VideoID = string(msg.Key)
	}
	if err := validate.Struct(batch); err != nil {
		return fmt.Errorf("invalid batch: %w", err)
	}

	fresh := p.freshComments(batch)
	if len(fresh) == 0 {
		p.log.Debug("duplicate batch", slog.String("video_id", batch.VideoID))
		return nil
	}

	res, err := p.scorer.PredictBatch(fresh)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}

	docs := buildDocuments(batch.VideoID, fresh, res, p.now().UTC())
	bulk, err := p.indexer.IndexComments(ctx, docs)
	if err != nil {
		return fmt.Errorf("index comments: %w", err)
	}

	stored := make([]string, 0, len(docs))
	for _, d := range docs {
		if _, rejected := bulk.Failed[d.ID]; !rejected {
			stored = append(stored, d.ID)
		}
	}
	p.cache.Mark(stored...)

	p.log.Info("indexed comments",
		slog.String("video_id", batch.VideoID),
		slog.Int("received", len(batch.Comments)),
		slog.Int("indexed", bulk.Indexed),
		slog.Int("inference_failed", res.Failed),
		slog.Int("rejected", len(bulk.Failed)),
		slog.String("model_version", res.Version.ID),
	)
	if len(bulk.Failed) > 0 {
		return fmt.Errorf("%d of %d comments rejected by elasticsearch", len(bulk.Failed), len(docs))
	}
	return nil
}

// freshComments fills in missing ids and drops comments already indexed.
func (p *pipeline) freshComments(batch commentBatch) []models.RawComment {
	byID := make(map[string]models.RawComment, len(batch.Comments))
	ids := make([]string, 0, len(batch.Comments))
	for _, c := range batch.Comments {
		if strings.TrimSpace(c.ID) == "" {
			c.ID = processing.BuildCommentID(batch.VideoID, c.AuthorID, c.Text, c.PublishedAt)
		}
		if _, ok := byID[c.ID]; !ok {
			byID[c.ID] = c
		}
		ids = append(ids, c.ID)
	}

	keep := p.cache.Filter(ids)
	out := make([]models.RawComment, 0, len(keep))
	for _, id := range keep {
		out = append(out, byID[id])
	}
	return out
}

func buildDocuments(videoID string, comments []models.RawComment, res inference.BatchResult, now time.Time) []models.CommentDocument {
	docs := make([]models.CommentDocument, len(comments))
	for i, c := range comments {
		doc := models.CommentDocument{
			ID:           c.ID,
			VideoID:      videoID,
			AuthorID:     c.AuthorID,
			Text:         c.Text,
			ModelVersion: res.Version.ID,
			IndexedAt:    now,
		}
		if ts, err := aggregate.ParseTimestamp(c.PublishedAt); err == nil {
			doc.PublishedAt = &ts
		}

		item := res.Items[i]
		if item.Err != nil {
			doc.Error = inference.ErrorCode(item.Err)
		} else {
			doc.Label = item.Prediction.Label
			doc.Confidence = item.Prediction.Confidence
		}
		docs[i] = doc
	}
	return docs
}
