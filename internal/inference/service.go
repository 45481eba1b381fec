// Package inference runs normalize -> vectorize -> classify over comment
// batches against one snapshot of the bound artifact pair.
package inference

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"
	"golang.org/x/sync/errgroup"

	"github.com/DeafMist/comment-sentiment/internal/artifact"
	"github.com/DeafMist/comment-sentiment/internal/models"
	"github.com/DeafMist/comment-sentiment/internal/processing"
)

var (
	ErrNotReady            = errors.New("no model artifacts bound")
	ErrNonText             = errors.New("comment text is not valid UTF-8")
	ErrTooLong             = errors.New("comment text exceeds the maximum length")
	ErrUnsupportedLanguage = errors.New("comment language is not supported by the model")
	ErrClassifierPanic     = errors.New("classifier panicked")
)

// BundleSource yields the currently bound pair; *artifact.Binder implements it.
type BundleSource interface {
	Current() (*artifact.Bundle, bool)
}

// Options tune batch processing.
type Options struct {
	// Workers bounds per-batch parallelism; values < 2 run sequentially.
	Workers int
	// MaxTextLength rejects longer comments (in runes); 0 disables the check.
	MaxTextLength int
	// Language is the ISO 639-3 code of the training corpus ("eng"). When set,
	// comments reliably detected as another language fail individually.
	Language string
}

// ItemResult is the outcome for one comment. Err is nil on success.
type ItemResult struct {
	Prediction models.Prediction
	Err        error
}

// BatchResult holds one ItemResult per input comment, in input order.
type BatchResult struct {
	Version artifact.Version
	Items   []ItemResult
	Failed  int
}

// Service is safe for concurrent use; it holds no per-request state.
type Service struct {
	source BundleSource
	opts   Options
	lang   whatlanggo.Lang
	log    *slog.Logger
}

// New builds a Service. It fails only on an unknown Language code.
func New(source BundleSource, opts Options, log *slog.Logger) (*Service, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	lang := whatlanggo.Lang(-1)
	if opts.Language != "" {
		lang = whatlanggo.CodeToLang(opts.Language)
		if lang == -1 {
			return nil, fmt.Errorf("unknown language code %q", opts.Language)
		}
	}
	return &Service{source: source, opts: opts, lang: lang, log: log}, nil
}

// Ready reports whether a pair is bound.
func (s *Service) Ready() bool {
	_, ok := s.source.Current()
	return ok
}

// PredictBatch classifies comments. The result always has len(comments)
// items; failures are reported per item. The only returned error is
// ErrNotReady.
func (s *Service) PredictBatch(comments []models.RawComment) (BatchResult, error) {
	bundle, ok := s.source.Current()
	if !ok {
		return BatchResult{}, ErrNotReady
	}

	items := make([]ItemResult, len(comments))
	if s.opts.Workers < 2 || len(comments) < 2 {
		for i, c := range comments {
			items[i] = s.predictOne(bundle, c)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(s.opts.Workers)
		for i := range comments {
			g.Go(func() error {
				items[i] = s.predictOne(bundle, comments[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		s.log.Warn("batch had failed items",
			slog.Int("size", len(comments)),
			slog.Int("failed", failed),
			slog.String("version", bundle.Version.ID),
		)
	}

	return BatchResult{Version: bundle.Version, Items: items, Failed: failed}, nil
}

func (s *Service) predictOne(bundle *artifact.Bundle, c models.RawComment) (res ItemResult) {
	defer func() {
		if r := recover(); r != nil {
			res = ItemResult{Err: fmt.Errorf("%w: %v", ErrClassifierPanic, r)}
		}
	}()

	if !utf8.ValidString(c.Text) {
		return ItemResult{Err: ErrNonText}
	}
	if s.opts.MaxTextLength > 0 && utf8.RuneCountInString(c.Text) > s.opts.MaxTextLength {
		return ItemResult{Err: ErrTooLong}
	}

	normalized := processing.Normalize(c.Text)
	if normalized == "" {
		return ItemResult{Prediction: models.Prediction{Label: models.Neutral, Confidence: 0}}
	}

	if s.lang != -1 {
		if info := whatlanggo.Detect(c.Text); info.IsReliable() && info.Lang != s.lang {
			return ItemResult{Err: fmt.Errorf("%w: detected %s", ErrUnsupportedLanguage, info.Lang.Iso6391())}
		}
	}

	pred, err := bundle.Classifier.Predict(bundle.Vectorizer.Vectorize(normalized))
	if err != nil {
		return ItemResult{Err: fmt.Errorf("classify: %w", err)}
	}
	return ItemResult{Prediction: pred}
}

// Predictions returns one entry per item; failed items are nil.
func (r BatchResult) Predictions() []*models.Prediction {
	out := make([]*models.Prediction, len(r.Items))
	for i := range r.Items {
		if r.Items[i].Err == nil {
			out[i] = &r.Items[i].Prediction
		}
	}
	return out
}

// ErrorCode maps an item error to a stable short code for responses and
// stored documents.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNonText):
		return "non_text"
	case errors.Is(err, ErrTooLong):
		return "too_long"
	case errors.Is(err, ErrUnsupportedLanguage):
		return "unsupported_language"
	case errors.Is(err, ErrClassifierPanic):
		return "classifier_panic"
	default:
		return "classifier_error"
	}
}
