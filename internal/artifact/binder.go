package artifact

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Binder owns the currently bound Bundle. Readers call Current without
// locking; Rebind builds a complete new Bundle and publishes it with a single
// atomic swap, so a reader sees either the old pair or the new one.
type Binder struct {
	store   Store
	log     *slog.Logger
	mu      sync.Mutex
	current atomic.Pointer[Bundle]
}

// NewBinder returns an unbound Binder reading from store.
func NewBinder(store Store, log *slog.Logger) *Binder {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Binder{store: store, log: log}
}

// Rebind loads refs and swaps them in. On failure the previously bound pair,
// if any, stays in service and the *BindingError is returned.
func (b *Binder) Rebind(ctx context.Context, refs Refs) (Version, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	bundle, err := Bind(ctx, b.store, refs)
	if err != nil {
		var bindErr *BindingError
		stage := ""
		if errors.As(err, &bindErr) {
			stage = bindErr.Stage
		}
		b.log.Error("bind artifacts",
			slog.String("vectorizer", refs.Vectorizer),
			slog.String("classifier", refs.Classifier),
			slog.String("stage", stage),
			slog.Any("err", err),
		)
		return Version{}, err
	}

	previous := b.current.Swap(bundle)
	attrs := []any{
		slog.String("version", bundle.Version.ID),
		slog.String("vectorizer_id", bundle.Version.VectorizerID),
		slog.String("classifier_id", bundle.Version.ClassifierID),
		slog.Int("vocabulary_size", bundle.Version.VocabularySize),
	}
	if previous != nil {
		attrs = append(attrs, slog.String("previous_version", previous.Version.ID))
	}
	b.log.Info("artifacts bound", attrs...)
	return bundle.Version, nil
}

// Current returns the bound Bundle, or false before the first successful bind.
func (b *Binder) Current() (*Bundle, bool) {
	bundle := b.current.Load()
	return bundle, bundle != nil
}

// Ready reports whether a pair is bound.
func (b *Binder) Ready() bool {
	return b.current.Load() != nil
}

// Publish swaps in a Bundle that was built elsewhere (for example with Pair).
func (b *Binder) Publish(bundle *Bundle) {
	if bundle == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.current.Store(bundle)
}
