package artifact

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/DeafMist/comment-sentiment/internal/config"
)

// OpenStore builds the store named by cfg. The returned close function
// releases any resources the store holds.
func OpenStore(cfg config.Artifacts) (Store, func() error, error) {
	switch cfg.Store {
	case config.StoreFS:
		return NewFileStore(cfg.Dir), func() error { return nil }, nil
	case config.StoreBadger:
		s, err := OpenBadgerStore(cfg.BadgerPath)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown artifact store %q", cfg.Store)
	}
}

// RefsFrom returns the configured startup refs.
func RefsFrom(cfg config.Artifacts) Refs {
	return Refs{Vectorizer: cfg.VectorizerRef, Classifier: cfg.ClassifierRef}
}

// Start opens the configured store and performs the startup bind within
// cfg.LoadTimeout. Callers treat an error as fatal.
func Start(ctx context.Context, cfg config.Artifacts, log *slog.Logger) (*Binder, func() error, error) {
	store, closeStore, err := OpenStore(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open artifact store: %w", err)
	}

	binder := NewBinder(store, log)
	bindCtx, cancel := context.WithTimeout(ctx, cfg.LoadTimeout)
	defer cancel()

	if _, err := binder.Rebind(bindCtx, RefsFrom(cfg)); err != nil {
		_ = closeStore()
		return nil, nil, err
	}
	return binder, closeStore, nil
}
