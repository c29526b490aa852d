package storage

import (
	"context"
	"fmt"

	"github.com/emmayusufu/googledriveclone/internal/config"
)

// New builds the configured driver, makes sure its bucket exists and wraps it
// with the retry policy from cfg.
func New(ctx context.Context, cfg config.StorageConfig) (*RetryingStore, error) {
	policy := RetryPolicy{
		MaxAttempts:   cfg.MaxAttempts,
		BaseDelay:     cfg.RetryBase,
		OpTimeout:     cfg.OpTimeout,
		UploadTimeout: cfg.UploadTimeout,
	}

	switch cfg.Driver {
	case "", "minio":
		store, err := NewMinIOStore(cfg)
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return NewRetryingStore(store, policy), nil
	case "s3":
		store, err := NewS3Store(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return NewRetryingStore(store, policy), nil
	case "memory":
		return NewRetryingStore(NewMemoryStore(cfg.PublicURL), policy), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
