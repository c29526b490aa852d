package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/emmayusufu/googledriveclone/pkg/logger"
	"github.com/sethvargo/go-retry"
)

type RetryPolicy struct {
	MaxAttempts   int
	BaseDelay     time.Duration
	OpTimeout     time.Duration
	UploadTimeout time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BaseDelay:     time.Second,
		OpTimeout:     30 * time.Second,
		UploadTimeout: 2 * time.Minute,
	}
}

// RetryingStore wraps a driver with per-call timeouts and exponential backoff.
// Timeouts of a single attempt are retried; cancellation of the caller's
// context and Permanent errors are not.
type RetryingStore struct {
	next   ObjectStore
	policy RetryPolicy
}

func NewRetryingStore(next ObjectStore, policy RetryPolicy) *RetryingStore {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if policy.BaseDelay <= 0 {
		policy.BaseDelay = time.Millisecond
	}
	return &RetryingStore{next: next, policy: policy}
}

func (r *RetryingStore) backoff() retry.Backoff {
	return retry.WithMaxRetries(uint64(r.policy.MaxAttempts-1), retry.NewExponential(r.policy.BaseDelay))
}

func (r *RetryingStore) do(ctx context.Context, op string, timeout time.Duration, fn func(context.Context) error) error {
	attempts := 0
	err := retry.Do(ctx, r.backoff(), func(ctx context.Context) error {
		attempts++
		callCtx, cancel := withTimeout(ctx, timeout)
		defer cancel()

		err := fn(callCtx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || IsPermanent(err) {
			return err
		}
		logger.Warn("storage_attempt_failed", map[string]interface{}{
			"operation": op,
			"attempt":   attempts,
			"error":     err.Error(),
		})
		return retry.RetryableError(err)
	})
	if err != nil {
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("storage %s failed after %d attempt(s): %w", op, attempts, err)
	}
	return nil
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

func (r *RetryingStore) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	var result UploadResult
	err := r.do(ctx, OpUpload, r.policy.UploadTimeout, func(ctx context.Context) error {
		if in.Body != nil {
			if _, err := in.Body.Seek(0, io.SeekStart); err != nil {
				return Permanent(err)
			}
		}
		res, err := r.next.Upload(ctx, in)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	return result, err
}

func (r *RetryingStore) Delete(ctx context.Context, objectID string) error {
	return r.do(ctx, OpDelete, r.policy.OpTimeout, func(ctx context.Context) error {
		return r.next.Delete(ctx, objectID)
	})
}

func (r *RetryingStore) CreateFolderPath(ctx context.Context, path string) error {
	return r.do(ctx, OpCreateFolderPath, r.policy.OpTimeout, func(ctx context.Context) error {
		return r.next.CreateFolderPath(ctx, path)
	})
}

func (r *RetryingStore) DeleteFolderPath(ctx context.Context, path string) error {
	return r.do(ctx, OpDeleteFolderPath, r.policy.OpTimeout, func(ctx context.Context) error {
		return r.next.DeleteFolderPath(ctx, path)
	})
}

// PresignedURL is not retried; presigning is local for every driver.
func (r *RetryingStore) PresignedURL(ctx context.Context, objectID string, expiry time.Duration) (string, error) {
	p, ok := r.next.(Presigner)
	if !ok {
		return "", errors.ErrUnsupported
	}
	return p.PresignedURL(ctx, objectID, expiry)
}

// CanPresign reports whether the wrapped driver supports presigned URLs.
func (r *RetryingStore) CanPresign() bool {
	_, ok := r.next.(Presigner)
	return ok
}
