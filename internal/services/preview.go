package services

import (
	"context"
	"time"

	"github.com/emmayusufu/googledriveclone/internal/models"
	"github.com/emmayusufu/googledriveclone/internal/storage"
	"github.com/emmayusufu/googledriveclone/pkg/logger"
)

const defaultPreviewExpiry = 15 * time.Minute

type presignAware interface {
	CanPresign() bool
}

type PreviewService struct {
	Store  storage.ObjectStore
	Expiry time.Duration
}

func NewPreviewService(store storage.ObjectStore) *PreviewService {
	return &PreviewService{Store: store, Expiry: defaultPreviewExpiry}
}

// URL hands out a short-lived signed link when the store can sign, otherwise
// the public URL recorded at upload time.
func (p *PreviewService) URL(ctx context.Context, file *models.File) string {
	if aware, ok := p.Store.(presignAware); ok && !aware.CanPresign() {
		return file.URL
	}
	presigner, ok := p.Store.(storage.Presigner)
	if !ok || file.ObjectID == "" {
		return file.URL
	}

	url, err := presigner.PresignedURL(ctx, file.ObjectID, p.Expiry)
	if err != nil {
		logger.Warn("preview_presign_failed", map[string]interface{}{
			"file_id":   file.ID.String(),
			"object_id": file.ObjectID,
			"error":     err.Error(),
		})
		return file.URL
	}
	return url
}
