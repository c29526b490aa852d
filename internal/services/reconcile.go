package services

import (
	"context"
	"time"

	"github.com/emmayusufu/googledriveclone/internal/models"
	"github.com/emmayusufu/googledriveclone/internal/storage"
	"github.com/emmayusufu/googledriveclone/pkg/logger"
	"gorm.io/gorm"
)

const reconcileBatchSize = 100

// ReconcileResult counts one pass. Skipped folders were deleted or
// materialized elsewhere while the pass ran.
type ReconcileResult struct {
	Fixed   int `json:"fixed"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Reconciler finishes folder creations whose remote step never completed.
type Reconciler struct {
	DB    *gorm.DB
	Store storage.ObjectStore

	now func() time.Time
}

func NewReconciler(db *gorm.DB, store storage.ObjectStore) *Reconciler {
	return &Reconciler{DB: db, Store: store, now: time.Now}
}

// MaterializePending creates the remote path of every folder that has been
// waiting for longer than grace and records it on the row.
func (r *Reconciler) MaterializePending(ctx context.Context, grace time.Duration) (ReconcileResult, error) {
	var result ReconcileResult
	cutoff := r.now().Add(-grace)

	var pending []models.Folder
	if err := r.DB.WithContext(ctx).
		Where("remote_path IS NULL AND created_at < ?", cutoff).
		Order("created_at ASC").
		Limit(reconcileBatchSize).
		Find(&pending).Error; err != nil {
		return result, err
	}

	for i := range pending {
		folder := &pending[i]
		path := storage.FolderPath(folder.OwnerID, folder.ParentID, &folder.ID)

		if err := r.Store.CreateFolderPath(ctx, path); err != nil {
			result.Failed++
			logger.Error("reconcile_folder_failed", err, map[string]interface{}{
				"folder_id": folder.ID.String(),
				"path":      path,
			})
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			continue
		}

		res := r.DB.WithContext(ctx).Model(&models.Folder{}).
			Where("id = ? AND remote_path IS NULL", folder.ID).
			Update("remote_path", path)
		if res.Error != nil {
			result.Failed++
			logger.Error("reconcile_folder_failed", res.Error, map[string]interface{}{
				"folder_id": folder.ID.String(),
				"path":      path,
			})
			continue
		}
		if res.RowsAffected == 0 {
			if err := r.release(ctx, folder, path); err != nil {
				result.Failed++
				logger.Error("reconcile_folder_failed", err, map[string]interface{}{
					"folder_id": folder.ID.String(),
					"path":      path,
				})
				continue
			}
			result.Skipped++
			continue
		}
		result.Fixed++
	}

	if result.Fixed > 0 || result.Skipped > 0 || result.Failed > 0 {
		logger.Info("reconcile_completed", map[string]interface{}{
			"fixed":   result.Fixed,
			"skipped": result.Skipped,
			"failed":  result.Failed,
		})
	}
	return result, nil
}

// release handles a folder whose write-back matched no pending row. A row that
// still exists was materialized by someone else and keeps its path; a deleted
// row leaves a remote path nothing points at, which is removed.
func (r *Reconciler) release(ctx context.Context, folder *models.Folder, path string) error {
	var count int64
	if err := r.DB.WithContext(ctx).Model(&models.Folder{}).
		Where("id = ?", folder.ID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return r.Store.DeleteFolderPath(ctx, path)
}

// Run reconciles every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.MaterializePending(ctx, grace); err != nil && ctx.Err() == nil {
				logger.Error("reconcile_failed", err, nil)
			}
		}
	}
}
