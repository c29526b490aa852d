package services

import (
	"context"
	"errors"

	"github.com/emmayusufu/googledriveclone/internal/apperr"
	"github.com/emmayusufu/googledriveclone/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AccessService resolves items for their owner. An item owned by someone else
// is reported exactly like a missing one.
type AccessService struct {
	DB *gorm.DB
}

func NewAccessService(db *gorm.DB) *AccessService {
	return &AccessService{DB: db}
}

func (a *AccessService) OwnedFolder(ctx context.Context, userID, folderID uuid.UUID) (*models.Folder, error) {
	var folder models.Folder
	err := a.DB.WithContext(ctx).
		Where("id = ? AND owner_id = ?", folderID, userID).
		First(&folder).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("folder")
		}
		return nil, err
	}
	return &folder, nil
}

func (a *AccessService) OwnedFile(ctx context.Context, userID, fileID uuid.UUID) (*models.File, error) {
	var file models.File
	err := a.DB.WithContext(ctx).
		Where("id = ? AND owner_id = ?", fileID, userID).
		First(&file).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("file")
		}
		return nil, err
	}
	return &file, nil
}

// RequireParent checks that a prospective parent exists and belongs to userID.
// A nil parentID means the root and always passes.
func (a *AccessService) RequireParent(ctx context.Context, userID uuid.UUID, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if _, err := a.OwnedFolder(ctx, userID, *parentID); err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound("parent folder")
		}
		return err
	}
	return nil
}
