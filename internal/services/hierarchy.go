package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/emmayusufu/googledriveclone/internal/apperr"
	"github.com/emmayusufu/googledriveclone/internal/models"
	"github.com/emmayusufu/googledriveclone/internal/storage"
	"github.com/emmayusufu/googledriveclone/pkg/logger"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	// MaxTreeDepth bounds every walk over the parent graph.
	MaxTreeDepth = 256

	SearchLimit = 50

	defaultDeleteConcurrency = 4
)

type ItemType string

const (
	ItemFile   ItemType = "file"
	ItemFolder ItemType = "folder"
)

type FolderListing struct {
	Folders []models.Folder `json:"folders"`
	Files   []models.File   `json:"files"`
}

type SearchResult struct {
	Files   []models.File   `json:"files"`
	Folders []models.Folder `json:"folders"`
}

type RenameResult struct {
	Type   ItemType
	Folder *models.Folder
	File   *models.File
}

// Item returns whichever entity was renamed.
func (r *RenameResult) Item() interface{} {
	if r.Type == ItemFolder {
		return r.Folder
	}
	return r.File
}

type Upload struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.ReadSeeker
}

// UploadError names the file that stopped an upload batch.
type UploadError struct {
	FileName string
	Err      error
}

func (e *UploadError) Error() string {
	return "failed to upload file: " + e.FileName
}

func (e *UploadError) Unwrap() error { return e.Err }

// HierarchyService owns the folder and file lifecycle. Rows are written before
// remote resources are created and removed only after their remote resources
// are gone, so an interrupted call leaves pending metadata, never a leaked object.
type HierarchyService struct {
	DB                *gorm.DB
	Store             storage.ObjectStore
	Access            *AccessService
	Preview           *PreviewService
	DeleteConcurrency int

	now func() time.Time
}

func NewHierarchyService(db *gorm.DB, store storage.ObjectStore) *HierarchyService {
	return &HierarchyService{
		DB:                db,
		Store:             store,
		Access:            NewAccessService(db),
		Preview:           NewPreviewService(store),
		DeleteConcurrency: defaultDeleteConcurrency,
		now:               time.Now,
	}
}

func (h *HierarchyService) CreateFolder(ctx context.Context, userID uuid.UUID, name string, parentID *uuid.UUID) (*models.Folder, error) {
	name = strings.TrimSpace(name)
	if err := ValidateFolderName(name); err != nil {
		return nil, err
	}
	if err := h.Access.RequireParent(ctx, userID, parentID); err != nil {
		return nil, err
	}

	folder := models.Folder{
		Name:     name,
		OwnerID:  userID,
		ParentID: parentID,
	}
	if err := h.DB.WithContext(ctx).Create(&folder).Error; err != nil {
		return nil, fmt.Errorf("creating folder row: %w", err)
	}

	path := storage.FolderPath(userID, parentID, &folder.ID)
	if err := h.Store.CreateFolderPath(ctx, path); err != nil {
		logger.ErrorWithUser(userID.String(), "folder_materialize_failed", err, map[string]interface{}{
			"folder_id": folder.ID.String(),
			"path":      path,
		})
		return nil, fmt.Errorf("materializing folder %s: %w", folder.ID, err)
	}

	res := h.DB.WithContext(ctx).Model(&folder).Update("remote_path", path)
	if res.Error != nil {
		return nil, fmt.Errorf("recording remote path: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		// The row was deleted while the remote path was being created.
		if err := h.Store.DeleteFolderPath(ctx, path); err != nil {
			logger.ErrorWithUser(userID.String(), "folder_materialize_compensation_failed", err, map[string]interface{}{
				"folder_id": folder.ID.String(),
				"path":      path,
			})
		}
		return nil, apperr.NotFound("folder")
	}
	folder.RemotePath = &path

	logger.InfoWithUser(userID.String(), "folder_created", map[string]interface{}{
		"folder_id": folder.ID.String(),
		"name":      folder.Name,
		"parent_id": parentID,
		"path":      path,
	})

	return &folder, nil
}

type cascadeStats struct {
	folders atomic.Int64
	files   atomic.Int64
}

// DeleteFolder removes a folder with every descendant folder and file.
// Children are gone, remotely and as rows, before their parent's row is
// deleted. A failed cascade is resumed by calling DeleteFolder again.
func (h *HierarchyService) DeleteFolder(ctx context.Context, userID, folderID uuid.UUID) error {
	folder, err := h.Access.OwnedFolder(ctx, userID, folderID)
	if err != nil {
		return err
	}

	var stats cascadeStats
	if err := h.deleteFolderTree(ctx, folder, 0, &stats); err != nil {
		logger.ErrorWithUser(userID.String(), "folder_delete_cascade_failed", err, map[string]interface{}{
			"folder_id":       folderID.String(),
			"folders_removed": stats.folders.Load(),
			"files_removed":   stats.files.Load(),
		})
		return err
	}

	logger.InfoWithUser(userID.String(), "folder_delete_cascade", map[string]interface{}{
		"folder_id":       folderID.String(),
		"folders_removed": stats.folders.Load(),
		"files_removed":   stats.files.Load(),
	})
	return nil
}

func (h *HierarchyService) deleteFolderTree(ctx context.Context, folder *models.Folder, depth int, stats *cascadeStats) error {
	if depth > MaxTreeDepth {
		return fmt.Errorf("deleting folder %s: %w", folder.ID, apperr.ErrHierarchyCycle)
	}

	var files []models.File
	if err := h.DB.WithContext(ctx).
		Where("owner_id = ? AND parent_id = ?", folder.OwnerID, folder.ID).
		Find(&files).Error; err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.deleteConcurrency())
	for i := range files {
		file := &files[i]
		g.Go(func() error {
			if err := h.deleteFileRecord(gctx, file); err != nil {
				return err
			}
			stats.files.Add(1)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	var children []models.Folder
	if err := h.DB.WithContext(ctx).
		Where("owner_id = ? AND parent_id = ?", folder.OwnerID, folder.ID).
		Find(&children).Error; err != nil {
		return err
	}
	for i := range children {
		if err := h.deleteFolderTree(ctx, &children[i], depth+1, stats); err != nil {
			return err
		}
	}

	if folder.RemotePath != nil && *folder.RemotePath != "" {
		if err := h.Store.DeleteFolderPath(ctx, *folder.RemotePath); err != nil {
			return fmt.Errorf("deleting remote path %s: %w", *folder.RemotePath, err)
		}
	}

	if err := h.DB.WithContext(ctx).Delete(&models.Folder{}, "id = ?", folder.ID).Error; err != nil {
		return err
	}
	stats.folders.Add(1)
	return nil
}

func (h *HierarchyService) deleteConcurrency() int {
	if h.DeleteConcurrency < 1 {
		return 1
	}
	return h.DeleteConcurrency
}

// deleteFileRecord removes the remote object first; a missing object counts as deleted.
func (h *HierarchyService) deleteFileRecord(ctx context.Context, file *models.File) error {
	if file.ObjectID != "" {
		if err := h.Store.Delete(ctx, file.ObjectID); err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("deleting object for file %s: %w", file.ID, err)
		}
	}
	return h.DB.WithContext(ctx).Delete(&models.File{}, "id = ?", file.ID).Error
}

// RenameItem changes the display name only. Remote paths and URLs stay as they are.
func (h *HierarchyService) RenameItem(ctx context.Context, userID, id uuid.UUID, name string, itemType ItemType) (*RenameResult, error) {
	name = strings.TrimSpace(name)
	now := h.now().UTC()

	switch itemType {
	case ItemFolder:
		if err := ValidateFolderName(name); err != nil {
			return nil, err
		}
		folder, err := h.Access.OwnedFolder(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if err := h.DB.WithContext(ctx).Model(&models.Folder{}).
			Where("id = ?", folder.ID).
			Updates(map[string]interface{}{"name": name, "updated_at": now}).Error; err != nil {
			return nil, err
		}
		folder.Name = name
		folder.UpdatedAt = now
		logger.InfoWithUser(userID.String(), "folder_renamed", map[string]interface{}{
			"folder_id": folder.ID.String(),
			"name":      name,
		})
		return &RenameResult{Type: ItemFolder, Folder: folder}, nil

	case ItemFile:
		if err := ValidateItemName(name); err != nil {
			return nil, err
		}
		file, err := h.Access.OwnedFile(ctx, userID, id)
		if err != nil {
			return nil, err
		}
		if err := h.DB.WithContext(ctx).Model(&models.File{}).
			Where("id = ?", file.ID).
			Updates(map[string]interface{}{"name": name, "updated_at": now}).Error; err != nil {
			return nil, err
		}
		file.Name = name
		file.UpdatedAt = now
		logger.InfoWithUser(userID.String(), "file_renamed", map[string]interface{}{
			"file_id": file.ID.String(),
			"name":    name,
		})
		return &RenameResult{Type: ItemFile, File: file}, nil

	default:
		return nil, apperr.FieldValidation("type", "type must be 'file' or 'folder'")
	}
}

// ResolvePath returns the breadcrumb for folderID, root first. An ancestor that
// no longer resolves ends the walk without error.
func (h *HierarchyService) ResolvePath(ctx context.Context, userID, folderID uuid.UUID) ([]models.Folder, error) {
	leaf, err := h.Access.OwnedFolder(ctx, userID, folderID)
	if err != nil {
		return nil, err
	}

	path := []models.Folder{*leaf}
	visited := map[uuid.UUID]bool{leaf.ID: true}
	current := leaf.ParentID
	for current != nil {
		if visited[*current] || len(path) > MaxTreeDepth {
			return nil, fmt.Errorf("resolving path of %s: %w", folderID, apperr.ErrHierarchyCycle)
		}
		visited[*current] = true

		var folder models.Folder
		if err := h.DB.WithContext(ctx).
			Where("id = ? AND owner_id = ?", *current, userID).
			First(&folder).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				break
			}
			return nil, err
		}

		path = append(path, folder)
		current = folder.ParentID
	}

	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, nil
}

// BuildTree assembles the user's folders into a forest. Folders whose parent
// no longer exists are promoted to the top level so each appears exactly once.
func (h *HierarchyService) BuildTree(ctx context.Context, userID uuid.UUID) ([]*models.FolderNode, error) {
	var folders []models.Folder
	if err := h.DB.WithContext(ctx).
		Where("owner_id = ?", userID).
		Order("name ASC").
		Find(&folders).Error; err != nil {
		return nil, err
	}

	known := make(map[uuid.UUID]bool, len(folders))
	for _, folder := range folders {
		known[folder.ID] = true
	}

	groups := make(map[uuid.UUID][]*models.FolderNode)
	for _, folder := range folders {
		key := uuid.Nil
		if folder.ParentID != nil && known[*folder.ParentID] {
			key = *folder.ParentID
		}
		groups[key] = append(groups[key], &models.FolderNode{
			ID:       folder.ID,
			Name:     folder.Name,
			ParentID: folder.ParentID,
			Children: []*models.FolderNode{},
		})
	}

	attached := 0
	var attach func(nodes []*models.FolderNode, depth int) error
	attach = func(nodes []*models.FolderNode, depth int) error {
		if depth > MaxTreeDepth {
			return apperr.ErrHierarchyCycle
		}
		for _, node := range nodes {
			attached++
			if children, ok := groups[node.ID]; ok {
				node.Children = children
				if err := attach(children, depth+1); err != nil {
					return err
				}
			}
		}
		return nil
	}

	roots := groups[uuid.Nil]
	if roots == nil {
		roots = []*models.FolderNode{}
	}
	if err := attach(roots, 0); err != nil {
		return nil, err
	}
	if attached != len(folders) {
		logger.ErrorWithUser(userID.String(), "folder_tree_cycle", apperr.ErrHierarchyCycle, map[string]interface{}{
			"folders":  len(folders),
			"attached": attached,
		})
		return nil, apperr.ErrHierarchyCycle
	}
	return roots, nil
}

// ListFolder returns the immediate children of parentID, or of the root when nil.
func (h *HierarchyService) ListFolder(ctx context.Context, userID uuid.UUID, parentID *uuid.UUID) (*FolderListing, error) {
	if parentID != nil {
		if _, err := h.Access.OwnedFolder(ctx, userID, *parentID); err != nil {
			return nil, err
		}
	}

	listing := &FolderListing{Folders: []models.Folder{}, Files: []models.File{}}
	if err := scopeParent(h.DB.WithContext(ctx).Where("owner_id = ?", userID), parentID).
		Order("name ASC").
		Find(&listing.Folders).Error; err != nil {
		return nil, err
	}
	if err := scopeParent(h.DB.WithContext(ctx).Where("owner_id = ?", userID), parentID).
		Order("name ASC").
		Find(&listing.Files).Error; err != nil {
		return nil, err
	}
	return listing, nil
}

func scopeParent(tx *gorm.DB, parentID *uuid.UUID) *gorm.DB {
	if parentID == nil {
		return tx.Where("parent_id IS NULL")
	}
	return tx.Where("parent_id = ?", *parentID)
}

// Search matches names case-insensitively across all of the user's folders,
// most recently modified first, returning at most SearchLimit items in total.
// A blank query matches nothing.
func (h *HierarchyService) Search(ctx context.Context, userID uuid.UUID, query string) (*SearchResult, error) {
	result := &SearchResult{Files: []models.File{}, Folders: []models.Folder{}}

	query = strings.TrimSpace(query)
	if query == "" {
		return result, nil
	}
	pattern := "%" + escapeLike(strings.ToLower(query)) + "%"

	if err := h.DB.WithContext(ctx).
		Where("owner_id = ? AND LOWER(name) LIKE ? ESCAPE '\\'", userID, pattern).
		Order("updated_at DESC").
		Limit(SearchLimit).
		Find(&result.Files).Error; err != nil {
		return nil, err
	}
	if err := h.DB.WithContext(ctx).
		Where("owner_id = ? AND LOWER(name) LIKE ? ESCAPE '\\'", userID, pattern).
		Order("updated_at DESC").
		Limit(SearchLimit).
		Find(&result.Folders).Error; err != nil {
		return nil, err
	}

	// Keep the SearchLimit most recent matches across both kinds.
	f, d := 0, 0
	for f+d < SearchLimit && (f < len(result.Files) || d < len(result.Folders)) {
		if d >= len(result.Folders) || (f < len(result.Files) && !result.Files[f].UpdatedAt.Before(result.Folders[d].UpdatedAt)) {
			f++
		} else {
			d++
		}
	}
	result.Files = result.Files[:f]
	result.Folders = result.Folders[:d]
	return result, nil
}

// UploadFiles stores each file remotely and then records it. The batch stops at
// the first failure; files already stored by the batch are kept.
func (h *HierarchyService) UploadFiles(ctx context.Context, userID uuid.UUID, parentID *uuid.UUID, uploads []Upload) ([]models.File, error) {
	if len(uploads) == 0 {
		return nil, apperr.FieldValidation("files", "at least one file is required")
	}
	names := make([]string, len(uploads))
	for i, upload := range uploads {
		names[i] = filepath.Base(strings.TrimSpace(upload.Name))
		if names[i] == "." || names[i] == "/" {
			names[i] = ""
		}
		if err := ValidateItemName(names[i]); err != nil {
			return nil, apperr.FieldValidation("files", fmt.Sprintf("file %d has an invalid name", i+1))
		}
	}
	if err := h.Access.RequireParent(ctx, userID, parentID); err != nil {
		return nil, err
	}

	folder := storage.FolderPath(userID, parentID, nil)
	created := make([]models.File, 0, len(uploads))
	for i, upload := range uploads {
		entry, err := h.uploadOne(ctx, userID, parentID, folder, names[i], upload)
		if err != nil {
			logger.ErrorWithUser(userID.String(), "file_upload_failed", err, map[string]interface{}{
				"file_name": names[i],
				"parent_id": parentID,
				"uploaded":  len(created),
			})
			return created, &UploadError{FileName: names[i], Err: err}
		}
		created = append(created, *entry)
	}
	return created, nil
}

func (h *HierarchyService) uploadOne(ctx context.Context, userID uuid.UUID, parentID *uuid.UUID, folder, name string, upload Upload) (*models.File, error) {
	ext := strings.ToLower(filepath.Ext(name))
	contentType := upload.MimeType
	if contentType == "" {
		contentType = mime.TypeByExtension(ext)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	res, err := h.Store.Upload(ctx, storage.UploadInput{
		Folder:   folder,
		Name:     storage.ObjectName(name, h.now()),
		MimeType: contentType,
		Size:     upload.Size,
		Body:     upload.Body,
	})
	if err != nil {
		return nil, err
	}

	entry := models.File{
		Name:      name,
		OwnerID:   userID,
		ParentID:  parentID,
		Size:      upload.Size,
		MimeType:  contentType,
		Extension: strings.TrimPrefix(ext, "."),
		URL:       res.URL,
		ObjectID:  res.ObjectID,
	}
	if err := h.DB.WithContext(ctx).Create(&entry).Error; err != nil {
		if delErr := h.Store.Delete(ctx, res.ObjectID); delErr != nil {
			logger.ErrorWithUser(userID.String(), "file_upload_compensation_failed", delErr, map[string]interface{}{
				"object_id": res.ObjectID,
			})
		}
		return nil, fmt.Errorf("creating file row: %w", err)
	}

	logger.InfoWithUser(userID.String(), "file_uploaded", map[string]interface{}{
		"file_id":   entry.ID.String(),
		"file_name": name,
		"file_size": upload.Size,
		"mime_type": contentType,
		"object_id": res.ObjectID,
		"parent_id": parentID,
	})
	return &entry, nil
}

func (h *HierarchyService) DeleteFile(ctx context.Context, userID, fileID uuid.UUID) error {
	file, err := h.Access.OwnedFile(ctx, userID, fileID)
	if err != nil {
		return err
	}
	if err := h.deleteFileRecord(ctx, file); err != nil {
		return err
	}

	logger.InfoWithUser(userID.String(), "file_deleted", map[string]interface{}{
		"file_id":   fileID.String(),
		"object_id": file.ObjectID,
	})
	return nil
}

func (h *HierarchyService) PreviewURL(ctx context.Context, userID, fileID uuid.UUID) (string, error) {
	file, err := h.Access.OwnedFile(ctx, userID, fileID)
	if err != nil {
		return "", err
	}
	return h.Preview.URL(ctx, file), nil
}
