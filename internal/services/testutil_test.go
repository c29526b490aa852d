package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/emmayusufu/googledriveclone/internal/database"
	"github.com/emmayusufu/googledriveclone/internal/models"
	"github.com/emmayusufu/googledriveclone/internal/storage"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type serviceEnv struct {
	db    *gorm.DB
	store *storage.MemoryStore
	svc   *HierarchyService
	user  *models.User
}

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "failed opening in-memory sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db), "failed automigrating models")
	return db
}

func setupServiceEnv(t *testing.T) *serviceEnv {
	t.Helper()

	db := setupServiceTestDB(t)
	store := storage.NewMemoryStore("http://cdn.test")
	return &serviceEnv{
		db:    db,
		store: store,
		svc:   NewHierarchyService(db, store),
		user:  createServiceUser(t, db, "owner@test.com"),
	}
}

func createServiceUser(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	user := &models.User{Email: email, PasswordHash: "hash", Name: "Test User"}
	require.NoError(t, db.Create(user).Error, "failed creating user")
	return user
}

func (e *serviceEnv) mkdir(t *testing.T, name string, parent *models.Folder) *models.Folder {
	t.Helper()

	var parentID *uuid.UUID
	if parent != nil {
		parentID = &parent.ID
	}
	folder, err := e.svc.CreateFolder(context.Background(), e.user.ID, name, parentID)
	require.NoError(t, err, "failed creating folder %q", name)
	return folder
}

func (e *serviceEnv) upload(t *testing.T, parent *models.Folder, names ...string) []models.File {
	t.Helper()

	var parentID *uuid.UUID
	if parent != nil {
		parentID = &parent.ID
	}
	uploads := make([]Upload, len(names))
	for i, name := range names {
		body := "content of " + name
		uploads[i] = Upload{Name: name, Size: int64(len(body)), Body: strings.NewReader(body)}
	}
	files, err := e.svc.UploadFiles(context.Background(), e.user.ID, parentID, uploads)
	require.NoError(t, err, "failed uploading %v", names)
	return files
}

func (e *serviceEnv) count(t *testing.T, model interface{}) int64 {
	t.Helper()

	var n int64
	require.NoError(t, e.db.Model(model).Count(&n).Error)
	return n
}

func (e *serviceEnv) setParent(t *testing.T, folderID uuid.UUID, parentID uuid.UUID) {
	t.Helper()
	require.NoError(t, e.db.Model(&models.Folder{}).Where("id = ?", folderID).Update("parent_id", parentID).Error)
}

func (e *serviceEnv) touch(t *testing.T, model interface{}, id uuid.UUID, at time.Time) {
	t.Helper()
	require.NoError(t, e.db.Model(model).Where("id = ?", id).UpdateColumn("updated_at", at).Error)
}

func folderNames(folders []models.Folder) []string {
	names := make([]string, len(folders))
	for i, folder := range folders {
		names[i] = folder.Name
	}
	return names
}

func fileNames(files []models.File) []string {
	names := make([]string, len(files))
	for i, file := range files {
		names[i] = file.Name
	}
	return names
}

// hookedStore runs a callback after each successful CreateFolderPath, letting a
// test change metadata while a remote call is in flight.
type hookedStore struct {
	*storage.MemoryStore
	afterCreateFolderPath func(path string)
}

func (s *hookedStore) CreateFolderPath(ctx context.Context, path string) error {
	if err := s.MemoryStore.CreateFolderPath(ctx, path); err != nil {
		return err
	}
	if s.afterCreateFolderPath != nil {
		s.afterCreateFolderPath(path)
	}
	return nil
}
