package storage

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emmayusufu/googledriveclone/internal/config"
	"github.com/emmayusufu/googledriveclone/pkg/logger"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

type MinIOStore struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

func NewMinIOStore(cfg config.StorageConfig) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, err
	}

	publicURL := cfg.PublicURL
	if publicURL == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicURL = scheme + "://" + cfg.Endpoint
	}

	return &MinIOStore{
		client:    client,
		bucket:    cfg.Bucket,
		publicURL: publicURL,
	}, nil
}

func (m *MinIOStore) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	key := objectKey(in.Folder, in.Name)
	_, err := m.client.PutObject(ctx, m.bucket, key, in.Body, in.Size, minio.PutObjectOptions{
		ContentType: in.MimeType,
	})
	if err != nil {
		logger.Error("minio_upload_failed", err, map[string]interface{}{
			"object_id":    key,
			"size":         in.Size,
			"content_type": in.MimeType,
			"bucket":       m.bucket,
		})
		return UploadResult{}, classifyMinIOError(err)
	}

	logger.Info("minio_upload_success", map[string]interface{}{
		"object_id":    key,
		"size":         in.Size,
		"content_type": in.MimeType,
		"bucket":       m.bucket,
	})
	return UploadResult{URL: publicObjectURL(m.publicURL, m.bucket, key), ObjectID: key}, nil
}

func (m *MinIOStore) Delete(ctx context.Context, objectID string) error {
	err := m.client.RemoveObject(ctx, m.bucket, objectID, minio.RemoveObjectOptions{})
	if err != nil && !isMinIONotFound(err) {
		logger.Error("minio_delete_failed", err, map[string]interface{}{
			"object_id": objectID,
			"bucket":    m.bucket,
		})
		return classifyMinIOError(err)
	}

	logger.Info("minio_delete_success", map[string]interface{}{
		"object_id":       objectID,
		"bucket":          m.bucket,
		"already_deleted": err != nil,
	})
	return nil
}

func (m *MinIOStore) CreateFolderPath(ctx context.Context, path string) error {
	marker := folderMarker(path)
	_, err := m.client.PutObject(ctx, m.bucket, marker, strings.NewReader(""), 0, minio.PutObjectOptions{
		ContentType: "application/x-directory",
	})
	if err != nil {
		logger.Error("minio_create_folder_failed", err, map[string]interface{}{
			"path":   path,
			"bucket": m.bucket,
		})
		return classifyMinIOError(err)
	}

	logger.Info("minio_create_folder_success", map[string]interface{}{
		"path":   path,
		"bucket": m.bucket,
	})
	return nil
}

// DeleteFolderPath removes the folder marker and anything left below it.
func (m *MinIOStore) DeleteFolderPath(ctx context.Context, path string) error {
	prefix := folderMarker(path)
	objects := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})

	toRemove := make(chan minio.ObjectInfo)
	listErr := make(chan error, 1)
	go func() {
		defer close(toRemove)
		for obj := range objects {
			if obj.Err != nil {
				listErr <- obj.Err
				return
			}
			select {
			case toRemove <- obj:
			case <-ctx.Done():
				listErr <- ctx.Err()
				return
			}
		}
		listErr <- nil
	}()

	removed := 0
	var removeErr error
	for result := range m.client.RemoveObjects(ctx, m.bucket, toRemove, minio.RemoveObjectsOptions{}) {
		if result.Err != nil && !isMinIONotFound(result.Err) && removeErr == nil {
			removeErr = fmt.Errorf("removing %s: %w", result.ObjectName, result.Err)
		}
		removed++
	}

	err := <-listErr
	if err == nil {
		err = removeErr
	}
	if err != nil && !isMinIONotFound(err) {
		logger.Error("minio_delete_folder_failed", err, map[string]interface{}{
			"path":   path,
			"bucket": m.bucket,
		})
		return classifyMinIOError(err)
	}

	logger.Info("minio_delete_folder_success", map[string]interface{}{
		"path":   path,
		"bucket": m.bucket,
	})
	return nil
}

func (m *MinIOStore) PresignedURL(ctx context.Context, objectID string, expiry time.Duration) (string, error) {
	urlValue, err := m.client.PresignedGetObject(ctx, m.bucket, objectID, expiry, nil)
	if err != nil {
		return "", err
	}
	return urlValue.String(), nil
}

func (m *MinIOStore) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed creating bucket %s: %w", m.bucket, err)
	}
	return nil
}

func isMinIONotFound(err error) bool {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchObject":
		return true
	}
	return resp.StatusCode == http.StatusNotFound && resp.Code != "NoSuchBucket"
}

func classifyMinIOError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "AccessDenied", "NoSuchBucket", "InvalidBucketName", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return Permanent(err)
	}
	return err
}
