// Package storage is the boundary to the remote object store. Drivers treat a
// missing object or folder as already deleted, so delete operations converge
// when retried.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

const rootPrefix = "uploads"

var ErrObjectNotFound = errors.New("object not found")

type UploadInput struct {
	Folder   string
	Name     string
	MimeType string
	Size     int64
	Body     io.ReadSeeker
}

type UploadResult struct {
	URL      string `json:"url"`
	ObjectID string `json:"objectID"`
}

type ObjectStore interface {
	Upload(ctx context.Context, in UploadInput) (UploadResult, error)
	Delete(ctx context.Context, objectID string) error
	CreateFolderPath(ctx context.Context, path string) error
	DeleteFolderPath(ctx context.Context, path string) error
}

// Presigner is implemented by stores able to hand out temporary read URLs.
type Presigner interface {
	PresignedURL(ctx context.Context, objectID string, expiry time.Duration) (string, error)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks a driver error that retrying cannot fix.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var target *permanentError
	return errors.As(err, &target)
}

// FolderPath builds uploads/{userID}[/{parentID}][/{folderID}].
func FolderPath(userID uuid.UUID, parentID *uuid.UUID, folderID *uuid.UUID) string {
	path := fmt.Sprintf("%s/%s", rootPrefix, userID.String())
	if parentID != nil {
		path += "/" + parentID.String()
	}
	if folderID != nil {
		path += "/" + folderID.String()
	}
	return path
}

// ObjectName derives a unique object name from a display name.
func ObjectName(name string, now time.Time) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '/' {
			return '_'
		}
		return r
	}, name)
	return fmt.Sprintf("%d-%s", now.UnixMilli(), cleaned)
}

func objectKey(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return folder + "/" + name
}

func folderMarker(path string) string {
	return strings.TrimSuffix(path, "/") + "/"
}

func publicObjectURL(base, bucket, key string) string {
	return strings.TrimSuffix(base, "/") + "/" + bucket + "/" + key
}
