package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Operation names accepted by MemoryStore.FailNext and MemoryStore.Calls.
const (
	OpUpload           = "upload"
	OpDelete           = "delete"
	OpCreateFolderPath = "create_folder_path"
	OpDeleteFolderPath = "delete_folder_path"
)

// MemoryStore keeps objects in process. It backs the memory driver and the
// service tests, which use FailNext to inject remote failures.
type MemoryStore struct {
	mu       sync.Mutex
	baseURL  string
	objects  map[string][]byte
	folders  map[string]struct{}
	failures map[string][]error
	calls    map[string]int
}

func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://drive"
	}
	return &MemoryStore{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		objects:  make(map[string][]byte),
		folders:  make(map[string]struct{}),
		failures: make(map[string][]error),
		calls:    make(map[string]int),
	}
}

// FailNext queues errors returned by the next calls to op, in order.
func (m *MemoryStore) FailNext(op string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[op] = append(m.failures[op], errs...)
}

func (m *MemoryStore) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

func (m *MemoryStore) HasObject(objectID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[objectID]
	return ok
}

func (m *MemoryStore) Object(objectID string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[objectID]
	return data, ok
}

func (m *MemoryStore) HasFolder(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.folders[folderMarker(path)]
	return ok
}

func (m *MemoryStore) ObjectCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}

// begin records the call and pops a queued failure. Callers hold m.mu.
func (m *MemoryStore) begin(op string) error {
	m.calls[op]++
	queued := m.failures[op]
	if len(queued) == 0 {
		return nil
	}
	m.failures[op] = queued[1:]
	return queued[0]
}

func (m *MemoryStore) Upload(ctx context.Context, in UploadInput) (UploadResult, error) {
	if err := ctx.Err(); err != nil {
		return UploadResult{}, err
	}
	if in.Body == nil {
		return UploadResult{}, Permanent(fmt.Errorf("upload %s: empty body", in.Name))
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return UploadResult{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpUpload); err != nil {
		return UploadResult{}, err
	}

	key := objectKey(in.Folder, in.Name)
	m.objects[key] = data
	return UploadResult{URL: m.baseURL + "/" + key, ObjectID: key}, nil
}

func (m *MemoryStore) Delete(ctx context.Context, objectID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpDelete); err != nil {
		return err
	}
	delete(m.objects, objectID)
	return nil
}

func (m *MemoryStore) CreateFolderPath(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpCreateFolderPath); err != nil {
		return err
	}
	m.folders[folderMarker(path)] = struct{}{}
	return nil
}

func (m *MemoryStore) DeleteFolderPath(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.begin(OpDeleteFolderPath); err != nil {
		return err
	}

	prefix := folderMarker(path)
	for marker := range m.folders {
		if strings.HasPrefix(marker, prefix) {
			delete(m.folders, marker)
		}
	}
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			delete(m.objects, key)
		}
	}
	return nil
}

func (m *MemoryStore) PresignedURL(ctx context.Context, objectID string, expiry time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[objectID]; !ok {
		return "", ErrObjectNotFound
	}
	return fmt.Sprintf("%s/%s?expires=%d", m.baseURL, objectID, time.Now().Add(expiry).Unix()), nil
}
