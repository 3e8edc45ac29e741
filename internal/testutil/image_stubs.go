package testutil

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/google/uuid"
)

// ErrStubUpload is returned by ImageHostStub when FailUploads is set.
var ErrStubUpload = errors.New("stub upload failure")

// ImageHostStub is an in-memory image host. It records every upload and delete
// and removes uploaded temp files the way the real host does.
type ImageHostStub struct {
	mu          sync.Mutex
	FailUploads bool
	FailDeletes bool
	Uploaded    []string
	Deleted     []string
}

// NewImageHostStub creates an image host stub for tests.
func NewImageHostStub() *ImageHostStub {
	return &ImageHostStub{}
}

func (s *ImageHostStub) Upload(_ context.Context, localPath string) (string, error) {
	_ = os.Remove(localPath)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailUploads {
		return "", ErrStubUpload
	}
	url := "https://images.test/quill/" + uuid.NewString() + ".png"
	s.Uploaded = append(s.Uploaded, url)
	return url, nil
}

func (s *ImageHostStub) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailDeletes {
		return errors.New("stub delete failure")
	}
	s.Deleted = append(s.Deleted, url)
	return nil
}

// WriteTempFile writes a throwaway upload file and returns its path.
func WriteTempFile(dir string) (string, error) {
	f, err := os.CreateTemp(dir, "upload-*.png")
	if err != nil {
		return "", err
	}
	defer f.Close()
	_, err = f.WriteString("fake image bytes")
	return f.Name(), err
}
