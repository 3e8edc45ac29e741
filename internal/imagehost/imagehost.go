// Package imagehost stores post images in S3-compatible object storage.
package imagehost

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"strings"

	_ "golang.org/x/image/webp"
)

// Host uploads local image files and deletes them again by URL.
type Host interface {
	Upload(ctx context.Context, localPath string) (string, error)
	Delete(ctx context.Context, url string) error
}

// Config describes the bucket images are written to.
type Config struct {
	Endpoint      string
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	Folder        string
	PublicBaseURL string
	UsePathStyle  bool
}

var (
	// ErrDisabled is returned by uploads when no bucket is configured.
	ErrDisabled = errors.New("image host is not configured")
	// ErrNotAnImage is returned when the uploaded file does not decode as a supported image.
	ErrNotAnImage = errors.New("file is not a supported image")
	// ErrForeignURL is returned when a URL does not point into this host's bucket.
	ErrForeignURL = errors.New("url does not belong to this image host")
)

var extensions = map[string]string{
	"jpeg": ".jpg",
	"png":  ".png",
	"gif":  ".gif",
	"webp": ".webp",
}

var contentTypes = map[string]string{
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// Sniff decodes just the header of r and reports the image format's file
// extension and content type.
func Sniff(r io.Reader) (ext, contentType string, err error) {
	_, format, err := image.DecodeConfig(r)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}
	ext, ok := extensions[format]
	if !ok {
		return "", "", fmt.Errorf("%w: format %q", ErrNotAnImage, format)
	}
	return ext, contentTypes[format], nil
}

// PublicIDFromURL derives the object key from a URL produced by a host with the given base URL.
func PublicIDFromURL(baseURL, url string) (string, error) {
	prefix := strings.TrimRight(baseURL, "/") + "/"
	if baseURL == "" || !strings.HasPrefix(url, prefix) {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	key := strings.TrimPrefix(url, prefix)
	if i := strings.IndexAny(key, "?#"); i >= 0 {
		key = key[:i]
	}
	if key == "" {
		return "", fmt.Errorf("%w: %s", ErrForeignURL, url)
	}
	return key, nil
}

// Disabled is the host used when no bucket is configured. Uploads fail, so posts are
// saved without images, and deletes do nothing.
type Disabled struct{}

func (Disabled) Upload(_ context.Context, localPath string) (string, error) {
	_ = os.Remove(localPath)
	return "", ErrDisabled
}

func (Disabled) Delete(context.Context, string) error {
	return nil
}
