package imagehost

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"quill/internal/middleware"
	"quill/internal/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectStore {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// objectStore is the subset of the S3 client the host uses.
type objectStore interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Host stores images in one bucket under a folder prefix.
type S3Host struct {
	store   objectStore
	bucket  string
	folder  string
	baseURL string
}

// New returns the host described by cfg, or Disabled when no bucket is set.
func New(ctx context.Context, cfg Config) (Host, error) {
	if cfg.Bucket == "" {
		middleware.Logger.Warn("S3_BUCKET not set, post images are disabled")
		return Disabled{}, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	store := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3Host(store, cfg), nil
}

// NewS3Host wraps an existing object store.
func NewS3Host(store objectStore, cfg Config) *S3Host {
	return &S3Host{
		store:   store,
		bucket:  cfg.Bucket,
		folder:  strings.Trim(cfg.Folder, "/"),
		baseURL: publicBaseURL(cfg),
	}
}

func publicBaseURL(cfg Config) string {
	switch {
	case cfg.PublicBaseURL != "":
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	case cfg.Endpoint != "" && cfg.UsePathStyle:
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	case cfg.Endpoint != "":
		return strings.Replace(strings.TrimRight(cfg.Endpoint, "/"), "://", "://"+cfg.Bucket+".", 1)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
	}
}

// BaseURL is the prefix of every URL this host returns.
func (h *S3Host) BaseURL() string {
	return h.baseURL
}

// Upload validates the file at localPath as an image, stores it under a random key
// and returns its public URL. The local file is removed whether or not the upload succeeds.
func (h *S3Host) Upload(ctx context.Context, localPath string) (url string, err error) {
	ctx, span := observability.StartSpan(ctx, "imagehost", "Upload", attribute.String("bucket", h.bucket))
	defer func() {
		observability.EndSpan(span, err)
		if err != nil {
			observability.RecordImageOperation(observability.ImageOutcomeUploadFailed)
		} else {
			observability.RecordImageOperation(observability.ImageOutcomeUploaded)
		}
	}()
	defer func() {
		if rmErr := os.Remove(localPath); rmErr != nil && !os.IsNotExist(rmErr) {
			middleware.Logger.WarnContext(ctx, "failed to remove temp upload", slog.String("path", localPath), slog.String("error", rmErr.Error()))
		}
	}()

	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	ext, contentType, err := Sniff(f)
	if err != nil {
		return "", err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind upload: %w", err)
	}

	key := path.Join(h.folder, uuid.NewString()+ext)
	_, err = h.store.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(h.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}

	return h.baseURL + "/" + key, nil
}

// Delete removes the object a URL points at.
func (h *S3Host) Delete(ctx context.Context, url string) (err error) {
	ctx, span := observability.StartSpan(ctx, "imagehost", "Delete", attribute.String("bucket", h.bucket))
	defer func() { observability.EndSpan(span, err) }()

	key, err := PublicIDFromURL(h.baseURL, url)
	if err != nil {
		observability.RecordImageOperation(observability.ImageOutcomeDeleteSkippedURL)
		return err
	}

	_, err = h.store.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		observability.RecordImageOperation(observability.ImageOutcomeDeleteFailed)
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	observability.RecordImageOperation(observability.ImageOutcomeDeleted)
	return nil
}
