// Package storage keeps the original uploaded files in S3-compatible object
// storage. Clients upload directly through pre-signed PUT URLs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/docingest/internal/config"
)

// MaxObjectBytes bounds downloads; it matches the client-side file ceiling.
const MaxObjectBytes = 50 << 20

const uploadPrefix = "uploads/"

var (
	ErrNotFound   = errors.New("object not found")
	ErrInvalidKey = errors.New("invalid object key")
	ErrTooLarge   = errors.New("object exceeds size limit")
)

// ObjectStore is the object storage interface used by the API.
type ObjectStore interface {
	PresignPut(ctx context.Context, key, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	Download(ctx context.Context, key string) ([]byte, error)
}

// S3Store implements ObjectStore on aws-sdk-go-v2.
type S3Store struct {
	client     *s3.Client
	presigner  *s3.PresignClient
	downloader *manager.Downloader
	bucket     string
	ttl        time.Duration
}

var _ ObjectStore = (*S3Store)(nil)

// NewS3Store builds an S3 client from cfg. A custom endpoint (MinIO,
// LocalStack) switches to path-style addressing.
func NewS3Store(ctx context.Context, cfg config.StorageConfig) (*S3Store, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	ttl := cfg.PresignTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	return &S3Store{
		client:     client,
		presigner:  s3.NewPresignClient(client),
		downloader: manager.NewDownloader(client),
		bucket:     cfg.Bucket,
		ttl:        ttl,
	}, nil
}

// PresignPut returns a URL the client can PUT the object to until the TTL
// elapses. The upload must carry the same Content-Type.
func (s *S3Store) PresignPut(ctx context.Context, key, contentType string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign put: %w", err)
	}
	return req.URL, nil
}

// Delete removes an object. Deleting a missing object succeeds.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}
	ctxDel, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	_, err := s.client.DeleteObject(ctxDel, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete: %w", err)
	}
	return nil
}

// Download reads a whole object into memory.
func (s *S3Store) Download(ctx context.Context, key string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}
	ctxGet, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	buf := manager.NewWriteAtBuffer(make([]byte, 0, 1<<20))
	n, err := s.downloader.Download(ctxGet, buf, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("s3 download: %w", err)
	}
	if n > MaxObjectBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, key, n)
	}
	return buf.Bytes()[:n], nil
}

var reUnsafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey builds a unique key for an upload of filename.
func ObjectKey(filename string, now time.Time) string {
	base := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	base = strings.Trim(reUnsafe.ReplaceAllString(base, "_"), "._")
	if base == "" {
		base = "file"
	}
	if len(base) > 100 {
		base = base[len(base)-100:]
	}
	return fmt.Sprintf("%s%s/%s-%s", uploadPrefix, now.UTC().Format("2006/01"), uuid.NewString(), base)
}

// ValidateKey rejects keys outside the upload prefix, so clients cannot
// touch arbitrary objects in the bucket.
func ValidateKey(key string) error {
	if !strings.HasPrefix(key, uploadPrefix) || strings.Contains(key, "..") || path.Clean(key) != key {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}
