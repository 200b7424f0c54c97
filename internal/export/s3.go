package export

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"

	"playground/internal/logging"
	"playground/internal/vfs"
)

// S3Config locates the bucket a snapshot is uploaded to.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3Exporter uploads files to an S3-compatible bucket under a prefix.
type S3Exporter struct {
	client *minio.Client
	bucket string
	region string
	prefix string
	logger *zerolog.Logger

	initOnce sync.Once
	initErr  error
}

// NewS3Exporter validates cfg and builds the client. No request is made
// until the first export.
func NewS3Exporter(cfg S3Config, logger *zerolog.Logger) (*S3Exporter, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	if logger == nil {
		logger = logging.Nop()
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}
	return &S3Exporter{
		client: client,
		bucket: bucket,
		region: region,
		prefix: strings.Trim(strings.TrimSpace(cfg.Prefix), "/"),
		logger: logger,
	}, nil
}

func (s *S3Exporter) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Export implements Exporter.
func (s *S3Exporter) Export(ctx context.Context, files []*vfs.VirtualFile) (int, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return 0, fmt.Errorf("ensure bucket: %w", err)
	}
	written := 0
	for _, f := range files {
		name, err := cleanPath(f.Filepath())
		if err != nil {
			return written, err
		}
		key := s.objectKey(name)
		content := f.Content()
		_, err = s.client.PutObject(ctx, s.bucket, key, strings.NewReader(content), int64(len(content)), minio.PutObjectOptions{
			ContentType: contentType(name),
		})
		if err != nil {
			return written, fmt.Errorf("upload %s: %w", key, err)
		}
		written++
	}
	s.logger.Info().Int("files", written).Str("bucket", s.bucket).Str("prefix", s.prefix).Msg("exported project")
	return written, nil
}

func (s *S3Exporter) objectKey(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "/" + name
}
