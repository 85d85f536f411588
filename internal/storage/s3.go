package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/points-service/internal/config"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

// ErrDisabled is returned when no bucket is configured.
var ErrDisabled = errors.New("proof storage not configured")

var allowedContentTypes = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
}

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Upload describes a stored proof file.
type Upload struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// ProofStore writes proof attachments to an S3 compatible bucket.
type ProofStore struct {
	client   ObjectPutter
	bucket   string
	baseURL  string
	maxBytes int64
	logger   *zap.Logger
}

// NewS3Client builds a client from static credentials. A custom endpoint switches to
// path style addressing for S3 compatible services.
func NewS3Client(cfg config.StorageConfig) *s3.Client {
	awsCfg := aws.Config{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
}

// NewProofStore returns nil when storage is disabled.
func NewProofStore(client ObjectPutter, cfg config.StorageConfig, logger *zap.Logger) *ProofStore {
	if !cfg.Enabled() || client == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProofStore{
		client:   client,
		bucket:   cfg.Bucket,
		baseURL:  publicBaseURL(cfg),
		maxBytes: cfg.MaxUploadBytes,
		logger:   logger,
	}
}

func publicBaseURL(cfg config.StorageConfig) string {
	if cfg.PublicBaseURL != "" {
		return strings.TrimRight(cfg.PublicBaseURL, "/")
	}
	if cfg.Endpoint != "" {
		return strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
}

// MaxBytes is the largest accepted upload.
func (p *ProofStore) MaxBytes() int64 {
	if p == nil {
		return 0
	}
	return p.maxBytes
}

// PutProof stores body under a fresh key scoped to the uploading user.
func (p *ProofStore) PutProof(ctx context.Context, userID, contentType string, size int64, body io.Reader) (*Upload, error) {
	if p == nil {
		return nil, apperrors.NewUnavailable(ErrDisabled.Error())
	}
	contentType = strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	ext, ok := allowedContentTypes[contentType]
	if !ok {
		return nil, apperrors.NewValidationError("unsupported file type", map[string]any{"content_type": contentType})
	}
	if size <= 0 {
		return nil, apperrors.NewValidationError("file is empty", nil)
	}
	if p.maxBytes > 0 && size > p.maxBytes {
		return nil, apperrors.NewValidationError("file too large", map[string]any{"max_bytes": p.maxBytes})
	}

	key := path.Join("proofs", userID, uuid.NewString()+ext)
	_, err := p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(p.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		p.logger.Error("proof upload failed", zap.String("key", key), zap.Error(err))
		return nil, apperrors.NewInternalError(fmt.Errorf("put object: %w", err))
	}
	p.logger.Info("proof uploaded", zap.String("key", key), zap.Int64("bytes", size))
	return &Upload{Key: key, URL: p.baseURL + "/" + key}, nil
}
