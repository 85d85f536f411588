package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/points-service/internal/config"
	apperrors "github.com/spec-kit/points-service/pkg/util/errorutil"
)

type recordingPutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (r *recordingPutter) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	r.input = params
	data, _ := io.ReadAll(params.Body)
	r.body = string(data)
	return &s3.PutObjectOutput{}, r.err
}

func storageConfig() config.StorageConfig {
	return config.StorageConfig{
		Bucket:         "proofs-bucket",
		Region:         "eu-central-1",
		PublicBaseURL:  "https://cdn.bestis.ro/",
		MaxUploadBytes: 16,
	}
}

func TestPutProof(t *testing.T) {
	putter := &recordingPutter{}
	store := NewProofStore(putter, storageConfig(), nil)

	upload, err := store.PutProof(context.Background(), "user-1", "image/png; charset=binary", 4, strings.NewReader("data"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(upload.Key, "proofs/user-1/"))
	require.True(t, strings.HasSuffix(upload.Key, ".png"))
	require.Equal(t, "https://cdn.bestis.ro/"+upload.Key, upload.URL)
	require.Equal(t, "proofs-bucket", aws.ToString(putter.input.Bucket))
	require.Equal(t, "image/png", aws.ToString(putter.input.ContentType))
	require.Equal(t, "data", putter.body)
}

func TestPutProofRejectsBadInput(t *testing.T) {
	store := NewProofStore(&recordingPutter{}, storageConfig(), nil)
	ctx := context.Background()

	_, err := store.PutProof(ctx, "u", "text/html", 4, strings.NewReader("data"))
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	_, err = store.PutProof(ctx, "u", "image/png", 17, strings.NewReader(strings.Repeat("x", 17)))
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
	_, err = store.PutProof(ctx, "u", "image/png", 0, strings.NewReader(""))
	require.True(t, apperrors.HasCode(err, apperrors.CodeValidationFailed))
}

func TestPutProofFailures(t *testing.T) {
	store := NewProofStore(&recordingPutter{err: errors.New("boom")}, storageConfig(), nil)
	_, err := store.PutProof(context.Background(), "u", "application/pdf", 4, strings.NewReader("data"))
	require.True(t, apperrors.HasCode(err, apperrors.CodeInternal))

	var disabled *ProofStore
	_, err = disabled.PutProof(context.Background(), "u", "application/pdf", 4, strings.NewReader("data"))
	require.True(t, apperrors.HasCode(err, apperrors.CodeUnavailable))
	require.Nil(t, NewProofStore(&recordingPutter{}, config.StorageConfig{}, nil))
}

func TestPublicBaseURL(t *testing.T) {
	require.Equal(t, "http://minio:9000/b", publicBaseURL(config.StorageConfig{Bucket: "b", Endpoint: "http://minio:9000/"}))
	require.Equal(t, "https://b.s3.eu-west-1.amazonaws.com", publicBaseURL(config.StorageConfig{Bucket: "b", Region: "eu-west-1"}))
}
