package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	smithyhttp "github.com/aws/smithy-go/transport/http"
)

// S3Config points at AWS S3 or any S3-compatible endpoint (MinIO, R2).
type S3Config struct {
	Bucket      string
	Prefix      string
	EndpointURL string
	Region      string
	AccessKey   string
	SecretKey   string
	// UsePathStyle is required by MinIO and most self-hosted endpoints.
	UsePathStyle bool
}

// S3Store stores objects in a single bucket.
type S3Store struct {
	client   *s3.Client
	uploader *manager.Uploader
	presign  *s3.PresignClient
	bucket   string
	prefix   string
	now      func() time.Time
}

// NewS3Store builds a client from cfg. Static credentials are used when both keys are
// set; otherwise the default AWS credential chain applies.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load s3 config: %w", err)
	}
	if cfg.EndpointURL != "" {
		awsCfg.BaseEndpoint = aws.String(cfg.EndpointURL)
	}
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3StoreFromClient(client, cfg.Bucket, cfg.Prefix), nil
}

func NewS3StoreFromClient(client *s3.Client, bucket, prefix string) *S3Store {
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		presign:  s3.NewPresignClient(client),
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		now:      time.Now,
	}
}

func (s *S3Store) Put(ctx context.Context, data []byte, opts PutOptions) (*Object, error) {
	key, err := NewKey(s.prefix, opts, s.now())
	if err != nil {
		return nil, err
	}
	return s.PutKey(ctx, key, data, opts.ContentType)
}

// PutKey uploads through the transfer manager as one conditional PutObject, so S3 refuses
// the write with 412 when the key already holds an object.
func (s *S3Store) PutKey(ctx context.Context, key string, data []byte, contentType string) (*Object, error) {
	if err := ValidateKey(s.prefix, key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		CacheControl:  aws.String("public, max-age=31536000, immutable"),
		IfNoneMatch:   aws.String("*"),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	// multipart completion would drop the precondition
	singlePart := func(u *manager.Uploader) {
		u.PartSize = max(int64(len(data))+1, manager.MinUploadPartSize)
	}
	if _, err := s.uploader.Upload(ctx, in, singlePart); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("failed to upload %s: %w", key, classifyS3Error(err))
	}
	return &Object{Key: key, Size: int64(len(data)), ContentType: contentType, CreatedAt: s.now().UTC()}, nil
}

func (s *S3Store) Get(ctx context.Context, key string) ([]byte, *Object, error) {
	if err := ValidateKey(s.prefix, key); err != nil {
		return nil, nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("failed to download %s: %w", key, classifyS3Error(err))
	}
	defer out.Body.Close()

	body, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read object body: %w", ErrStorageUnavailable)
	}
	meta := &Object{Key: key, Size: int64(len(body)), ContentType: aws.ToString(out.ContentType)}
	if out.LastModified != nil {
		meta.CreatedAt = out.LastModified.UTC()
	}
	return body, meta, nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	if err := ValidateKey(s.prefix, key); err != nil {
		return false, err
	}
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to head %s: %w", key, classifyS3Error(err))
	}
	return true, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := ValidateKey(s.prefix, key); err != nil {
		return err
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isS3NotFound(err) {
		return fmt.Errorf("failed to delete %s: %w", key, classifyS3Error(err))
	}
	return nil
}

// PresignPut returns a URL the browser can PUT the object body to directly.
func (s *S3Store) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	if err := ValidateKey(s.prefix, key); err != nil {
		return "", err
	}
	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	req, err := s.presign.PresignPutObject(ctx, in, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign %s: %w", key, classifyS3Error(err))
	}
	return req.URL, nil
}

var s3QuotaCodes = map[string]bool{
	"QuotaExceeded":                  true,
	"StorageQuotaExceeded":           true,
	"XMinioStorageFull":              true,
	"XMinioAdminBucketQuotaExceeded": true,
	"ServiceQuotaExceeded":           true,
}

func isS3NotFound(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "NoSuchBucket" {
		return false
	}
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	var re *smithyhttp.ResponseError
	if errors.As(err, &re) && re.HTTPStatusCode() == http.StatusNotFound {
		return true
	}
	return false
}

var s3ConflictCodes = map[string]bool{
	"PreconditionFailed":         true,
	"ConditionalRequestConflict": true,
}

var s3Retryables = retry.IsErrorRetryables(retry.DefaultRetryables)

// classifyS3Error splits failures into quota, conflict, transient and fatal. Only
// throttling, 5xx and connection faults map to ErrStorageUnavailable; credential,
// permission and missing-bucket errors are returned unwrapped so callers do not retry.
func classifyS3Error(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch code := apiErr.ErrorCode(); {
		case s3QuotaCodes[code]:
			return fmt.Errorf("%w: %s", ErrQuotaExceeded, code)
		case s3ConflictCodes[code]:
			return fmt.Errorf("%w: %s", ErrExists, code)
		}
	}
	var re *smithyhttp.ResponseError
	if errors.As(err, &re) {
		switch re.HTTPStatusCode() {
		case http.StatusInsufficientStorage:
			return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
		case http.StatusPreconditionFailed:
			return fmt.Errorf("%w: %v", ErrExists, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
	}
	if s3Retryables.IsErrorRetryable(err) == aws.TrueTernary {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return fmt.Errorf("s3: %w", err)
}
