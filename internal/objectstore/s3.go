package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3Config configures the S3-compatible backend (also used for R2/MinIO via
// Endpoint + path-style addressing).
type S3Config struct {
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
	AccessKey  string `mapstructure:"access_key"`
	SecretKey  string `mapstructure:"secret_key"`
	Endpoint   string `mapstructure:"endpoint"`
}

func (c *S3Config) Validate() error {
	if c.BucketName == "" {
		return fmt.Errorf("object store: `bucket_name` is required")
	}
	if c.Region == "" {
		return fmt.Errorf("object store: `region` is required")
	}
	if c.AccessKey == "" {
		return fmt.Errorf("object store: `access_key` is required")
	}
	if c.SecretKey == "" {
		return fmt.Errorf("object store: `secret_key` is required")
	}
	return nil
}

// S3Store implements Store against any S3-compatible API.
type S3Store struct {
	client    *s3.Client
	presigner *s3.PresignClient
	bucket    string
}

// NewS3Store builds an S3Store from config, with HTTP/2 client tuning and a
// retry policy suited to a manifest service talking to an S3-compatible
// backend over the public internet.
func NewS3Store(cfg *S3Config) (*S3Store, error) {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          200,
			MaxIdleConnsPerHost:   100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			ForceAttemptHTTP2:     true,
		},
		Timeout: 30 * time.Second,
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		),
		config.WithRegion(cfg.Region),
		config.WithHTTPClient(httpClient),
		config.WithRetryer(func() aws.Retryer {
			return retry.NewStandard(func(o *retry.StandardOptions) {
				o.MaxAttempts = 10
			})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{
		client:    client,
		presigner: s3.NewPresignClient(client),
		bucket:    cfg.BucketName,
	}, nil
}

func (s *S3Store) Get(ctx context.Context, key string) (*Object, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		if isNoSuchKey(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &Object{
		Body:         resp.Body,
		ETag:         stripQuotes(aws.ToString(resp.ETag)),
		Size:         aws.ToInt64(resp.ContentLength),
		LastModified: aws.ToTime(resp.LastModified),
	}, nil
}

func (s *S3Store) Put(ctx context.Context, key string, body io.Reader, size int64) (*PutResult, error) {
	resp, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		return nil, err
	}
	return &PutResult{
		ETag:         stripQuotes(aws.ToString(resp.ETag)),
		Size:         size,
		LastModified: time.Now().UTC(),
	}, nil
}

// PutConditional implements the manifest's optimistic-concurrency write
// using S3 conditional writes (If-Match / If-None-Match on PutObject).
func (s *S3Store) PutConditional(ctx context.Context, key string, body io.Reader, size int64, ifMatch string) (*PutResult, error) {
	input := &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          body,
		ContentLength: aws.Int64(size),
	}

	if ifMatch == "" {
		// First write: only succeed if the key doesn't exist yet. If it
		// does, the caller needed to supply If-Match (HTTP 428).
		current, err := s.Get(ctx, key)
		if err == nil {
			current.Body.Close()
			return nil, ErrPreconditionRequired
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		input.IfNoneMatch = aws.String("*")
	} else {
		input.IfMatch = aws.String(ifMatch)
	}

	resp, err := s.client.PutObject(ctx, input)
	if err != nil {
		if isPreconditionFailed(err) {
			return nil, ErrPreconditionFailed
		}
		return nil, err
	}

	return &PutResult{
		ETag:         stripQuotes(aws.ToString(resp.ETag)),
		Size:         size,
		LastModified: time.Now().UTC(),
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	return err
}

func (s *S3Store) DeleteMany(ctx context.Context, keys []string) ([]string, error) {
	if len(keys) == 0 {
		return nil, nil
	}

	objects := make([]types.ObjectIdentifier, len(keys))
	for i, k := range keys {
		k := k
		objects[i] = types.ObjectIdentifier{Key: &k}
	}

	resp, err := s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: &s.bucket,
		Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return nil, err
	}

	deleted := make([]string, 0, len(resp.Deleted))
	for _, d := range resp.Deleted {
		deleted = append(deleted, aws.ToString(d.Key))
	}
	return deleted, nil
}

func (s *S3Store) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, time.Time, error) {
	out, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, func(o *s3.PresignOptions) { o.Expires = expiry })
	if err != nil {
		return "", time.Time{}, err
	}
	return out.URL, time.Now().Add(expiry), nil
}

func (s *S3Store) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, time.Time, error) {
	out, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}, func(o *s3.PresignOptions) { o.Expires = expiry })
	if err != nil {
		return "", time.Time{}, err
	}
	return out.URL, time.Now().Add(expiry), nil
}

var _ Store = (*S3Store)(nil)

func stripQuotes(etag string) string {
	return strings.ReplaceAll(etag, `"`, "")
}

func isNoSuchKey(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode() == "NoSuchKey" || apiErr.ErrorCode() == "NotFound"
	}
	return false
}

func isPreconditionFailed(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "PreconditionFailed" || code == "ConditionalRequestConflict" || code == "AtLeastOneOfIfMatchOrIfNoneMatchHeaderRequired"
	}
	return false
}
