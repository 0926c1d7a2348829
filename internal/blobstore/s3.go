package blobstore

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/elastic-io/manifest-tools/internal/types"
)

// DefaultRegion 未指定且无法从环境推断时使用的区域
const DefaultRegion = "us-east-1"

func init() {
	BackendRegister("s3", NewS3Store)
}

type s3Store struct {
	client *s3.S3
	region string
	config Config
}

// NewS3Store 基于 aws-sdk-go 创建对象存储后端。
// Region/credentials fall back to the SDK's shared config and environment.
func NewS3Store(c Config) (BlobStore, error) {
	cfg := aws.Config{HTTPClient: &http.Client{}}
	if c.Region != "" {
		cfg.Region = aws.String(c.Region)
	}
	if c.Endpoint != "" {
		cfg.Endpoint = aws.String(c.Endpoint)
	}
	if c.AccessKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(c.AccessKey, c.SecretKey, c.Token)
	}
	if c.S3ForcePathStyle {
		cfg.S3ForcePathStyle = aws.Bool(true)
	}
	if c.DisableSSL {
		cfg.DisableSSL = aws.Bool(true)
	}
	if c.MaxRetries > 0 {
		cfg.MaxRetries = aws.Int(c.MaxRetries)
	}
	switch {
	case c.Transport != nil:
		cfg.HTTPClient.Transport = c.Transport
	case c.InsecureSkipVerify:
		cfg.HTTPClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	sess, err := session.NewSessionWithOptions(session.Options{
		Config:            cfg,
		SharedConfigState: session.SharedConfigEnable,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 client, reason: %w", err)
	}
	if aws.StringValue(sess.Config.Region) == "" {
		sess.Config.Region = aws.String(DefaultRegion)
	}

	return &s3Store{
		client: s3.New(sess),
		region: aws.StringValue(sess.Config.Region),
		config: c,
	}, nil
}

func (s *s3Store) Region() string {
	return s.region
}

func (s *s3Store) WithRegion(region string) (BlobStore, error) {
	if region == "" || region == s.region {
		return s, nil
	}
	c := s.config
	c.Region = region
	return NewS3Store(c)
}

func (s *s3Store) HeadObject(ctx context.Context, bucket, key string) (*types.ObjectMeta, error) {
	out, err := s.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, s.translate(ctx, err)
	}
	if out.ContentLength == nil {
		return nil, fmt.Errorf("head %s/%s: response carries no content length", bucket, key)
	}
	return &types.ObjectMeta{
		Size:         aws.Int64Value(out.ContentLength),
		ETag:         aws.StringValue(out.ETag),
		LastModified: aws.TimeValue(out.LastModified),
		Metadata:     types.NormalizeMetadata(aws.StringValueMap(out.Metadata)),
	}, nil
}

func (s *s3Store) GetObjectRange(ctx context.Context, bucket, key string, rng types.ByteRange) (io.ReadCloser, int64, error) {
	out, err := s.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Range:  aws.String(rng.Header()),
	})
	if err != nil {
		return nil, 0, s.translate(ctx, err)
	}
	return out.Body, aws.Int64Value(out.ContentLength), nil
}

// Download 使用 s3manager 分段并发下载整个对象
func (s *s3Store) Download(ctx context.Context, bucket, key, destPath string) error {
	file, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer file.Close()

	downloader := s3manager.NewDownloaderWithClient(s.client)
	_, err = downloader.DownloadWithContext(ctx, file, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return err
	}
	return file.Sync()
}

func (s *s3Store) GetBucketRegion(ctx context.Context, bucket string) (string, error) {
	out, err := s.client.GetBucketLocationWithContext(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return "", s.translate(ctx, err)
	}
	return s3.NormalizeBucketLocation(aws.StringValue(out.LocationConstraint)), nil
}

func (s *s3Store) translate(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}

	var reqErr awserr.RequestFailure
	if errors.As(err, &reqErr) {
		switch reqErr.StatusCode() {
		case http.StatusRequestedRangeNotSatisfiable:
			return fmt.Errorf("%w: %w", ErrRangeNotSatisfiable, err)
		case http.StatusNotFound:
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case http.StatusForbidden:
			return fmt.Errorf("%w: %w", ErrAccessDenied, err)
		}
	}

	var aerr awserr.Error
	if errors.As(err, &aerr) {
		switch aerr.Code() {
		case "InvalidRange":
			return fmt.Errorf("%w: %w", ErrRangeNotSatisfiable, err)
		case s3.ErrCodeNoSuchKey, s3.ErrCodeNoSuchBucket, "NotFound":
			return fmt.Errorf("%w: %w", ErrNotFound, err)
		case "AccessDenied", "Forbidden":
			return fmt.Errorf("%w: %w", ErrAccessDenied, err)
		}
	}
	return err
}
