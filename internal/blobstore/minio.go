package blobstore

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/elastic-io/manifest-tools/internal/types"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

func init() {
	BackendRegister("minio", NewMinioStore)
}

// minioStore 面向 S3 兼容服务（MinIO、Ceph 等）的后端
type minioStore struct {
	client *minio.Client
	region string
	config Config
}

func NewMinioStore(c Config) (BlobStore, error) {
	if c.Endpoint == "" {
		return nil, fmt.Errorf("minio backend requires an endpoint")
	}

	host, secure, err := splitEndpoint(c.Endpoint)
	if err != nil {
		return nil, err
	}
	if c.DisableSSL {
		secure = false
	}

	var creds *credentials.Credentials
	if c.AccessKey != "" {
		creds = credentials.NewStaticV4(c.AccessKey, c.SecretKey, c.Token)
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.EnvMinio{},
		})
	}

	opts := &minio.Options{
		Creds:        creds,
		Secure:       secure,
		Region:       c.Region,
		BucketLookup: minio.BucketLookupAuto,
	}
	if c.S3ForcePathStyle {
		opts.BucketLookup = minio.BucketLookupPath
	}
	switch {
	case c.Transport != nil:
		opts.Transport = c.Transport
	case c.InsecureSkipVerify:
		opts.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	client, err := minio.New(host, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize minio client, reason: %w", err)
	}
	return &minioStore{client: client, region: c.Region, config: c}, nil
}

func splitEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid endpoint %q: %w", endpoint, err)
	}
	return u.Host, u.Scheme == "https", nil
}

func (m *minioStore) Region() string {
	return m.region
}

func (m *minioStore) WithRegion(region string) (BlobStore, error) {
	if region == "" || region == m.region {
		return m, nil
	}
	c := m.config
	c.Region = region
	return NewMinioStore(c)
}

func (m *minioStore) HeadObject(ctx context.Context, bucket, key string) (*types.ObjectMeta, error) {
	info, err := m.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return nil, translateMinio(ctx, err)
	}
	return &types.ObjectMeta{
		Size:         info.Size,
		ETag:         info.ETag,
		LastModified: info.LastModified,
		Metadata:     types.NormalizeMetadata(info.UserMetadata),
	}, nil
}

func (m *minioStore) GetObjectRange(ctx context.Context, bucket, key string, rng types.ByteRange) (io.ReadCloser, int64, error) {
	opts := minio.GetObjectOptions{}
	if err := opts.SetRange(rng.Lower, rng.Upper); err != nil {
		return nil, 0, err
	}
	obj, err := m.client.GetObject(ctx, bucket, key, opts)
	if err != nil {
		return nil, 0, translateMinio(ctx, err)
	}
	// GetObject 是惰性的，Stat 触发真正的请求
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, 0, translateMinio(ctx, err)
	}
	// 长度未知，由调用方读到 EOF
	return obj, -1, nil
}

func (m *minioStore) Download(ctx context.Context, bucket, key, destPath string) error {
	return m.client.FGetObject(ctx, bucket, key, destPath, minio.GetObjectOptions{})
}

func (m *minioStore) GetBucketRegion(ctx context.Context, bucket string) (string, error) {
	region, err := m.client.GetBucketLocation(ctx, bucket)
	if err != nil {
		return "", translateMinio(ctx, err)
	}
	if region == "" {
		region = DefaultRegion
	}
	return region, nil
}

func translateMinio(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%w: %w", ctxErr, err)
	}
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.StatusCode == http.StatusRequestedRangeNotSatisfiable || resp.Code == "InvalidRange":
		return fmt.Errorf("%w: %w", ErrRangeNotSatisfiable, err)
	case resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket":
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	case resp.StatusCode == http.StatusForbidden || resp.Code == "AccessDenied":
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	}
	return err
}
