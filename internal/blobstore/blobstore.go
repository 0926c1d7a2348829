package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/elastic-io/manifest-tools/internal/types"
)

var (
	// ErrRangeNotSatisfiable 请求的范围起点位于对象末尾或之后
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
	// ErrNotFound 对象或存储桶不存在
	ErrNotFound = errors.New("object not found")
	// ErrAccessDenied 凭证无权访问
	ErrAccessDenied = errors.New("access denied")
)

// BlobStore is the object store capability the retrieval engine depends on.
// A BlobStore is bound to one region; WithRegion returns a store for another.
type BlobStore interface {
	Region() string
	WithRegion(region string) (BlobStore, error)

	HeadObject(ctx context.Context, bucket, key string) (*types.ObjectMeta, error)
	// GetObjectRange returns the body of one ranged read and its content length,
	// or -1 when the length is not known up front.
	// The caller closes the body.
	GetObjectRange(ctx context.Context, bucket, key string, rng types.ByteRange) (io.ReadCloser, int64, error)
	// Download writes the whole object to destPath, managing its own retries.
	Download(ctx context.Context, bucket, key, destPath string) error
	GetBucketRegion(ctx context.Context, bucket string) (string, error)
}

// IsPermanent 判断错误是否不值得重试
func IsPermanent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrAccessDenied) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// Config 连接对象存储所需的参数
type Config struct {
	Region             string
	Endpoint           string
	AccessKey          string
	SecretKey          string
	Token              string
	S3ForcePathStyle   bool
	DisableSSL         bool
	InsecureSkipVerify bool
	MaxRetries         int
	// Transport 替换底层 HTTP 传输，测试中指向进程内网关
	Transport http.RoundTripper
}

type backend func(Config) (BlobStore, error)

var backends = map[string]backend{}

// BackendRegister 注册对象存储后端
func BackendRegister(name string, be backend) {
	if _, ok := backends[name]; ok {
		panic(fmt.Errorf("blob store backend %s already registered", name))
	}
	backends[name] = be
}

func New(name string, c Config) (BlobStore, error) {
	if be, ok := backends[name]; ok {
		return be(c)
	}
	return nil, fmt.Errorf("blob store backend %s not found", name)
}

// Backends 返回已注册的后端名称
func Backends() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
