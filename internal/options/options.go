package options

import (
	"fmt"
	"net/http"
	"time"

	"github.com/elastic-io/manifest-tools/internal/blobstore"
	"github.com/elastic-io/manifest-tools/internal/config"
	"github.com/elastic-io/manifest-tools/internal/log"
	"github.com/urfave/cli"
)

// Options 全局连接参数，由根命令的 flag 构建
type Options struct {
	Backend      string
	Region       string
	Endpoint     string
	AccessKey    string
	SecretKey    string
	SessionToken string
	PathStyle    bool
	DisableSSL   bool
	Insecure     bool
	MaxRetries   int

	// MonitorInterval 大于 0 时定期记录内存使用
	MonitorInterval time.Duration

	// Transport 替换 HTTP 传输，不来自命令行
	Transport http.RoundTripper

	Config *config.Config
}

func New(ctx *cli.Context) (*Options, error) {
	opts := Options{}
	opts.Backend = ctx.GlobalString("backend")
	opts.Region = ctx.GlobalString("region")
	opts.Endpoint = ctx.GlobalString("endpoint")
	opts.AccessKey = ctx.GlobalString("access-key")
	opts.SecretKey = ctx.GlobalString("secret-key")
	opts.SessionToken = ctx.GlobalString("session-token")
	opts.PathStyle = ctx.GlobalBool("path-style")
	opts.DisableSSL = ctx.GlobalBool("disable-ssl")
	opts.Insecure = ctx.GlobalBool("insecure")
	opts.MaxRetries = ctx.GlobalInt("max-retries")
	opts.MonitorInterval = ctx.GlobalDuration("monitor-interval")

	var err error
	opts.Config, err = config.New(ctx)
	if err != nil {
		return nil, err
	}
	return &opts, nil
}

func (o *Options) Validate() error {
	if o.Backend == "" {
		log.Logger.Warn("backend is not set, using s3")
		o.Backend = "s3"
	}
	found := false
	for _, name := range blobstore.Backends() {
		if name == o.Backend {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("unknown backend %q, available: %v", o.Backend, blobstore.Backends())
	}
	if o.Backend == "minio" && o.Endpoint == "" {
		return fmt.Errorf("endpoint is required for the minio backend")
	}
	if (o.AccessKey == "") != (o.SecretKey == "") {
		return fmt.Errorf("access-key and secret-key must be given together")
	}
	if o.MaxRetries < 0 {
		return fmt.Errorf("max-retries must not be negative")
	}
	if o.Config == nil {
		return fmt.Errorf("config is required")
	}
	return o.Config.Validate()
}

// BlobStoreConfig 转换为对象存储后端参数
func (o *Options) BlobStoreConfig() blobstore.Config {
	return blobstore.Config{
		Region:             o.Region,
		Endpoint:           o.Endpoint,
		AccessKey:          o.AccessKey,
		SecretKey:          o.SecretKey,
		Token:              o.SessionToken,
		S3ForcePathStyle:   o.PathStyle,
		DisableSSL:         o.DisableSSL,
		InsecureSkipVerify: o.Insecure,
		MaxRetries:         o.MaxRetries,
		Transport:          o.Transport,
	}
}

func (o *Options) NewBlobStore() (blobstore.BlobStore, error) {
	return blobstore.New(o.Backend, o.BlobStoreConfig())
}
