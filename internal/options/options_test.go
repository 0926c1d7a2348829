package options

import (
	"net/http"
	"testing"

	"github.com/elastic-io/manifest-tools/internal/config"
	"github.com/urfave/cli"
)

// 运行一个带全局 flag 的应用，返回命令内构建的 Options
func runApp(t *testing.T, args ...string) (*Options, error) {
	app := cli.NewApp()
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "backend", Value: "s3"},
		cli.StringFlag{Name: "region"},
		cli.StringFlag{Name: "endpoint"},
		cli.StringFlag{Name: "access-key"},
		cli.StringFlag{Name: "secret-key"},
		cli.StringFlag{Name: "session-token"},
		cli.BoolFlag{Name: "path-style"},
		cli.BoolFlag{Name: "disable-ssl"},
		cli.BoolFlag{Name: "insecure"},
		cli.IntFlag{Name: "max-retries"},
	}

	var (
		opts *Options
		err  error
	)
	app.Commands = []cli.Command{{
		Name: config.ActionCatFiles,
		Flags: []cli.Flag{
			cli.StringFlag{Name: "manifest-s3url"},
		},
		Action: func(c *cli.Context) error {
			opts, err = New(c)
			return nil
		},
	}}
	if runErr := app.Run(append([]string{"app"}, args...)); runErr != nil {
		t.Fatalf("Failed to run app: %v", runErr)
	}
	return opts, err
}

func TestNew(t *testing.T) {
	opts, err := runApp(t,
		"--backend=minio",
		"--region=eu-west-1",
		"--endpoint=http://127.0.0.1:9000",
		"--access-key=AK",
		"--secret-key=SK",
		"--session-token=TOKEN",
		"--path-style",
		"--disable-ssl",
		"--max-retries=3",
		config.ActionCatFiles,
		"--manifest-s3url=s3://bucket/manifest",
	)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if opts.Backend != "minio" {
		t.Errorf("Expected Backend to be 'minio', got '%s'", opts.Backend)
	}
	if opts.Region != "eu-west-1" {
		t.Errorf("Expected Region to be 'eu-west-1', got '%s'", opts.Region)
	}
	if !opts.PathStyle || !opts.DisableSSL || opts.Insecure {
		t.Errorf("Unexpected TLS/path flags: %+v", opts)
	}
	if opts.MaxRetries != 3 {
		t.Errorf("Expected MaxRetries to be 3, got %d", opts.MaxRetries)
	}

	// Config 应该被正确初始化
	if opts.Config == nil {
		t.Fatal("Config was not initialized")
	}
	if opts.Config.Action != config.ActionCatFiles {
		t.Errorf("Expected action %s, got %s", config.ActionCatFiles, opts.Config.Action)
	}
	if opts.Config.ManifestURL != "s3://bucket/manifest" {
		t.Errorf("Expected manifest url, got '%s'", opts.Config.ManifestURL)
	}

	c := opts.BlobStoreConfig()
	if c.Token != "TOKEN" || c.Endpoint != "http://127.0.0.1:9000" || !c.S3ForcePathStyle {
		t.Errorf("BlobStoreConfig did not carry the options: %+v", c)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Options {
		return &Options{
			Backend: "s3",
			Config: &config.Config{
				Action:      config.ActionCatFiles,
				ManifestURL: "s3://bucket/manifest",
				FetchSize:   100,
				Parallel:    1,
			},
		}
	}

	t.Run("AllFieldsSet", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
	})

	// Backend 为空时回退到 s3，只记录警告
	t.Run("EmptyBackend", func(t *testing.T) {
		opts := valid()
		opts.Backend = ""
		if err := opts.Validate(); err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
		if opts.Backend != "s3" {
			t.Errorf("Expected Backend to fall back to s3, got '%s'", opts.Backend)
		}
	})

	t.Run("UnknownBackend", func(t *testing.T) {
		opts := valid()
		opts.Backend = "ftp"
		if err := opts.Validate(); err == nil {
			t.Error("Expected error for unknown backend")
		}
	})

	t.Run("MinioWithoutEndpoint", func(t *testing.T) {
		opts := valid()
		opts.Backend = "minio"
		if err := opts.Validate(); err == nil {
			t.Error("Expected error for minio without endpoint")
		}
	})

	t.Run("HalfCredentials", func(t *testing.T) {
		opts := valid()
		opts.AccessKey = "AK"
		if err := opts.Validate(); err == nil {
			t.Error("Expected error when secret-key is missing")
		}
	})

	t.Run("NilConfig", func(t *testing.T) {
		opts := valid()
		opts.Config = nil
		if err := opts.Validate(); err == nil {
			t.Error("Expected error for nil config")
		}
	})

	t.Run("ConfigValidateError", func(t *testing.T) {
		opts := valid()
		opts.Config.ManifestURL = ""
		if err := opts.Validate(); err == nil {
			t.Error("Expected config validation error")
		}
	})
}

func TestNewBlobStore(t *testing.T) {
	opts := &Options{
		Backend:    "s3",
		Region:     "eu-west-1",
		AccessKey:  "AK",
		SecretKey:  "SK",
		Endpoint:   "http://127.0.0.1:9000",
		PathStyle:  true,
		DisableSSL: true,
		Transport:  http.DefaultTransport,
	}
	store, err := opts.NewBlobStore()
	if err != nil {
		t.Fatalf("NewBlobStore returned error: %v", err)
	}
	if store.Region() != "eu-west-1" {
		t.Errorf("Expected region eu-west-1, got %s", store.Region())
	}
}
