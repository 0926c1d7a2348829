package config

import (
	"fmt"

	"github.com/elastic-io/manifest-tools/internal/envelope"
	"github.com/elastic-io/manifest-tools/internal/object"
	"github.com/elastic-io/manifest-tools/internal/types"
	"github.com/elastic-io/manifest-tools/internal/utils"
	"github.com/urfave/cli"
)

const (
	ActionListActions   = "list-actions"
	ActionListFiles     = "list-files"
	ActionRetrieveFiles = "retrieve-files"
	ActionCatFiles      = "cat-files"
)

// MaxParallel 并发下载数上限
const MaxParallel = 64

// Config 单个动作的参数
type Config struct {
	Action       string
	ManifestURL  string
	Dest         string
	SymmetricKey string
	Overwrite    bool
	FlattenPaths bool
	FetchSize    int64
	Parallel     int
}

func New(ctx *cli.Context) (*Config, error) {
	c := &Config{FetchSize: types.DefaultFetchSize, Parallel: 1}
	if ctx.Command.Name != "" {
		c.Action = ctx.Command.Name
	}
	c.ManifestURL = ctx.String("manifest-s3url")
	c.Dest = ctx.String("dest")
	c.SymmetricKey = ctx.String("symmetric-key")
	c.Overwrite = ctx.Bool("overwrite")
	c.FlattenPaths = ctx.Bool("flatten-paths")

	if s := ctx.String("fetch-size"); s != "" {
		size, err := utils.ParseSize(s)
		if err != nil {
			return nil, fmt.Errorf("invalid fetch-size: %w", err)
		}
		c.FetchSize = size
	}
	if ctx.IsSet("parallel") {
		c.Parallel = ctx.Int("parallel")
	}
	return c, nil
}

func missing(action, param string) error {
	return fmt.Errorf("Parameter %s is mandatory when using action '%s'", param, action)
}

func (c *Config) Validate() error {
	switch c.Action {
	case ActionListActions:
		return nil
	case ActionListFiles, ActionRetrieveFiles, ActionCatFiles:
	default:
		return fmt.Errorf("unsupported action %q", c.Action)
	}

	if c.ManifestURL == "" {
		return missing(c.Action, "manifest-s3url")
	}
	if _, err := object.Parse(c.ManifestURL); err != nil {
		return err
	}

	if c.Action == ActionRetrieveFiles {
		if c.Dest == "" {
			return missing(c.Action, "dest")
		}
		if !utils.IsDir(c.Dest) {
			return fmt.Errorf("dest %s must be an existing directory", c.Dest)
		}
	}

	if _, err := c.Key(); err != nil {
		return err
	}
	if c.FetchSize <= 0 {
		return fmt.Errorf("fetch-size must be positive")
	}
	if c.Parallel < 1 || c.Parallel > MaxParallel {
		return fmt.Errorf("parallel must be between 1 and %d", MaxParallel)
	}
	return nil
}

// Key 解析对称密钥，未设置时返回 nil
func (c *Config) Key() (*envelope.SymmetricKey, error) {
	if c.SymmetricKey == "" {
		return nil, nil
	}
	return envelope.ParseSymmetricKey(c.SymmetricKey)
}
