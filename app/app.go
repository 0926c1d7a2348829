package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/elastic-io/manifest-tools/internal/blobstore"
	"github.com/elastic-io/manifest-tools/internal/config"
	"github.com/elastic-io/manifest-tools/internal/log"
	"github.com/elastic-io/manifest-tools/internal/monitor"
	"github.com/elastic-io/manifest-tools/internal/object"
	"github.com/elastic-io/manifest-tools/internal/options"
	"github.com/elastic-io/manifest-tools/internal/retrieval"
	"github.com/elastic-io/manifest-tools/internal/utils"
	"golang.org/x/sys/unix"
)

// StopTimeout 收到信号后等待进行中传输清理的最长时间
const StopTimeout = 10 * time.Second

type App interface {
	Run() error
	Stop() error
}

// Program 构建要运行的 App
type Program func() (App, error)

// Retrieval runs one manifest action against a blob store.
type Retrieval struct {
	opts  *options.Options
	store blobstore.BlobStore
	out   io.Writer

	ctx    context.Context
	cancel context.CancelFunc
}

// New validates every parameter before any network access and connects the
// blob store. out receives list output and cat-files content.
func New(opts *options.Options, out io.Writer) (*Retrieval, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	store, err := opts.NewBlobStore()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Retrieval{opts: opts, store: store, out: out, ctx: ctx, cancel: cancel}, nil
}

func (a *Retrieval) Run() error {
	if a.opts.MonitorInterval > 0 {
		utils.SafeGo(func() {
			monitor.MemoryUsage(a.ctx, a.opts.MonitorInterval, monitor.GCThreshold())
		})
	}

	cfg := a.opts.Config
	switch cfg.Action {
	case config.ActionListFiles:
		return a.listFiles()
	case config.ActionRetrieveFiles:
		return a.retrieve(cfg.Dest)
	case config.ActionCatFiles:
		return a.retrieve("")
	}
	return fmt.Errorf("unsupported action %q", cfg.Action)
}

// Stop 取消尚未开始的传输
func (a *Retrieval) Stop() error {
	a.cancel()
	return nil
}

func (a *Retrieval) retriever() *retrieval.Retriever {
	cfg := a.opts.Config
	return retrieval.New(a.store,
		retrieval.WithSink(a.out),
		retrieval.WithFetchSize(cfg.FetchSize),
		retrieval.WithParallelism(cfg.Parallel),
	)
}

func (a *Retrieval) listFiles() error {
	ref, err := object.Parse(a.opts.Config.ManifestURL)
	if err != nil {
		return err
	}
	m, err := a.retriever().ResolveManifest(a.ctx, ref, a.opts.Region)
	if err != nil {
		return err
	}
	for _, entry := range m.Document().Entries {
		if _, err := fmt.Fprintln(a.out, entry.URL); err != nil {
			return err
		}
	}
	log.Logger.Debugf("manifest %s lists %d objects", ref, m.Len())
	return nil
}

func (a *Retrieval) retrieve(dest string) error {
	cfg := a.opts.Config
	key, err := cfg.Key()
	if err != nil {
		return err
	}
	err = a.retriever().Run(a.ctx, retrieval.Request{
		ManifestURL: cfg.ManifestURL,
		Region:      a.opts.Region,
		TargetDir:   dest,
		Flatten:     cfg.FlattenPaths,
		Overwrite:   cfg.Overwrite,
		Key:         key,
	})
	if err != nil {
		return err
	}
	log.Logger.Debugf("%s action completed", cfg.Action)
	return nil
}

// Main runs the program until it finishes or SIGINT/SIGTERM arrives. On a
// signal the app is stopped and Main waits up to StopTimeout for Run to
// return so in-flight transfers can clean up.
func Main(program Program) error {
	a, err := program()
	if err != nil {
		return err
	}

	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, unix.SIGINT, unix.SIGTERM)
	defer signal.Stop(signalCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Run()
	}()

	running := true
	var received os.Signal
	select {
	case received = <-signalCh:
		log.Logger.Warn("Received signal: ", received, ", stopping...")
	case err = <-errCh:
		running = false
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), StopTimeout)
	defer cancel()

	stopErrCh := make(chan error, 1)
	go func() {
		stopErrCh <- a.Stop()
	}()

	select {
	case stopErr := <-stopErrCh:
		if stopErr != nil {
			log.Logger.Debug("Error during shutdown: ", stopErr)
			if err == nil {
				err = stopErr
			}
		}
	case <-stopCtx.Done():
		log.Logger.Debug("Shutdown timed out")
		if err == nil {
			err = stopCtx.Err()
		}
	}

	if running {
		select {
		case runErr := <-errCh:
			if err == nil {
				err = runErr
			}
		case <-stopCtx.Done():
			if err == nil {
				err = stopCtx.Err()
			}
		}
	}
	if received != nil && err == nil {
		err = fmt.Errorf("interrupted by %s", received)
	}
	return err
}
