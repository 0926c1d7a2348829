package retrieval

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/elastic-io/manifest-tools/internal/blobstore"
	"github.com/elastic-io/manifest-tools/internal/envelope"
	"github.com/elastic-io/manifest-tools/internal/log"
	"github.com/elastic-io/manifest-tools/internal/manifest"
	"github.com/elastic-io/manifest-tools/internal/object"
	"github.com/elastic-io/manifest-tools/internal/transfer"
	"github.com/elastic-io/manifest-tools/internal/types"
	"github.com/elastic-io/manifest-tools/internal/utils"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
)

var (
	ErrDuplicateLocalFile    = errors.New("multiple objects map to the same local file")
	ErrLocalFileConflict     = errors.New("local file already exists")
	ErrGzipStreamUnsupported = errors.New("gzip decompression of objects larger than one fetch window is not supported")
	ErrUnsafeDestination     = fmt.Errorf("%w: outside target directory", transfer.ErrInvalidDestination)
)

// GzipSuffix 流式输出时需要解压的对象后缀
const GzipSuffix = ".gz"

// Request 一次检索的参数
type Request struct {
	ManifestURL string
	Region      string
	// TargetDir 为空时以流的形式写入 sink
	TargetDir string
	Flatten   bool
	Overwrite bool
	Key       *envelope.SymmetricKey
}

type Retriever struct {
	store       blobstore.BlobStore
	sink        io.Writer
	sinkMu      sync.Mutex
	fetchSize   int64
	parallelism int
	retry       *object.RetryPolicy
}

type Option func(*Retriever)

// WithSink 设置流模式的输出，默认为标准输出
func WithSink(w io.Writer) Option {
	return func(r *Retriever) {
		r.sink = w
	}
}

func WithFetchSize(n int64) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.fetchSize = n
		}
	}
}

// WithParallelism bounds concurrent file-mode transfers. Stream mode is
// always sequential.
func WithParallelism(n int) Option {
	return func(r *Retriever) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

func WithRetryPolicy(p object.RetryPolicy) Option {
	return func(r *Retriever) {
		r.retry = &p
	}
}

func New(store blobstore.BlobStore, opts ...Option) *Retriever {
	r := &Retriever{
		store:       store,
		sink:        os.Stdout,
		fetchSize:   types.DefaultFetchSize,
		parallelism: 1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retriever) bind(ref *object.Ref) *object.Ref {
	ref.Bind(r.store)
	if r.retry != nil {
		ref.SetRetryPolicy(*r.retry)
	}
	return ref
}

// ResolveManifest fetches and parses the manifest object. A non-empty
// region overrides the region of the manifest and of every entry.
func (r *Retriever) ResolveManifest(ctx context.Context, ref *object.Ref, region string) (*manifest.Manifest, error) {
	if region != "" {
		ref.SetRegion(region)
	}
	data, err := r.bind(ref).FullContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest %s: %w", ref, err)
	}
	m, err := manifest.Parse(data, manifest.WithRegion(region), manifest.WithStore(r.store))
	if err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", ref, err)
	}
	for _, entry := range m.Entries() {
		r.bind(entry)
	}
	return m, nil
}

// PlanTransfers maps every entry to a local file below targetDir. Flattened
// names keep only the last key segment, otherwise the manifest's common path
// prefix is stripped. An empty targetDir plans stream transfers.
func (r *Retriever) PlanTransfers(m *manifest.Manifest, targetDir string, flatten bool) ([]*transfer.Plan, error) {
	entries := m.Entries()
	plans := make([]*transfer.Plan, 0, len(entries))

	if targetDir == "" {
		for _, ref := range entries {
			plans = append(plans, transfer.New(ref, ""))
		}
		return plans, nil
	}

	prefix := ""
	if !flatten {
		prefix = m.CommonPathPrefix()
	}
	for _, ref := range entries {
		name, err := ref.LocalName(prefix)
		if err != nil {
			return nil, err
		}
		dest, err := localPath(targetDir, name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ref, err)
		}
		plans = append(plans, transfer.New(ref, dest))
	}
	return plans, nil
}

// localPath joins name below targetDir. The result must name a file strictly
// inside targetDir.
func localPath(targetDir, name string) (string, error) {
	base := path.Base(name)
	if name == "" || strings.HasSuffix(name, "/") || base == "." || base == ".." {
		return "", fmt.Errorf("%w: %q is not a file name", ErrUnsafeDestination, name)
	}
	if path.IsAbs(name) || filepath.IsAbs(filepath.FromSlash(name)) {
		return "", fmt.Errorf("%w: %q is absolute", ErrUnsafeDestination, name)
	}
	root := filepath.Clean(targetDir)
	dest := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, dest)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q resolves to %s", ErrUnsafeDestination, name, dest)
	}
	return dest, nil
}

// ValidateDestinations rejects duplicate and pre-existing destinations unless
// overwrite is set. It never touches the filesystem beyond stat calls.
func (r *Retriever) ValidateDestinations(plans []*transfer.Plan, overwrite bool) error {
	if overwrite {
		return nil
	}

	var result *multierror.Error
	seen := make(map[string]*transfer.Plan, len(plans))
	for _, p := range plans {
		if p.IsStream() {
			continue
		}
		if prev, ok := seen[p.Destination]; ok {
			result = multierror.Append(result, fmt.Errorf("%w: %s and %s both map to %s",
				ErrDuplicateLocalFile, prev.Source, p.Source, p.Destination))
			continue
		}
		seen[p.Destination] = p
	}
	if err := result.ErrorOrNil(); err != nil {
		return err
	}

	for _, p := range plans {
		if !p.IsStream() && utils.FileExist(p.Destination) {
			result = multierror.Append(result, fmt.Errorf("%w: %s", ErrLocalFileConflict, p.Destination))
		}
	}
	return result.ErrorOrNil()
}

// ExecuteTransfer runs one plan. In file mode a failed decryption is logged
// and the downloaded file is left undecrypted; it is not an error.
func (r *Retriever) ExecuteTransfer(ctx context.Context, plan *transfer.Plan, key *envelope.SymmetricKey) error {
	if plan.IsStream() {
		return r.stream(ctx, plan, key)
	}
	return r.retrieve(ctx, plan, key)
}

func (r *Retriever) retrieve(ctx context.Context, plan *transfer.Plan, key *envelope.SymmetricKey) error {
	defer plan.Close()

	if key == nil {
		return plan.Download(ctx)
	}

	env, err := envelope.NewForObject(ctx, key, plan.Source)
	if err != nil {
		return err
	}
	temp, err := plan.StageForDecryption(ctx)
	if err != nil {
		return err
	}
	if err := env.DecryptFile(temp, plan.Destination); err != nil {
		log.Logger.Warnf("could not decrypt %s, leaving the undecrypted file in place: %v", plan, err)
		return plan.Restore()
	}
	log.Logger.Debugf("decrypted %s", plan)
	return plan.Finalize()
}

func (r *Retriever) stream(ctx context.Context, plan *transfer.Plan, key *envelope.SymmetricKey) error {
	ref := plan.Source
	gz := strings.HasSuffix(ref.Key, GzipSuffix)
	if gz {
		size, err := ref.Size(ctx)
		if err != nil {
			return err
		}
		if size > r.fetchSize {
			return fmt.Errorf("%w: %s is %d bytes, window is %d", ErrGzipStreamUnsupported, ref, size, r.fetchSize)
		}
	}

	var src io.Reader = ref.NewReader(ctx, r.fetchSize)
	if key != nil {
		env, err := envelope.NewForObject(ctx, key, ref)
		if err != nil {
			return err
		}
		rc := env.NewReader(src)
		defer rc.Close()
		src = rc
	}
	if gz {
		zr, err := gzip.NewReader(src)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("gunzip %s: %w", ref, err)
		}
		defer zr.Close()
		src = zr
	}

	r.sinkMu.Lock()
	defer r.sinkMu.Unlock()
	n, err := io.Copy(r.sink, src)
	if err != nil {
		return fmt.Errorf("stream %s: %w", ref, err)
	}
	log.Logger.Debugf("streamed %d bytes of %s", n, ref)
	return nil
}

// ExecuteTransfers runs all plans and aggregates per-object failures.
// Cancellation is honoured between transfers.
func (r *Retriever) ExecuteTransfers(ctx context.Context, plans []*transfer.Plan, key *envelope.SymmetricKey) error {
	var (
		mu     sync.Mutex
		result *multierror.Error
	)
	record := func(p *transfer.Plan, err error) {
		if err == nil {
			return
		}
		log.Logger.Errorf("transfer %s failed: %v", p, err)
		mu.Lock()
		result = multierror.Append(result, fmt.Errorf("%s: %w", p.Source, err))
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for _, p := range plans {
		if err := ctx.Err(); err != nil {
			mu.Lock()
			result = multierror.Append(result, err)
			mu.Unlock()
			break
		}
		if p.IsStream() {
			// sink 共享，流模式串行执行
			record(p, r.ExecuteTransfer(ctx, p, key))
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				record(p, err)
				return nil
			}
			record(p, r.ExecuteTransfer(ctx, p, key))
			return nil
		})
	}
	g.Wait()
	return result.ErrorOrNil()
}

// Run resolves the manifest, validates every destination and then executes
// all transfers. Only manifest and validation errors abort before transfers
// start.
func (r *Retriever) Run(ctx context.Context, req Request) error {
	ref, err := object.Parse(req.ManifestURL)
	if err != nil {
		return err
	}
	m, err := r.ResolveManifest(ctx, ref, req.Region)
	if err != nil {
		return err
	}
	log.Logger.Infof("manifest %s lists %d objects", ref, m.Len())

	plans, err := r.PlanTransfers(m, req.TargetDir, req.Flatten)
	if err != nil {
		return err
	}
	if err := r.ValidateDestinations(plans, req.Overwrite); err != nil {
		return err
	}
	return r.ExecuteTransfers(ctx, plans, req.Key)
}
