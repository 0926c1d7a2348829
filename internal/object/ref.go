package object

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/elastic-io/manifest-tools/internal/blobstore"
	"github.com/elastic-io/manifest-tools/internal/log"
	"github.com/elastic-io/manifest-tools/internal/types"
)

// 客户端加密写入的用户元数据
const (
	HeaderIV      = "x-amz-iv"
	HeaderKey     = "x-amz-key"
	HeaderMatDesc = "x-amz-matdesc"
)

// Ref identifies one object by bucket and key. Metadata is resolved lazily,
// once, and cached; a Ref is safe for concurrent use.
type Ref struct {
	Bucket string
	Key    string

	mu        sync.Mutex
	store     blobstore.BlobStore
	region    string
	regionSet bool
	resolved  *Resolved
	retry     RetryPolicy
}

// Resolved HEAD 探测的缓存结果
type Resolved struct {
	Size   int64
	Region string
	Meta   *types.ObjectMeta
}

// EncryptionMaterials 信封加密所需的对象元数据（已 base64 解码）
type EncryptionMaterials struct {
	IV         []byte
	WrappedKey []byte
	MatDesc    string
}

func New(bucket, key string) *Ref {
	return &Ref{Bucket: bucket, Key: key, retry: DefaultRetryPolicy()}
}

// Bind 绑定对象存储，返回自身便于链式调用
func (r *Ref) Bind(store blobstore.BlobStore) *Ref {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store = store
	return r
}

// SetRegion pins the region. A pinned region disables the bucket-region
// fallback in Resolve.
func (r *Ref) SetRegion(region string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.region = region
	r.regionSet = region != ""
}

func (r *Ref) Region() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.region
}

func (r *Ref) SetRetryPolicy(p RetryPolicy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retry = p
}

// Equal compares bucket and key; region is not part of the identity.
func (r *Ref) Equal(other *Ref) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Bucket == other.Bucket && r.Key == other.Key
}

// conn 返回当前区域对应的存储，调用方需持有锁
func (r *Ref) conn() (blobstore.BlobStore, error) {
	if r.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnbound, r)
	}
	if r.region != "" && r.store.Region() != r.region {
		store, err := r.store.WithRegion(r.region)
		if err != nil {
			return nil, fmt.Errorf("connect to region %s: %w", r.region, err)
		}
		r.store = store
	}
	return r.store, nil
}

func (r *Ref) Resolve(ctx context.Context) (*Resolved, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.resolved != nil {
		return r.resolved, nil
	}
	res, err := r.resolveWithRegionFallback(ctx)
	if err != nil {
		return nil, err
	}
	r.resolved = res
	return res, nil
}

// resolveWithRegionFallback reads metadata; when the HEAD fails and no region
// was pinned, it looks up the bucket region once and tries again.
func (r *Ref) resolveWithRegionFallback(ctx context.Context) (*Resolved, error) {
	store, err := r.conn()
	if err != nil {
		return nil, err
	}
	meta, err := store.HeadObject(ctx, r.Bucket, r.Key)
	if err == nil {
		return &Resolved{Size: meta.Size, Region: store.Region(), Meta: meta}, nil
	}
	if r.regionSet || ctx.Err() != nil {
		return nil, fmt.Errorf("%w: %s (region %s): %w", ErrMetadataUnavailable, r, r.region, err)
	}

	log.Logger.Debugf("could not get metadata of %s, region not set so assuming incorrect region: %v", r, err)
	region, rerr := store.GetBucketRegion(ctx, r.Bucket)
	if rerr != nil {
		return nil, fmt.Errorf("%w: %s: could not determine bucket region: %w", ErrMetadataUnavailable, r, rerr)
	}
	log.Logger.Debugf("bucket %s lives in region %s, reconnecting", r.Bucket, region)
	r.region = region

	if store, err = r.conn(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMetadataUnavailable, r, err)
	}
	meta, err = store.HeadObject(ctx, r.Bucket, r.Key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (region %s): %w", ErrMetadataUnavailable, r, region, err)
	}
	return &Resolved{Size: meta.Size, Region: region, Meta: meta}, nil
}

func (r *Ref) Size(ctx context.Context) (int64, error) {
	res, err := r.Resolve(ctx)
	if err != nil {
		return 0, err
	}
	return res.Size, nil
}

func (r *Ref) EncryptionMaterials(ctx context.Context) (*EncryptionMaterials, error) {
	res, err := r.Resolve(ctx)
	if err != nil {
		return nil, err
	}
	m, err := MaterialsFromMetadata(res.Meta)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", r, err)
	}
	return m, nil
}

// MaterialsFromMetadata 从用户元数据中提取 x-amz-iv / x-amz-key / x-amz-matdesc
func MaterialsFromMetadata(meta *types.ObjectMeta) (*EncryptionMaterials, error) {
	key, ok := meta.Get(HeaderKey)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not available in metadata", ErrMissingEncryptionMetadata, HeaderKey)
	}
	iv, ok := meta.Get(HeaderIV)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not available in metadata", ErrMissingEncryptionMetadata, HeaderIV)
	}

	m := &EncryptionMaterials{}
	var err error
	if m.WrappedKey, err = base64.StdEncoding.DecodeString(key); err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64: %w", ErrMissingEncryptionMetadata, HeaderKey, err)
	}
	if m.IV, err = base64.StdEncoding.DecodeString(iv); err != nil {
		return nil, fmt.Errorf("%w: %s is not valid base64: %w", ErrMissingEncryptionMetadata, HeaderIV, err)
	}
	if desc, ok := meta.Get(HeaderMatDesc); ok {
		m.MatDesc = desc
	} else {
		log.Logger.Debugf("%s is not available in metadata but it is not mandatory", HeaderMatDesc)
	}
	return m, nil
}

// FragmentKind tags the outcome of one ranged read.
type FragmentKind int

const (
	FragmentChunk FragmentKind = iota
	FragmentEndOfData
)

type Fragment struct {
	Kind   FragmentKind
	Data   []byte
	Length int64
	Range  types.ByteRange
}

func (f Fragment) EndOfData() bool {
	return f.Kind == FragmentEndOfData
}

// ReadRange issues one ranged read. A range starting at or past the end of
// the object yields FragmentEndOfData and is never retried. Transient
// failures are retried per the retry policy, permanent ones surface at once.
func (r *Ref) ReadRange(ctx context.Context, rng types.ByteRange) (Fragment, error) {
	r.mu.Lock()
	store, err := r.conn()
	policy := r.retry
	r.mu.Unlock()
	if err != nil {
		return Fragment{}, err
	}

	var (
		frag     Fragment
		attempts int
	)
	op := func() error {
		attempts++
		body, length, err := store.GetObjectRange(ctx, r.Bucket, r.Key, rng)
		if err != nil {
			if errors.Is(err, blobstore.ErrRangeNotSatisfiable) {
				frag = Fragment{Kind: FragmentEndOfData, Range: rng}
				return nil
			}
			if blobstore.IsPermanent(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		defer body.Close()

		data, err := io.ReadAll(body)
		if err != nil {
			return err
		}
		if length >= 0 && int64(len(data)) != length {
			return fmt.Errorf("short read: got %d of %d bytes", len(data), length)
		}
		frag = Fragment{Kind: FragmentChunk, Data: data, Length: int64(len(data)), Range: rng}
		return nil
	}
	notify := func(err error, wait time.Duration) {
		log.Logger.Debugf("failed transfer of %s %s, awaiting backoff %s before retrying: %v", r, rng, wait, err)
	}

	if err := backoff.RetryNotify(op, policy.newBackOff(ctx), notify); err != nil {
		if blobstore.IsPermanent(err) {
			return Fragment{}, fmt.Errorf("read %s %s: %w", r, rng, err)
		}
		return Fragment{}, fmt.Errorf("%w: %s %s after %d attempts: %w", ErrTransferExhausted, r, rng, attempts, err)
	}
	return frag, nil
}

// FullContent 读取整个对象，适用于清单等小对象
func (r *Ref) FullContent(ctx context.Context) ([]byte, error) {
	size, err := r.Size(ctx)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return []byte{}, nil
	}
	frag, err := r.ReadRange(ctx, types.NewByteRange(size))
	if err != nil {
		return nil, err
	}
	if frag.EndOfData() {
		return []byte{}, nil
	}
	return frag.Data, nil
}

// Download delegates to the store's whole-object transfer. It is not retried
// here and errors are returned as-is.
func (r *Ref) Download(ctx context.Context, destPath string) error {
	r.mu.Lock()
	store, err := r.conn()
	r.mu.Unlock()
	if err != nil {
		return err
	}
	return store.Download(ctx, r.Bucket, r.Key, destPath)
}
