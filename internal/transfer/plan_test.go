package transfer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/elastic-io/manifest-tools/internal/blobstore"
	"github.com/elastic-io/manifest-tools/internal/object"
	"github.com/elastic-io/manifest-tools/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// downloadStore 只实现整对象下载
type downloadStore struct {
	data      []byte
	etag      string
	err       error
	downloads int
}

func (s *downloadStore) Region() string                                 { return "us-east-1" }
func (s *downloadStore) WithRegion(string) (blobstore.BlobStore, error) { return s, nil }

func (s *downloadStore) HeadObject(context.Context, string, string) (*types.ObjectMeta, error) {
	return &types.ObjectMeta{Size: int64(len(s.data)), ETag: s.etag}, nil
}

func (s *downloadStore) GetObjectRange(context.Context, string, string, types.ByteRange) (io.ReadCloser, int64, error) {
	return nil, 0, blobstore.ErrRangeNotSatisfiable
}

func (s *downloadStore) GetBucketRegion(context.Context, string) (string, error) {
	return "us-east-1", nil
}

func (s *downloadStore) Download(_ context.Context, _, _, dest string) error {
	s.downloads++
	if s.err != nil {
		// 模拟写了一半后失败
		os.WriteFile(dest, s.data[:len(s.data)/2], 0o644)
		return s.err
	}
	return os.WriteFile(dest, s.data, 0o644)
}

func newPlan(store blobstore.BlobStore, dest string) *Plan {
	return New(object.New("b", "dir/file").Bind(store), dest)
}

func TestIsStream(t *testing.T) {
	assert.True(t, New(object.New("b", "k"), "").IsStream())
	assert.False(t, New(object.New("b", "k"), "/tmp/k").IsStream())
	assert.ErrorIs(t, New(object.New("b", "k"), "").EnsureParentDirectoryExists(), ErrInvalidDestination)
}

func TestEnsureParentDirectoryExists(t *testing.T) {
	dir := t.TempDir()

	p := New(object.New("b", "k"), filepath.Join(dir, "a", "b", "file"))
	require.NoError(t, p.EnsureParentDirectoryExists())
	info, err := os.Stat(filepath.Join(dir, "a", "b"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	regular := filepath.Join(dir, "regular")
	require.NoError(t, os.WriteFile(regular, []byte("x"), 0o644))
	p = New(object.New("b", "k"), filepath.Join(regular, "file"))
	assert.ErrorIs(t, p.EnsureParentDirectoryExists(), ErrInvalidDestination)

	fileLink := filepath.Join(dir, "file-link")
	require.NoError(t, os.Symlink(regular, fileLink))
	p = New(object.New("b", "k"), filepath.Join(fileLink, "file"))
	assert.ErrorIs(t, p.EnsureParentDirectoryExists(), ErrInvalidDestination)

	dirLink := filepath.Join(dir, "dir-link")
	require.NoError(t, os.Symlink(filepath.Join(dir, "a"), dirLink))
	p = New(object.New("b", "k"), filepath.Join(dirLink, "file"))
	assert.NoError(t, p.EnsureParentDirectoryExists())
}

func TestDownloadIsIdempotent(t *testing.T) {
	store := &downloadStore{data: []byte("content")}
	dest := filepath.Join(t.TempDir(), "sub", "file")
	p := newPlan(store, dest)

	require.NoError(t, p.Download(context.Background()))
	require.NoError(t, p.Download(context.Background()))
	assert.Equal(t, 1, store.downloads)

	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "content", string(got))
	assert.NoFileExists(t, dest+".part")
}

func TestDownloadFailureLeavesNoPartialFile(t *testing.T) {
	boom := errors.New("boom")
	store := &downloadStore{data: []byte("content"), err: boom}
	dest := filepath.Join(t.TempDir(), "file")
	p := newPlan(store, dest)

	assert.ErrorIs(t, p.Download(context.Background()), boom)
	assert.NoFileExists(t, dest)
	assert.NoFileExists(t, dest+".part")
}

// SSE-KMS 对象的 ETag 不是内容的 MD5
func TestDownloadIgnoresETag(t *testing.T) {
	store := &downloadStore{data: []byte("hello"), etag: `"0123456789abcdef0123456789abcdef"`}
	dest := filepath.Join(t.TempDir(), "file")

	require.NoError(t, newPlan(store, dest).Download(context.Background()))
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestStageFinalize(t *testing.T) {
	store := &downloadStore{data: []byte("ciphertext")}
	dest := filepath.Join(t.TempDir(), "file")
	p := newPlan(store, dest)

	temp, err := p.StageForDecryption(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(temp, dest+"."))
	assert.Len(t, strings.TrimPrefix(temp, dest+"."), 32)
	assert.FileExists(t, temp)
	assert.NoFileExists(t, dest)
	assert.Equal(t, temp, p.TempFile())

	// 重复调用返回同一个临时文件
	again, err := p.StageForDecryption(context.Background())
	require.NoError(t, err)
	assert.Equal(t, temp, again)
	assert.Equal(t, 1, store.downloads)

	require.NoError(t, os.WriteFile(dest, []byte("plaintext"), 0o644))
	require.NoError(t, p.Finalize())
	assert.NoFileExists(t, temp)
	assert.Empty(t, p.TempFile())
	assert.NoError(t, p.Close())
	assert.FileExists(t, dest)
}

func TestStageRestore(t *testing.T) {
	store := &downloadStore{data: []byte("ciphertext")}
	dest := filepath.Join(t.TempDir(), "file")
	p := newPlan(store, dest)

	temp, err := p.StageForDecryption(context.Background())
	require.NoError(t, err)
	// 解密写了一半
	require.NoError(t, os.WriteFile(dest, []byte("garb"), 0o644))

	require.NoError(t, p.Restore())
	assert.NoFileExists(t, temp)
	got, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "ciphertext", string(got))
}

func TestStageCollision(t *testing.T) {
	store := &downloadStore{data: []byte("ciphertext")}
	dest := filepath.Join(t.TempDir(), "file")
	p := newPlan(store, dest)

	fixed := time.Date(2024, 1, 2, 3, 4, 5, 6, time.UTC)
	p.now = func() time.Time { return fixed }
	require.NoError(t, os.WriteFile(TempName(dest, fixed), nil, 0o644))

	_, err := p.StageForDecryption(context.Background())
	assert.ErrorIs(t, err, ErrTempFileCollision)
	assert.FileExists(t, dest)
	assert.Empty(t, p.TempFile())
}

func TestCloseRemovesTempFile(t *testing.T) {
	store := &downloadStore{data: []byte("ciphertext")}
	dest := filepath.Join(t.TempDir(), "file")
	p := newPlan(store, dest)

	temp, err := p.StageForDecryption(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.NoFileExists(t, temp)
	assert.Empty(t, p.TempFile())
}

func TestTempName(t *testing.T) {
	now := time.Now()
	assert.Equal(t, TempName("/x/file", now), TempName("/x/file", now))
	assert.NotEqual(t, TempName("/x/file", now), TempName("/x/file", now.Add(time.Nanosecond)))
	assert.NotEqual(t, TempName("/x/file", now), TempName("/x/other", now))
}
