package bolt

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/elastic-io/manifest-tools/internal/storage"
	"github.com/elastic-io/manifest-tools/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 测试辅助函数
func setupTestStorage(t *testing.T) *BoltStorage {
	s, err := storage.NewStorage("bolt", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s.(*BoltStorage)
}

func TestNewBoltStorage(t *testing.T) {
	t.Run("成功创建存储", func(t *testing.T) {
		s := setupTestStorage(t)
		assert.NotNil(t, s.db)
	})

	t.Run("无效路径", func(t *testing.T) {
		_, err := NewBoltStorage("/invalid/path/test.db")
		assert.Error(t, err)
	})
}

func TestBucketOperations(t *testing.T) {
	s := setupTestStorage(t)

	t.Run("创建桶", func(t *testing.T) {
		require.NoError(t, s.CreateBucket("eu-bucket", "eu-west-1"))
		require.NoError(t, s.CreateBucket("us-bucket", ""))
	})

	t.Run("桶已存在", func(t *testing.T) {
		assert.ErrorIs(t, s.CreateBucket("eu-bucket", "eu-west-1"), storage.ErrBucketExists)
	})

	t.Run("桶区域", func(t *testing.T) {
		region, err := s.BucketRegion("eu-bucket")
		require.NoError(t, err)
		assert.Equal(t, "eu-west-1", region)

		region, err = s.BucketRegion("us-bucket")
		require.NoError(t, err)
		assert.Equal(t, "", region)

		_, err = s.BucketRegion("non-existent")
		assert.ErrorIs(t, err, storage.ErrBucketNotFound)
	})
}

func TestObjectOperations(t *testing.T) {
	s := setupTestStorage(t)
	require.NoError(t, s.CreateBucket("b", ""))

	t.Run("写入并读取对象", func(t *testing.T) {
		obj := &types.ObjectData{
			Key:         "dir/file.txt",
			Data:        []byte("test data"),
			ContentType: "text/plain",
			Metadata:    map[string]string{"x-amz-iv": "aXY="},
		}
		require.NoError(t, s.PutObject("b", obj))

		got, err := s.GetObject("b", "dir/file.txt")
		require.NoError(t, err)
		assert.Equal(t, []byte("test data"), got.Data)
		assert.Equal(t, "text/plain", got.ContentType)
		assert.Equal(t, storage.CalculateETag([]byte("test data")), got.ETag)
		assert.Equal(t, "aXY=", got.Metadata["x-amz-iv"])
		assert.WithinDuration(t, time.Now(), got.LastModified, time.Minute)
	})

	t.Run("对象不存在", func(t *testing.T) {
		_, err := s.GetObject("b", "missing")
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	})

	t.Run("桶不存在", func(t *testing.T) {
		assert.ErrorIs(t, s.PutObject("nope", &types.ObjectData{Key: "k"}), storage.ErrBucketNotFound)
		_, err := s.GetObject("nope", "k")
		assert.ErrorIs(t, err, storage.ErrBucketNotFound)
	})
}

func TestClosedStorage(t *testing.T) {
	s := setupTestStorage(t)
	require.NoError(t, s.Close())
	assert.NoError(t, s.Close())

	assert.ErrorIs(t, s.CreateBucket("b", ""), storage.ErrClosed)
	_, err := s.GetObject("b", "k")
	assert.ErrorIs(t, err, storage.ErrClosed)
}
