package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/elastic-io/manifest-tools/internal/storage"
	_ "github.com/elastic-io/manifest-tools/internal/storage/badger"
	_ "github.com/elastic-io/manifest-tools/internal/storage/bolt"
	"github.com/elastic-io/manifest-tools/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var engines = []struct {
	name string
	path func(dir string) string
}{
	{"bolt", func(dir string) string { return filepath.Join(dir, "test.db") }},
	{"badger", func(dir string) string { return dir }},
}

func TestNewStorageUnknownEngine(t *testing.T) {
	_, err := storage.NewStorage("leveldb", t.TempDir())
	assert.Error(t, err)
}

func TestBackendRegisterTwice(t *testing.T) {
	assert.Panics(t, func() {
		storage.BackendRegister("bolt", nil)
	})
}

func TestCalculateETag(t *testing.T) {
	assert.Equal(t, `"5eb63bbbe01eeed093cb22bb8f5acdc3"`, storage.CalculateETag([]byte("hello world")))
}

func TestEngines(t *testing.T) {
	for _, engine := range engines {
		t.Run(engine.name, func(t *testing.T) {
			s, err := storage.NewStorage(engine.name, engine.path(t.TempDir()))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })

			require.NoError(t, s.CreateBucket("eu-bucket", "eu-west-1"))
			require.NoError(t, s.CreateBucket("us-bucket", ""))
			assert.ErrorIs(t, s.CreateBucket("eu-bucket", ""), storage.ErrBucketExists)

			region, err := s.BucketRegion("eu-bucket")
			require.NoError(t, err)
			assert.Equal(t, "eu-west-1", region)
			region, err = s.BucketRegion("us-bucket")
			require.NoError(t, err)
			assert.Equal(t, "", region)
			_, err = s.BucketRegion("missing")
			assert.ErrorIs(t, err, storage.ErrBucketNotFound)

			obj := &types.ObjectData{
				Key:         "unload/0000_part_00",
				Data:        []byte("1|alpha\n"),
				ContentType: "application/octet-stream",
				Metadata:    map[string]string{"x-amz-key": "a2V5"},
			}
			require.NoError(t, s.PutObject("eu-bucket", obj))
			assert.ErrorIs(t, s.PutObject("missing", obj), storage.ErrBucketNotFound)

			got, err := s.GetObject("eu-bucket", "unload/0000_part_00")
			require.NoError(t, err)
			assert.Equal(t, obj.Data, got.Data)
			assert.Equal(t, storage.CalculateETag(obj.Data), got.ETag)
			assert.Equal(t, "a2V5", got.Metadata["x-amz-key"])
			assert.False(t, got.LastModified.IsZero())

			_, err = s.GetObject("eu-bucket", "unload/missing")
			assert.ErrorIs(t, err, storage.ErrObjectNotFound)
			_, err = s.GetObject("us-bucket", "unload/0000_part_00")
			assert.ErrorIs(t, err, storage.ErrObjectNotFound)
			_, err = s.GetObject("missing", "k")
			assert.ErrorIs(t, err, storage.ErrBucketNotFound)

			require.NoError(t, s.Close())
			assert.NoError(t, s.Close())
			_, err = s.BucketRegion("eu-bucket")
			assert.ErrorIs(t, err, storage.ErrClosed)
		})
	}
}
