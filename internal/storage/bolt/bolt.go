package bolt

import (
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/elastic-io/manifest-tools/internal/log"
	"github.com/elastic-io/manifest-tools/internal/storage"
	"github.com/elastic-io/manifest-tools/internal/types"
	"go.etcd.io/bbolt"
)

func init() {
	storage.BackendRegister("bolt", NewBoltStorage)
}

// 常量定义
const (
	bucketsBucket = "buckets"
	objectsBucket = "objects"
)

// BoltStorage 使用 BoltDB 保存桶与对象
type BoltStorage struct {
	db        *bbolt.DB
	closeOnce sync.Once
	closed    bool
	mu        sync.RWMutex
}

// NewBoltStorage 创建一个新的BoltDB存储实例
func NewBoltStorage(path string) (storage.Storage, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{
		Timeout:      1 * time.Second,
		FreelistType: bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database: %w", err)
	}

	// 初始化所有必要的桶
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range []string{bucketsBucket, objectsBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return &BoltStorage{db: db}, nil
}

// 安全的桶操作包装函数
func (s *BoltStorage) safeBucketOperation(tx *bbolt.Tx, bucketName string, operation func(*bbolt.Bucket) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Errorf("Recovered from panic in bucket operation: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic in bucket operation: %v", r)
		}
	}()

	bucket := tx.Bucket([]byte(bucketName))
	if bucket == nil {
		return fmt.Errorf("bucket %s not found", bucketName)
	}
	return operation(bucket)
}

func (s *BoltStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		err = s.db.Close()
	})
	return err
}

func (s *BoltStorage) CreateBucket(bucket, region string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	log.Logger.Debugf("Creating bucket %s in region %s", bucket, region)

	return s.db.Update(func(tx *bbolt.Tx) error {
		return s.safeBucketOperation(tx, bucketsBucket, func(b *bbolt.Bucket) error {
			if b.Get([]byte(bucket)) != nil {
				return fmt.Errorf("%w: %s", storage.ErrBucketExists, bucket)
			}
			return b.Put([]byte(bucket), []byte(region))
		})
	})
}

// BucketRegion 返回桶所在区域，us-east-1 存储为空字符串
func (s *BoltStorage) BucketRegion(bucket string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", storage.ErrClosed
	}

	var region string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return s.safeBucketOperation(tx, bucketsBucket, func(b *bbolt.Bucket) error {
			v := b.Get([]byte(bucket))
			if v == nil {
				return fmt.Errorf("%w: %s", storage.ErrBucketNotFound, bucket)
			}
			region = string(v)
			return nil
		})
	})
	return region, err
}

func (s *BoltStorage) PutObject(bucket string, object *types.ObjectData) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}

	if object.ETag == "" {
		object.ETag = storage.CalculateETag(object.Data)
	}
	if object.LastModified.IsZero() {
		object.LastModified = time.Now().UTC()
	}
	data, err := object.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal object: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(bucketsBucket)).Get([]byte(bucket)) == nil {
			return fmt.Errorf("%w: %s", storage.ErrBucketNotFound, bucket)
		}
		return s.safeBucketOperation(tx, objectsBucket, func(objBkt *bbolt.Bucket) error {
			return objBkt.Put([]byte(bucket+"/"+object.Key), data)
		})
	})
}

func (s *BoltStorage) GetObject(bucket, key string) (*types.ObjectData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	var objData *types.ObjectData
	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(bucketsBucket)).Get([]byte(bucket)) == nil {
			return fmt.Errorf("%w: %s", storage.ErrBucketNotFound, bucket)
		}
		return s.safeBucketOperation(tx, objectsBucket, func(objBkt *bbolt.Bucket) error {
			data := objBkt.Get([]byte(bucket + "/" + key))
			if data == nil {
				return fmt.Errorf("%w: %s/%s", storage.ErrObjectNotFound, bucket, key)
			}
			objData = &types.ObjectData{}
			return objData.UnmarshalJSON(data)
		})
	})
	if err != nil {
		return nil, err
	}
	return objData, nil
}
