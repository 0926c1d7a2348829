package badger

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	"github.com/elastic-io/manifest-tools/internal/log"
	"github.com/elastic-io/manifest-tools/internal/storage"
	"github.com/elastic-io/manifest-tools/internal/types"
)

func init() {
	storage.BackendRegister("badger", NewBadgerStorage)
}

// 键前缀定义 - Badger是扁平键值存储，使用前缀区分不同类型的数据
const (
	bucketsPrefix = "buckets/"
	objectsPrefix = "objects/"

	maxRetries = 3
	retryDelay = 100 * time.Millisecond
)

// BadgerStorage 使用 Badger 保存桶与对象
type BadgerStorage struct {
	db        *badger.DB
	closeOnce sync.Once
	closed    bool
	mu        sync.RWMutex
}

func NewBadgerStorage(path string) (storage.Storage, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil // 禁用Badger内部日志
	opts.SyncWrites = false
	opts.ValueThreshold = 1 * types.MB
	opts.BlockCacheSize = 16 * types.MB
	opts.IndexCacheSize = 8 * types.MB

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}
	return &BadgerStorage{db: db}, nil
}

func bucketKey(bucket string) []byte {
	return []byte(bucketsPrefix + bucket)
}

func objectKey(bucket, key string) []byte {
	return []byte(objectsPrefix + bucket + "/" + key)
}

// 安全的Item值访问函数
func safeItemValue(item *badger.Item, operation func([]byte) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Errorf("Recovered from panic in item value access: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("panic in item value access: %v", r)
		}
	}()
	return item.Value(operation)
}

// 写冲突时重试
func (s *BadgerStorage) withRetry(operation func() error) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		if err = operation(); !errors.Is(err, badger.ErrConflict) {
			return err
		}
		log.Logger.Warnf("Transaction conflict (attempt %d/%d): %v", i+1, maxRetries, err)
		time.Sleep(retryDelay * time.Duration(i+1))
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

func (s *BadgerStorage) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		err = s.db.Close()
	})
	return err
}

func (s *BadgerStorage) CreateBucket(bucket, region string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	log.Logger.Debugf("Creating bucket %s in region %s", bucket, region)

	return s.withRetry(func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			if _, err := txn.Get(bucketKey(bucket)); err == nil {
				return fmt.Errorf("%w: %s", storage.ErrBucketExists, bucket)
			} else if !errors.Is(err, badger.ErrKeyNotFound) {
				return err
			}
			return txn.Set(bucketKey(bucket), []byte(region))
		})
	})
}

func bucketRegion(txn *badger.Txn, bucket string) (string, error) {
	item, err := txn.Get(bucketKey(bucket))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", fmt.Errorf("%w: %s", storage.ErrBucketNotFound, bucket)
	}
	if err != nil {
		return "", err
	}
	// us-east-1 存储为空值
	region, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(region), nil
}

func (s *BadgerStorage) BucketRegion(bucket string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return "", storage.ErrClosed
	}

	var region string
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		region, err = bucketRegion(txn, bucket)
		return err
	})
	return region, err
}

func (s *BadgerStorage) PutObject(bucket string, object *types.ObjectData) error {
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

	return s.withRetry(func() error {
		return s.db.Update(func(txn *badger.Txn) error {
			if _, err := bucketRegion(txn, bucket); err != nil {
				return err
			}
			return txn.Set(objectKey(bucket, object.Key), data)
		})
	})
}

func (s *BadgerStorage) GetObject(bucket, key string) (*types.ObjectData, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	var objData *types.ObjectData
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := bucketRegion(txn, bucket); err != nil {
			return err
		}
		item, err := txn.Get(objectKey(bucket, key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s/%s", storage.ErrObjectNotFound, bucket, key)
		}
		if err != nil {
			return err
		}
		return safeItemValue(item, func(val []byte) error {
			objData = &types.ObjectData{}
			return objData.UnmarshalJSON(val)
		})
	})
	if err != nil {
		return nil, err
	}
	return objData, nil
}
