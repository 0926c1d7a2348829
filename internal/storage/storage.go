package storage

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/elastic-io/manifest-tools/internal/types"
)

var (
	ErrBucketNotFound = errors.New("bucket not found")
	ErrObjectNotFound = errors.New("object not found")
	ErrBucketExists   = errors.New("bucket already exists")
	ErrClosed         = errors.New("storage is closed")
)

// Storage 网关背后的对象存储
type Storage interface {
	// 桶操作
	CreateBucket(bucket, region string) error
	BucketRegion(bucket string) (string, error)

	// 基本对象操作
	PutObject(bucket string, object *types.ObjectData) error
	GetObject(bucket, key string) (*types.ObjectData, error)

	// 关闭存储
	Close() error
}

type backend func(string) (Storage, error)

var Backends = map[string]backend{}

func BackendRegister(name string, be backend) {
	if _, ok := Backends[name]; ok {
		panic(fmt.Errorf("backend %s already registered", name))
	}
	Backends[name] = be
}

func NewStorage(engine, path string) (Storage, error) {
	if backend, ok := Backends[engine]; ok {
		return backend(path)
	}
	return nil, fmt.Errorf("backend %s not found", engine)
}

// CalculateETag 计算数据的MD5哈希作为ETag
func CalculateETag(data []byte) string {
	hash := md5.Sum(data)
	return fmt.Sprintf("\"%s\"", hex.EncodeToString(hash[:]))
}
