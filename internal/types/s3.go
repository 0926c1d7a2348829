package types

import (
	"strings"
	"time"
)

const (
	KB = 1 << 10
	MB = 1 << 20
	GB = 1 << 30
)

// ObjectMeta HEAD 请求返回的对象元数据
//
// Metadata keys are lower-cased user metadata names without the
// x-amz-meta- prefix, e.g. "x-amz-key" for header x-amz-meta-x-amz-key.
type ObjectMeta struct {
	Size         int64
	ETag         string
	LastModified time.Time
	Metadata     map[string]string
}

// Get 大小写不敏感地读取用户元数据
func (m *ObjectMeta) Get(name string) (string, bool) {
	if m == nil || m.Metadata == nil {
		return "", false
	}
	v, ok := m.Metadata[strings.ToLower(name)]
	return v, ok
}

// NormalizeMetadata lower-cases metadata keys so lookups do not depend on
// how a backend canonicalised the response headers.
func NormalizeMetadata(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[strings.ToLower(k)] = v
	}
	return out
}

// ObjectData 表示 S3 对象的完整数据
//
//go:generate easyjson -all s3.go
type ObjectData struct {
	Key          string
	Data         []byte
	ContentType  string
	LastModified time.Time
	ETag         string
	Metadata     map[string]string
}
