package types

import "fmt"

// DefaultFetchSize 单次范围读取的默认窗口大小
const DefaultFetchSize = 10_000_000

// ByteRange is a half-open read window that walks an object window by window.
// Upper is always Lower+Size-1.
type ByteRange struct {
	Size  int64
	Lower int64
	Upper int64
}

func NewByteRange(size int64) ByteRange {
	if size <= 0 {
		size = DefaultFetchSize
	}
	return ByteRange{Size: size, Lower: 0, Upper: size - 1}
}

// Header 返回 HTTP Range 头的取值
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Lower, r.Upper)
}

func (r ByteRange) String() string {
	return r.Header()
}

// Advance shifts the window by Size and returns the new header value.
func (r *ByteRange) Advance() string {
	r.Lower += r.Size
	r.Upper += r.Size
	return r.Header()
}
