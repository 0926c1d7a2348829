package object

import (
	"context"
	"io"

	"github.com/elastic-io/manifest-tools/internal/types"
)

// rangeReader 按窗口顺序读取对象
type rangeReader struct {
	ctx  context.Context
	ref  *Ref
	rng  types.ByteRange
	buf  []byte
	done bool
}

// NewReader streams the object window by window, fetchSize bytes at a time.
// The stream ends at the first short window or at end-of-data.
func (r *Ref) NewReader(ctx context.Context, fetchSize int64) io.Reader {
	return &rangeReader{ctx: ctx, ref: r, rng: types.NewByteRange(fetchSize)}
}

// next 拉取下一个窗口，返回 false 表示已无数据
func (rr *rangeReader) next() ([]byte, bool, error) {
	if rr.done {
		return nil, false, nil
	}
	frag, err := rr.ref.ReadRange(rr.ctx, rr.rng)
	if err != nil {
		return nil, false, err
	}
	if frag.EndOfData() {
		rr.done = true
		return nil, false, nil
	}
	if frag.Length < rr.rng.Size {
		rr.done = true
	} else {
		rr.rng.Advance()
	}
	return frag.Data, true, nil
}

func (rr *rangeReader) Read(p []byte) (int, error) {
	for len(rr.buf) == 0 {
		data, ok, err := rr.next()
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, io.EOF
		}
		rr.buf = data
	}
	n := copy(p, rr.buf)
	rr.buf = rr.buf[n:]
	return n, nil
}

// WriteTo hands whole windows to w so io.Copy writes chunk by chunk.
func (rr *rangeReader) WriteTo(w io.Writer) (int64, error) {
	var total int64
	if len(rr.buf) > 0 {
		n, err := w.Write(rr.buf)
		total += int64(n)
		rr.buf = nil
		if err != nil {
			return total, err
		}
	}
	for {
		data, ok, err := rr.next()
		if err != nil || !ok {
			return total, err
		}
		n, err := w.Write(data)
		total += int64(n)
		if err != nil {
			return total, err
		}
	}
}
