package monitor

import (
	"context"
	"math"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/elastic-io/manifest-tools/internal/log"
	"github.com/elastic-io/manifest-tools/internal/types"
)

// Stats 一次内存采样，单位 MiB
type Stats struct {
	Alloc      uint64
	TotalAlloc uint64
	Sys        uint64
	NumGC      uint32
}

func Snapshot() Stats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return Stats{
		Alloc:      m.Alloc / types.MB,
		TotalAlloc: m.TotalAlloc / types.MB,
		Sys:        m.Sys / types.MB,
		NumGC:      m.NumGC,
	}
}

// GCThreshold 返回软内存上限的 90%，未设置上限时为 0
func GCThreshold() uint64 {
	limit := debug.SetMemoryLimit(-1)
	if limit <= 0 || limit == math.MaxInt64 {
		return 0
	}
	return uint64(limit) / 10 * 9
}

// MemoryUsage logs memory statistics every interval until ctx is done.
// Above limit bytes (0 disables the check) a GC is forced.
func MemoryUsage(ctx context.Context, interval time.Duration, limit uint64) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		s := Snapshot()
		log.Logger.Debugf("Memory usage: Alloc=%v MiB, TotalAlloc=%v MiB, Sys=%v MiB, NumGC=%v",
			s.Alloc, s.TotalAlloc, s.Sys, s.NumGC)

		// 如果内存使用过高，触发 GC
		if limit > 0 && s.Alloc*types.MB > limit {
			log.Logger.Warn("High memory usage detected, triggering GC")
			runtime.GC()
		}
	}
}
