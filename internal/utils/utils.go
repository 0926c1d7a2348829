package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/elastic-io/manifest-tools/internal/log"
)

// ParseSize parses sizes such as "100", "64K", "10m" or "1G".
func ParseSize(s string) (int64, error) {
	sz := strings.TrimRight(s, "gGmMkK")
	if len(sz) == 0 {
		return -1, fmt.Errorf("%q:can't parse as num[gGmMkK]:%w", s, strconv.ErrSyntax)
	}
	amt, err := strconv.ParseUint(sz, 0, 0)
	if err != nil {
		return -1, err
	}
	unit := s[len(sz):]
	switch unit {
	case "G", "g":
		return int64(amt) << 30, nil
	case "M", "m":
		return int64(amt) << 20, nil
	case "K", "k":
		return int64(amt) << 10, nil
	case "":
		return int64(amt), nil
	}
	return -1, fmt.Errorf("can not parse %q as num[gGmMkK]:%w", s, strconv.ErrSyntax)
}

// FileExist 判断路径是否存在（不跟随符号链接）
func FileExist(file string) bool {
	_, err := os.Lstat(file)
	return err == nil
}

func IsDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func SafeGo(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Logger.Errorf("goroutine panic: %v", r)
			}
		}()
		fn()
	}()
}
