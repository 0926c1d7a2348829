package object

import (
	"fmt"
	"regexp"
	"strings"
)

// Scheme 对象路径前缀
const Scheme = "s3://"

// Bucket restrictions are looser than AWS' naming rules on purpose: legacy
// us-east-1 buckets may contain upper case characters.
var pathPattern = regexp.MustCompile(`^s3://(?P<bucket>[A-Za-z0-9.-]*)/(?P<key>.*)$`)

// Parse 解析 s3://bucket/key 形式的路径
func Parse(path string) (*Ref, error) {
	if !strings.HasPrefix(path, Scheme) {
		return nil, fmt.Errorf("%w: path did not start with '%s': %s", ErrInvalidPath, Scheme, path)
	}
	m := pathPattern.FindStringSubmatch(path)
	if m == nil {
		return nil, fmt.Errorf("%w: could not parse %s", ErrInvalidPath, path)
	}
	return New(m[pathPattern.SubexpIndex("bucket")], m[pathPattern.SubexpIndex("key")]), nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(path string) *Ref {
	r, err := Parse(path)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Ref) String() string {
	return fmt.Sprintf("%s%s/%s", Scheme, r.Bucket, r.Key)
}

// LocalName 返回对象在本地的相对文件名。
// With no prefix it is the last segment of the key; otherwise it is the
// object's path with prefix removed.
func (r *Ref) LocalName(prefix string) (string, error) {
	if prefix == "" {
		parts := strings.Split(r.Key, "/")
		return parts[len(parts)-1], nil
	}
	full := r.String()
	if !strings.HasPrefix(full, prefix) {
		return "", fmt.Errorf("%w: %s does not start with %s", ErrPrefixMismatch, full, prefix)
	}
	return full[len(prefix):], nil
}
