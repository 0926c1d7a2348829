package manifest

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/elastic-io/manifest-tools/internal/blobstore"
	"github.com/elastic-io/manifest-tools/internal/log"
	"github.com/elastic-io/manifest-tools/internal/object"
	"github.com/elastic-io/manifest-tools/internal/utils"
	"github.com/mailru/easyjson"
)

var (
	ErrInvalidEntry    = errors.New("manifest entries must be object references")
	ErrInvalidDocument = errors.New("invalid manifest document")
)

// Document 清单文件的 JSON 结构
//
//go:generate easyjson -all manifest.go
type Document struct {
	Entries []Entry `json:"entries"`
}

type Entry struct {
	URL       string    `json:"url"`
	Mandatory bool      `json:"mandatory,omitempty"`
	Meta      EntryMeta `json:"meta"`
}

type EntryMeta struct {
	ContentLength int64 `json:"content_length,omitempty"`
}

type record struct {
	ref   *object.Ref
	entry Entry
}

// Manifest is an ordered list of object references. Load order is kept and
// duplicates are allowed.
type Manifest struct {
	records []record
	region  string
	store   blobstore.BlobStore
}

type Option func(*Manifest)

// WithRegion 为所有条目指定区域
func WithRegion(region string) Option {
	return func(m *Manifest) {
		m.region = region
	}
}

// WithStore 为所有条目绑定对象存储
func WithStore(store blobstore.BlobStore) Option {
	return func(m *Manifest) {
		m.store = store
	}
}

func New(opts ...Option) *Manifest {
	m := &Manifest{}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load reads a manifest from a local file when source names one, and
// otherwise treats source as a literal JSON document.
func Load(source string, opts ...Option) (*Manifest, error) {
	if utils.FileExist(source) {
		return LoadFile(source, opts...)
	}
	return Parse([]byte(source), opts...)
}

func LoadFile(path string, opts ...Option) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	return Parse(data, opts...)
}

func Parse(data []byte, opts ...Option) (*Manifest, error) {
	var doc Document
	if err := easyjson.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	m := New(opts...)
	for _, entry := range doc.Entries {
		ref, err := object.Parse(entry.URL)
		if err != nil {
			return nil, err
		}
		m.add(ref, entry)
	}
	log.Logger.Debugf("loaded manifest with %d entries", len(m.records))
	return m, nil
}

// Add appends ref, binding it to the manifest's store and region.
func (m *Manifest) Add(ref *object.Ref) error {
	if ref == nil {
		return ErrInvalidEntry
	}
	m.add(ref, Entry{URL: ref.String()})
	return nil
}

func (m *Manifest) add(ref *object.Ref, entry Entry) {
	if m.region != "" {
		ref.SetRegion(m.region)
	}
	if m.store != nil {
		ref.Bind(m.store)
	}
	m.records = append(m.records, record{ref: ref, entry: entry})
}

func (m *Manifest) Contains(ref *object.Ref) bool {
	for _, r := range m.records {
		if r.ref.Equal(ref) {
			return true
		}
	}
	return false
}

func (m *Manifest) Len() int {
	return len(m.records)
}

func (m *Manifest) Entries() []*object.Ref {
	refs := make([]*object.Ref, len(m.records))
	for i, r := range m.records {
		refs[i] = r.ref
	}
	return refs
}

// Document 返回清单的 JSON 结构，包含解析时保留的附加字段
func (m *Manifest) Document() *Document {
	doc := &Document{Entries: make([]Entry, len(m.records))}
	for i, r := range m.records {
		doc.Entries[i] = r.entry
	}
	return doc
}

// CommonPrefix returns the longest shared leading run of characters across
// all entries. A single entry is its own prefix.
func (m *Manifest) CommonPrefix() string {
	if len(m.records) == 0 {
		return ""
	}
	prefix := m.records[0].ref.String()
	for _, r := range m.records[1:] {
		prefix = commonPrefix(prefix, r.ref.String())
		if prefix == "" {
			break
		}
	}
	return prefix
}

// CommonPathPrefix 截断到最后一个 '/'，结果总以 '/' 结尾（空清单除外）
func (m *Manifest) CommonPathPrefix() string {
	prefix := m.CommonPrefix()
	return prefix[:strings.LastIndex(prefix, "/")+1]
}

func commonPrefix(a, b string) string {
	n := min(len(a), len(b))
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
