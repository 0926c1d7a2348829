package transfer

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/elastic-io/manifest-tools/internal/log"
	"github.com/elastic-io/manifest-tools/internal/object"
	"github.com/elastic-io/manifest-tools/internal/utils"
	"github.com/google/uuid"
)

// Namespace 参与临时文件名哈希的固定标记
const Namespace = "manifest-tools"

var (
	ErrTempFileCollision  = errors.New("temp file already exists")
	ErrInvalidDestination = errors.New("invalid destination")
)

// Plan pairs one object with its local destination and owns the local file
// lifecycle. An empty Destination means the object is streamed to a sink.
type Plan struct {
	Source      *object.Ref
	Destination string

	mu         sync.Mutex
	downloaded bool
	tempFile   string
	now        func() time.Time
}

func New(src *object.Ref, dest string) *Plan {
	return &Plan{Source: src, Destination: dest, now: time.Now}
}

func (p *Plan) IsStream() bool {
	return p.Destination == ""
}

func (p *Plan) String() string {
	if p.IsStream() {
		return fmt.Sprintf("%s -> <sink>", p.Source)
	}
	return fmt.Sprintf("%s -> %s", p.Source, p.Destination)
}

// TempFile 返回当前持有的临时文件，没有则为空
func (p *Plan) TempFile() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tempFile
}

// EnsureParentDirectoryExists creates missing parents. A parent that is a
// regular file, or a symlink not resolving to a directory, is an error.
func (p *Plan) EnsureParentDirectoryExists() error {
	if p.IsStream() {
		return fmt.Errorf("%w: %s has no destination", ErrInvalidDestination, p.Source)
	}
	parent := filepath.Dir(p.Destination)

	fi, err := os.Lstat(parent)
	switch {
	case os.IsNotExist(err):
		return os.MkdirAll(parent, 0o755)
	case err != nil:
		return err
	case fi.Mode()&os.ModeSymlink != 0:
		if !utils.IsDir(parent) {
			return fmt.Errorf("%w: %s exists but it is link to no directory", ErrInvalidDestination, parent)
		}
	case !fi.IsDir():
		return fmt.Errorf("%w: %s exists but it is no directory", ErrInvalidDestination, parent)
	}
	return nil
}

// Download fetches the object once; later calls are no-ops. Data is written
// to a .part sibling and renamed over the destination when complete.
func (p *Plan) Download(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.download(ctx)
}

func (p *Plan) download(ctx context.Context) error {
	if p.downloaded {
		log.Logger.Debugf("%s has previously been downloaded to %s, skipping download", p.Source, p.Destination)
		return nil
	}
	if err := p.EnsureParentDirectoryExists(); err != nil {
		return err
	}

	part := p.Destination + ".part"
	if err := p.Source.Download(ctx, part); err != nil {
		os.Remove(part)
		return err
	}
	if err := os.Rename(part, p.Destination); err != nil {
		os.Remove(part)
		return err
	}
	p.downloaded = true
	log.Logger.Debugf("downloaded %s to %s", p.Source, p.Destination)
	return nil
}

// StageForDecryption downloads the object if needed and moves it to a unique
// temp path next to the destination, returning that path.
func (p *Plan) StageForDecryption(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tempFile != "" {
		return p.tempFile, nil
	}
	if err := p.download(ctx); err != nil {
		return "", err
	}

	temp := TempName(p.Destination, p.now())
	if utils.FileExist(temp) {
		return "", fmt.Errorf("%w: %s, this is a fatal error", ErrTempFileCollision, temp)
	}
	if err := os.Rename(p.Destination, temp); err != nil {
		return "", err
	}
	p.tempFile = temp
	return temp, nil
}

// Finalize 解密成功后删除临时文件
func (p *Plan) Finalize() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cleanup()
}

// Restore moves the staged file back to the destination, leaving the
// undecrypted object in place.
func (p *Plan) Restore() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tempFile == "" {
		return nil
	}
	if err := os.Rename(p.tempFile, p.Destination); err != nil {
		return err
	}
	p.tempFile = ""
	return nil
}

// Close releases the plan. A temp file still held at this point is removed
// with a warning.
func (p *Plan) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.tempFile == "" {
		return nil
	}
	log.Logger.Warnf("temp file %s is still present, cleaning up as %s is released", p.tempFile, p)
	return p.cleanup()
}

func (p *Plan) cleanup() error {
	if p.tempFile == "" {
		return nil
	}
	log.Logger.Debugf("cleanup temp file %s", p.tempFile)
	if err := os.Remove(p.tempFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	p.tempFile = ""
	return nil
}

// TempName derives <path>.<hex> from the path, Namespace and a timestamp.
func TempName(path string, now time.Time) string {
	id := uuid.NewMD5(uuid.NameSpaceURL, []byte(path+Namespace+now.Format(time.RFC3339Nano)))
	return path + "." + hex.EncodeToString(id[:])
}
