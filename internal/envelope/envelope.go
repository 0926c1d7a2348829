package envelope

import (
	"bytes"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/elastic-io/manifest-tools/internal/log"
	"github.com/elastic-io/manifest-tools/internal/object"
)

// ChunkSize 流式解密每次读取的密文大小
const ChunkSize = 32 * 1024

// Envelope decrypts objects written with the client-side envelope scheme:
// the per-object data key is wrapped with the master key in AES-ECB, the
// content is AES-CBC with PKCS#7 padding on the last block.
type Envelope struct {
	key       *SymmetricKey
	materials *object.EncryptionMaterials

	once    sync.Once
	dataKey []byte
	err     error
}

func New(key *SymmetricKey, materials *object.EncryptionMaterials) (*Envelope, error) {
	if key == nil || !validKeyLength(len(key.data)) {
		return nil, fmt.Errorf("%w: a valid symmetric key is required", ErrInvalidKey)
	}
	if materials == nil {
		return nil, object.ErrMissingEncryptionMetadata
	}
	if len(materials.IV) != aes.BlockSize {
		return nil, fmt.Errorf("%w: iv must be %d bytes, got %d", object.ErrMissingEncryptionMetadata, aes.BlockSize, len(materials.IV))
	}
	return &Envelope{key: key, materials: materials}, nil
}

// NewForObject fetches the object's encryption headers before construction.
func NewForObject(ctx context.Context, key *SymmetricKey, ref *object.Ref) (*Envelope, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: a valid symmetric key is required", ErrInvalidKey)
	}
	materials, err := ref.EncryptionMaterials(ctx)
	if err != nil {
		return nil, err
	}
	log.Logger.Debugf("retrieved envelope encryption materials of %s", ref)
	return New(key, materials)
}

// DataKey unwraps the per-object key once and caches it.
func (e *Envelope) DataKey() ([]byte, error) {
	e.once.Do(func() {
		e.dataKey, e.err = e.unwrap()
	})
	return e.dataKey, e.err
}

func (e *Envelope) unwrap() ([]byte, error) {
	wrapped := e.materials.WrappedKey
	if len(wrapped) == 0 || len(wrapped)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: wrapped key length %d is not a multiple of %d", ErrDecryptionIntegrity, len(wrapped), aes.BlockSize)
	}
	block, err := aes.NewCipher(e.key.data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}

	// ECB：逐块解密，无 IV
	padded := make([]byte, len(wrapped))
	for i := 0; i < len(wrapped); i += aes.BlockSize {
		block.Decrypt(padded[i:i+aes.BlockSize], wrapped[i:i+aes.BlockSize])
	}
	key, err := unpad(padded)
	if err != nil {
		return nil, fmt.Errorf("unwrap data key: %w", err)
	}
	if !validKeyLength(len(key)) {
		return nil, fmt.Errorf("%w: unwrapped data key has %d bytes", ErrDecryptionIntegrity, len(key))
	}
	return key, nil
}

func (e *Envelope) newDecrypter() (cipher.BlockMode, error) {
	key, err := e.DataKey()
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecryptionIntegrity, err)
	}
	return cipher.NewCBCDecrypter(block, e.materials.IV), nil
}

// DecryptBytes 一次性解密，适用于小对象
func (e *Envelope) DecryptBytes(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: ciphertext length %d is not a multiple of %d", ErrDecryptionIntegrity, len(ciphertext), aes.BlockSize)
	}
	mode, err := e.newDecrypter()
	if err != nil {
		return nil, err
	}
	plain := make([]byte, len(ciphertext))
	mode.CryptBlocks(plain, ciphertext)
	return unpad(plain)
}

// Decrypt streams src to dst in ChunkSize pieces. One decrypted chunk is held
// back so the padding is only stripped once the end of src is confirmed.
func (e *Envelope) Decrypt(src io.Reader, dst io.Writer) (int64, error) {
	mode, err := e.newDecrypter()
	if err != nil {
		return 0, err
	}

	var (
		written int64
		in      = make([]byte, ChunkSize)
		held    = make([]byte, 0, ChunkSize)
		next    = make([]byte, ChunkSize)
		started bool
	)
	for {
		n, rerr := io.ReadFull(src, in)
		if rerr == io.EOF {
			break
		}
		if rerr != nil && rerr != io.ErrUnexpectedEOF {
			return written, rerr
		}
		if n%aes.BlockSize != 0 {
			return written, fmt.Errorf("%w: ciphertext is not a multiple of %d bytes", ErrDecryptionIntegrity, aes.BlockSize)
		}

		if started {
			w, err := dst.Write(held)
			written += int64(w)
			if err != nil {
				return written, err
			}
		}
		mode.CryptBlocks(next[:n], in[:n])
		held, next = next[:n], held[:cap(held)]
		started = true

		if rerr == io.ErrUnexpectedEOF {
			break
		}
	}
	if !started {
		return 0, fmt.Errorf("%w: empty ciphertext", ErrDecryptionIntegrity)
	}

	last, err := unpad(held)
	if err != nil {
		return written, err
	}
	w, err := dst.Write(last)
	written += int64(w)
	return written, err
}

// DecryptFile decrypts srcPath into dstPath, truncating dstPath.
func (e *Envelope) DecryptFile(srcPath, dstPath string) error {
	in, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	log.Logger.Debugf("decrypting %s to %s", srcPath, dstPath)
	if _, err := e.Decrypt(in, out); err != nil {
		return err
	}
	return out.Sync()
}

// NewReader returns a reader of the plaintext of src. Close it to stop
// decryption early.
func (e *Envelope) NewReader(src io.Reader) io.ReadCloser {
	pr, pw := io.Pipe()
	go func() {
		_, err := e.Decrypt(src, pw)
		pw.CloseWithError(err)
	}()
	return pr
}

// unpad strips PKCS#7 padding. A pad value outside [1, 16] or inconsistent
// padding bytes indicate a wrong key or corrupted ciphertext.
func unpad(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return nil, fmt.Errorf("%w: nothing to unpad", ErrDecryptionIntegrity)
	}
	n := int(b[len(b)-1])
	if n < 1 || n > aes.BlockSize || n > len(b) {
		return nil, fmt.Errorf("%w: pad value %d out of range", ErrDecryptionIntegrity, n)
	}
	if !bytes.Equal(b[len(b)-n:], bytes.Repeat([]byte{byte(n)}, n)) {
		return nil, fmt.Errorf("%w: inconsistent padding", ErrDecryptionIntegrity)
	}
	return b[:len(b)-n], nil
}

// IsIntegrityError 判断是否为密钥错误或密文损坏
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrDecryptionIntegrity)
}
