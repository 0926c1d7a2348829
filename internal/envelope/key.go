package envelope

import (
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	ErrInvalidKey          = errors.New("invalid symmetric key")
	ErrDecryptionIntegrity = errors.New("decryption integrity check failed")
)

// SymmetricKey 用户提供的主密钥（AES-128/192/256）
type SymmetricKey struct {
	data []byte
}

// ParseSymmetricKey decodes a base64 master key as given on the command line.
func ParseSymmetricKey(b64 string) (*SymmetricKey, error) {
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return nil, fmt.Errorf("%w: not valid base64: %w", ErrInvalidKey, err)
	}
	return NewSymmetricKey(data)
}

func NewSymmetricKey(raw []byte) (*SymmetricKey, error) {
	if !validKeyLength(len(raw)) {
		return nil, fmt.Errorf("%w: %d bytes is not an AES key length", ErrInvalidKey, len(raw))
	}
	return &SymmetricKey{data: append([]byte(nil), raw...)}, nil
}

func (k *SymmetricKey) Bytes() []byte {
	return k.data
}

// String 不输出密钥内容
func (k *SymmetricKey) String() string {
	return fmt.Sprintf("SymmetricKey(AES-%d)", len(k.data)*8)
}

func validKeyLength(n int) bool {
	switch n {
	case 16, 24, 32:
		return true
	}
	return false
}
