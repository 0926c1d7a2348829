package object

import "errors"

var (
	ErrInvalidPath               = errors.New("invalid object path")
	ErrMetadataUnavailable       = errors.New("object metadata unavailable")
	ErrMissingEncryptionMetadata = errors.New("missing encryption metadata")
	ErrTransferExhausted         = errors.New("too many attempts to get byte range")
	ErrUnbound                   = errors.New("object reference is not bound to a blob store")
	ErrPrefixMismatch            = errors.New("object does not start with prefix")
)
