package queue

import "errors"

var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUnsupportedEncoding = errors.New("unsupported text encoding")
	ErrReadFile            = errors.New("read file failed")
	ErrPersistence         = errors.New("persisting processing state failed")
	ErrOwnershipMismatch   = errors.New("file does not belong to queue owner")
)
