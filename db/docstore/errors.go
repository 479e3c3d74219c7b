package docstore

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateKey = errors.New("duplicate key")
	ErrNotFound     = errors.New("document not found")
)

type DuplicateKeyError struct {
	Err error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key: %v", e.Err)
}

func (e *DuplicateKeyError) Unwrap() error {
	return e.Err
}

func (e *DuplicateKeyError) Is(target error) bool {
	return target == ErrDuplicateKey
}

type NotFoundError struct {
	Filter any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no document matches filter %v", e.Filter)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
