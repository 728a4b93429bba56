package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrCorrupt       = errors.New("corrupt ciphertext")
	ErrReserved      = errors.New("reserved name")
)
