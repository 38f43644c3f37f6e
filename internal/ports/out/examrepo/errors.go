package examrepo

import "errors"

var (
	ErrNotFound      = errors.New("exam not found")
	ErrAlreadyExists = errors.New("exam already exists")
)
