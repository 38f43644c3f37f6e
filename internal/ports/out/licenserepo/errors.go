package licenserepo

import "errors"

var (
	ErrNotFound      = errors.New("license not found")
	ErrAlreadyExists = errors.New("license already exists")
)
