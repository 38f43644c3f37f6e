package driverrepo

import "errors"

var (
	ErrNotFound      = errors.New("driver not found")
	ErrAlreadyExists = errors.New("driver already exists")
)
