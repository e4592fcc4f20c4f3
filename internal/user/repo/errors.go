package repo

import "errors"

var (
	ErrNotFound       = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
	ErrLastAdmin      = errors.New("cannot remove the last admin")
)
