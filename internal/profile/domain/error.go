package domain

import "errors"

var (
	ErrProfileNotFound  = errors.New("profile not found")
	ErrProfileExists    = errors.New("profile already exists")
	ErrPermissionDenied = errors.New("permission denied by backend policy")
	ErrListTimeout      = errors.New("profile listing timed out")
)
