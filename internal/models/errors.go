package models

import "errors"

var (
	ErrDataFormat            = errors.New("data format error")
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	ErrPersistence           = errors.New("persistence error")
	ErrValidation            = errors.New("validation error")
	ErrRetrieval             = errors.New("retrieval error")
	ErrModelInvocation       = errors.New("model invocation error")
)
