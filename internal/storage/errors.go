package storage

import "errors"

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrCourseNotFound    = errors.New("course not found")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
