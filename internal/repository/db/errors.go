package db

import "errors"

var (
	ErrDuplicateReview  = errors.New("duplicate review")
	ErrPermissionDenied = errors.New("permission denied")
	ErrVersionConflict  = errors.New("version conflict")
)
