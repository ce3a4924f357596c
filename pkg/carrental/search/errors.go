package search

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrRepository       = errors.New("repository failure")
)
