package service

import "errors"

var (
	ErrNotFound    = errors.New("error not found")
	ErrNoPositions = errors.New("error portfolio has no positions")
)
