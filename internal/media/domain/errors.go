package domain

import "errors"

var (
	ErrUnknownCategory = errors.New("unknown category")
)
