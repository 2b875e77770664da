package domain

import "errors"

// Token errors
var (
	ErrUnknownTokenKind = errors.New("unknown token kind")
)
