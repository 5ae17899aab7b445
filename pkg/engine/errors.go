package engine

import "errors"

var (
	ErrUnknownComponent   = errors.New("unknown component")
	ErrInvalidProbability = errors.New("invalid failure probability")
	ErrInvalidIterations  = errors.New("monte carlo iterations must be positive")
)
