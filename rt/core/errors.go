package core

import "errors"

var (
	ErrNilTemplate     = errors.New("particle: nil template")
	ErrNilTransform    = errors.New("particle: nil transform source")
	ErrInvalidTemplate = errors.New("particle: invalid template")
	ErrNoMaterial      = errors.New("particle: draw without a bound material")
)
