package zones

import "errors"

var (
	ErrInvalidBounds    = errors.New("invalid bounds")
	ErrEmptySeries      = errors.New("empty series")
	ErrUnknownDirection = errors.New("unknown direction")
	ErrUnknownStrategy  = errors.New("unknown strategy")
)
