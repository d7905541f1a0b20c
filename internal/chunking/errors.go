package chunking

import "errors"

// ErrInvalidArgument is wrapped by every parameter contract violation in this package.
var ErrInvalidArgument = errors.New("invalid argument")
