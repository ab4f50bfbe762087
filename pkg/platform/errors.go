package platform

import "errors"

// ErrClosed is returned when operating on a closed host.
var ErrClosed = errors.New("platform: host closed")
