package rotation

import "errors"

// ErrClosed is returned by Receive once a closed Channel is drained.
var ErrClosed = errors.New("rotation channel closed")
