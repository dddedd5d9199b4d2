package capture

import "errors"

var (
	ErrAlreadyCapturing = errors.New("capture: already capturing")
	ErrNotCapturing     = errors.New("capture: not capturing")
	ErrNoDevice         = errors.New("capture: no capture device available")
	ErrCursorOutOfRange = errors.New("capture: cursor out of range")
)
