package device

import "errors"

var (
	ErrUnknownSource    = errors.New("device: unknown source")
	ErrSourceBusy       = errors.New("device: source already started")
	ErrPermissionDenied = errors.New("device: microphone access denied")
	ErrFormatMismatch   = errors.New("device: source format mismatch")
)
