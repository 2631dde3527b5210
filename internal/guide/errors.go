package guide

import "errors"

var (
	ErrEmptyInput       = errors.New("guide: message is empty")
	ErrSendInFlight     = errors.New("guide: a reply is still streaming")
	ErrSessionClosed    = errors.New("guide: session closed")
	ErrSessionNotFound  = errors.New("guide: session not found")
	ErrTooManySessions  = errors.New("guide: session limit reached")
	errTranscriptClosed = errors.New("guide: transcript invalidated")
)
