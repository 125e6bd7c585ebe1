package errors

import "errors"

var (
	ErrAlbumNotFound     = errors.New("album not found")
	ErrAudioLinkNotFound = errors.New("could not resolve download link")
	ErrSessionNotFound   = errors.New("download session not found")
	ErrSessionExists     = errors.New("download session already exists")
	ErrSessionNotActive  = errors.New("download session is not active")
	ErrSessionFinished   = errors.New("download session already finished")
	ErrInvalidTransition = errors.New("invalid session status transition")
	ErrShuttingDown      = errors.New("service is shutting down")
)
