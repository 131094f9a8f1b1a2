// Package errs holds the error taxonomy shared by the download engine.
package errs

import (
	"errors"
	"fmt"
)

// CanceledMsg is the fixed message carried by user-stopped jobs.
const CanceledMsg = "Canceled by the user"

// Sentinel errors.
var (
	ErrCanceled      = errors.New(CanceledMsg)
	ErrDuplicateJob  = errors.New("job already queued or active")
	ErrUnknownJob    = errors.New("unknown job")
	ErrPathExhausted = errors.New("no free output name")
	ErrNoFFmpeg      = errors.New("ffmpeg binary not found")
	ErrInvalidJob    = errors.New("invalid job request")
)

// TransportError is a network or stream failure on one input.
type TransportError struct {
	Stream string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s stream: %v", e.Stream, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// SubprocessError is a muxer spawn failure or non-zero exit.
type SubprocessError struct {
	ExitCode int
	Err      error
}

func (e *SubprocessError) Error() string {
	if e.ExitCode > 0 {
		return fmt.Sprintf("muxer exited with code %d: %v", e.ExitCode, e.Err)
	}
	return fmt.Sprintf("muxer failed: %v", e.Err)
}

func (e *SubprocessError) Unwrap() error { return e.Err }

// ResourceError is a filesystem failure (path exhaustion, disk full, permissions).
type ResourceError struct {
	Path string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource %q: %v", e.Path, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// PostProcessingError is a failure of the split-tracks step.
type PostProcessingError struct {
	Err error
}

func (e *PostProcessingError) Error() string {
	return fmt.Sprintf("post-processing: %v", e.Err)
}

func (e *PostProcessingError) Unwrap() error { return e.Err }

// IsCanceled reports whether err stems from a user stop.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}
