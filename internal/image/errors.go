package image

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an image does not exist or its dataset belongs to someone else.
	ErrNotFound = errors.New("image not found")
	// ErrDatasetNotFound is returned when the target dataset is missing or not owned by the caller.
	ErrDatasetNotFound = errors.New("dataset not found")
	// ErrNoThumbnail is returned when a thumbnail URL is requested for an image without one.
	ErrNoThumbnail = errors.New("image has no thumbnail")
)

// RejectedError reports an upload refused because of its content. No objects of the batch
// remain in storage when it is returned.
type RejectedError struct {
	Filename string
	Reason   string
	Err      error
}

func (e *RejectedError) Error() string {
	if e.Filename == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Filename, e.Reason)
}

func (e *RejectedError) Unwrap() error { return e.Err }

// IsRejected reports whether err is an input rejection.
func IsRejected(err error) bool {
	var rej *RejectedError
	return errors.As(err, &rej)
}
