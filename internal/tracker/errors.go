package tracker

import (
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned for work submitted after Close.
	ErrClosed = errors.New("tracker closed")

	// ErrAlreadyTracking is returned by Start while a night is in progress.
	ErrAlreadyTracking = errors.New("a night is already being tracked")

	// ErrInvalidQuality is returned for ratings outside MinQuality..MaxQuality.
	ErrInvalidQuality = errors.New("invalid sleep quality")
)

// OpError records which controller operation failed and why.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }
