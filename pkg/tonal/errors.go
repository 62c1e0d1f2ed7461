package tonal

import (
	"errors"
	"fmt"
)

var (
	// ErrShape matches any *ShapeError.
	ErrShape = errors.New("pitch-class profile has wrong length")
	// ErrDegenerateInput matches any *DegenerateInputError.
	ErrDegenerateInput = errors.New("pitch-class profile is degenerate")
)

// ShapeError reports a profile that does not have exactly 12 bins. It points
// at a broken upstream feature extractor rather than at the audio itself.
type ShapeError struct {
	Len int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("tonal: profile has %d bins, want %d", e.Len, NumPitchClasses)
}

func (e *ShapeError) Is(target error) bool { return target == ErrShape }

// DegenerateInputError reports a profile no key can be derived from, such as
// the all-zero profile produced by silence.
type DegenerateInputError struct {
	Reason string
}

func (e *DegenerateInputError) Error() string {
	return "tonal: unable to determine key: " + e.Reason
}

func (e *DegenerateInputError) Is(target error) bool { return target == ErrDegenerateInput }
