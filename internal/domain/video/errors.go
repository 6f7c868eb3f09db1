package video

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("video not found")
	ErrNotReady = errors.New("video is not completed")
	ErrProvider = errors.New("generation provider error")
	ErrInternal = errors.New("internal error")
)

// InsufficientCreditsError carries the numbers the client needs to
// prompt a purchase
type InsufficientCreditsError struct {
	Required int64
	Current  int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("insufficient credits: need %d, have %d", e.Required, e.Current)
}
