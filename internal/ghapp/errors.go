package ghapp

import (
	"errors"
	"fmt"
)

var (
	// ErrSigning is returned when the app token cannot be signed, usually because
	// the private key is malformed.
	ErrSigning = errors.New("signing github app token")

	// ErrFetch matches every *FetchError.
	ErrFetch = errors.New("fetching installation token")
)

// FetchError is returned to every caller that waited on a failed installation token fetch.
type FetchError struct {
	InstallationID int64
	Err            error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching installation token for installation ID %d: %v", e.InstallationID, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}
