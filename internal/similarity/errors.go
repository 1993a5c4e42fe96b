package similarity

import (
	"errors"
	"fmt"
)

var (
	// ErrFit is the kind of every error returned by Fit.
	ErrFit = errors.New("model fit failed")
	// ErrEmptyQuery is returned when a query carries no ingredient names.
	ErrEmptyQuery = errors.New("no valid ingredients provided")
)

// FitError describes why a corpus could not be fitted.
type FitError struct {
	Reason    string
	Documents int
}

func (e *FitError) Error() string {
	return fmt.Sprintf("model fit failed: %s (%d documents)", e.Reason, e.Documents)
}

// Unwrap makes errors.Is(err, ErrFit) hold.
func (e *FitError) Unwrap() error {
	return ErrFit
}
