package instances

import (
	"errors"
	"fmt"
)

// ErrNotFound is matched by errors.Is for lookups of unknown instance types
var ErrNotFound = errors.New("instance type not found")

// FetchError is returned when the upstream metadata source cannot be read or
// returns a document that cannot be parsed. The previously cached dataset is
// left untouched.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("error fetching instance data from %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NotFoundError reports a lookup of an instance type absent from the dataset
type NotFoundError struct {
	InstanceType string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("instance type %q not found", e.InstanceType)
}

// Is makes NotFoundError match ErrNotFound
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
