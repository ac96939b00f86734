package core

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound    = errors.New("resource not found")
	ErrRunNotFound = fmt.Errorf("%w: run", ErrNotFound)
)

func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
