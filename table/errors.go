package table

import (
	"errors"
	"fmt"
)

// ErrIndexMissing is the base of the error GetByIndex returns when asked
// for an index name that was never attached via AppendIndex.
var ErrIndexMissing = errors.New("table: index missing")

func errIndexMissing(name string) error {
	return fmt.Errorf("%w: %s", ErrIndexMissing, name)
}
