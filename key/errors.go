package key

import "errors"

// ErrTypeMismatch is returned when a Key's components don't match the
// shape a caller expected to extract (see Key.Int64).
var ErrTypeMismatch = errors.New("key: type mismatch")
