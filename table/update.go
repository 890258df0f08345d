package table

import "context"

// UpdateOutcome is what an UpdateFunc decides should happen to a row.
type UpdateOutcome int

const (
	// NotChange leaves the row untouched; Update returns (nil, nil).
	NotChange UpdateOutcome = iota
	// Changed replaces the row with UpdateDecision.Value.
	Changed
	// Removed tombstones the row.
	Removed
)

// UpdateDecision is what an UpdateFunc returns: an outcome, plus the new
// value when the outcome is Changed.
type UpdateDecision struct {
	Outcome UpdateOutcome
	Value   []byte
}

// UpdateFunc computes a new row state from the current one. prev is nil
// if the key doesn't currently exist.
type UpdateFunc func(prev *VersionedValue) (UpdateDecision, error)

// Update reads key's current value, asks updateF what to do with it, and
// applies the decision: Changed inserts a new version, Removed deletes
// with optimistic concurrency against the value Update just read, and
// NotChange does nothing. It returns the new version, nil for NotChange,
// and a version of 0 when a Removed decision finds nothing to delete.
func (t *Table) Update(ctx context.Context, conn *Conn, key []byte, updateF UpdateFunc) (*int64, error) {
	prev, ok, err := t.Get(ctx, conn, key)
	if err != nil {
		return nil, err
	}

	var prevArg *VersionedValue
	var prevVersion int64
	if ok {
		prevArg = &prev
		prevVersion = prev.Version
	}

	decision, err := updateF(prevArg)
	if err != nil {
		return nil, err
	}

	switch decision.Outcome {
	case NotChange:
		return nil, nil
	case Removed:
		v, err := t.DeleteWithVersion(ctx, conn, key, prevVersion)
		if err != nil {
			return nil, err
		}
		return &v, nil
	default: // Changed
		v, err := t.Insert(ctx, conn, key, decision.Value)
		if err != nil {
			return nil, err
		}
		return &v, nil
	}
}
