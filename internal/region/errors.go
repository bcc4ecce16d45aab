package region

import "fmt"

// OverflowError is raised when a method's region count exceeds
// blocksCount times the builder's overflow multiplier (100 by default),
// the region-count safety limit. It is fatal
// to the method: callers should fall back to raw-CFG emission.
type OverflowError struct {
	BlocksCount int
	Limit       int
	Created     int
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("region builder: region count %d exceeded limit %d (blocks=%d)", e.Created, e.Limit, e.BlocksCount)
}

// InvariantError is raised when the builder detects a state that should be
// impossible for valid input (e.g. a loop's main exit edge unexpectedly
// missing during loop-exit checking). It aborts the whole method's build.
type InvariantError struct {
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("region builder: invariant violated: %s", e.Reason)
}
