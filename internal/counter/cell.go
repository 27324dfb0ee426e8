// Package counter holds the shared accumulator that every synchronization
// strategy mediates access to.
//
// A Cell enforces no concurrency discipline of its own. Correctness is a
// property of how the cell is reached (through a lock, through a join, or not
// at all), never of the cell itself.
package counter

// Cell is a single int64 accumulator. The zero value is ready to use and
// holds 0.
type Cell struct {
	value int64
}

// IncrementBy applies n single-step increments. Each step is a separate
// load, add and store, so concurrent callers without external
// synchronization lose updates.
func (c *Cell) IncrementBy(n int64) {
	for i := int64(0); i < n; i++ {
		store(&c.value, load(&c.value)+1)
	}
}

// Snapshot returns the current value.
func (c *Cell) Snapshot() int64 {
	return load(&c.value)
}
