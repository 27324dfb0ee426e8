//go:build !race

package counter

// RaceEnabled reports whether the binary was built with -race.
const RaceEnabled = false

// Plain memory accesses. Concurrent use without a lock is a data race and the
// compiler is free to keep the value in a register across a loop.

func load(p *int64) int64 {
	return *p
}

func store(p *int64, v int64) {
	*p = v
}
