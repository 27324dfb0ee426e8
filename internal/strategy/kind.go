package strategy

import (
	"fmt"
	"strings"

	"github.com/Iron-Ham/syncbench/internal/errors"
)

// Kind identifies a synchronization discipline.
type Kind int

const (
	// Unsynchronized mutates the shared cell with no guard at all.
	Unsynchronized Kind = iota
	// ExclusiveLock guards every increment and snapshot with a mutex.
	ExclusiveLock
	// ReadWriteLock takes the write side for increments and the read side for snapshots.
	ReadWriteLock
	// ChannelRendezvous has each worker send one partial result to the coordinator.
	ChannelRendezvous
	// ChannelRelay hands the running total to one worker at a time over a reply channel.
	ChannelRelay
	// SequentialJoin spawns each worker only after joining the previous one.
	SequentialJoin
	// Deadlock is the negative control: workers leak the lock the coordinator waits on.
	Deadlock
)

var kindNames = map[Kind]string{
	Unsynchronized:    "unsynchronized",
	ExclusiveLock:     "exclusive-lock",
	ReadWriteLock:     "rw-lock",
	ChannelRendezvous: "channel-rendezvous",
	ChannelRelay:      "channel-relay",
	SequentialJoin:    "sequential-join",
	Deadlock:          "deadlock",
}

var kindDescriptions = map[Kind]string{
	Unsynchronized:    "unguarded load/add/store; lost updates expected",
	ExclusiveLock:     "mutex around every read-modify-write",
	ReadWriteLock:     "write lock for increments, shared read lock for snapshots",
	ChannelRendezvous: "each worker sends one partial; coordinator folds W messages",
	ChannelRelay:      "running total relayed through each worker in turn",
	SequentialJoin:    "spawn, join, spawn next; serialized despite goroutines",
	Deadlock:          "workers never release the lock the coordinator waits on",
}

// kindAliases are accepted by ParseKind in addition to the canonical names.
var kindAliases = map[string]Kind{
	"unsync":     Unsynchronized,
	"mutex":      ExclusiveLock,
	"rwlock":     ReadWriteLock,
	"rwmutex":    ReadWriteLock,
	"channel":    ChannelRendezvous,
	"relay":      ChannelRelay,
	"sequential": SequentialJoin,
}

// Kinds returns every kind in declaration order.
func Kinds() []Kind {
	return []Kind{
		Unsynchronized,
		ExclusiveLock,
		ReadWriteLock,
		ChannelRendezvous,
		ChannelRelay,
		SequentialJoin,
		Deadlock,
	}
}

// String returns the canonical kebab-case name.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Description returns a one-line summary of the discipline.
func (k Kind) Description() string {
	return kindDescriptions[k]
}

// Correct reports whether the kind guarantees observed == W*R.
func (k Kind) Correct() bool {
	return k != Unsynchronized && k != Deadlock
}

// SharedCell reports whether the kind is a policy over a shared counter.Cell
// that New can construct. The remaining kinds are coordination disciplines
// the harness implements directly.
func (k Kind) SharedCell() bool {
	switch k {
	case Unsynchronized, ExclusiveLock, ReadWriteLock:
		return true
	default:
		return false
	}
}

// Concurrent reports whether workers run in parallel under this kind.
func (k Kind) Concurrent() bool {
	return k != SequentialJoin && k != ChannelRelay
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, errors.NewValidationError("unknown strategy kind").WithValue(int(k)).WithCause(errors.ErrUnknownStrategy)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind resolves a canonical name or alias, case-insensitively.
func ParseKind(name string) (Kind, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	normalized = strings.ReplaceAll(normalized, "_", "-")

	for k, n := range kindNames {
		if n == normalized {
			return k, nil
		}
	}
	if k, ok := kindAliases[normalized]; ok {
		return k, nil
	}
	return 0, errors.NewValidationError(fmt.Sprintf("must be one of: %s", strings.Join(Names(), ", "))).
		WithField("strategy").
		WithValue(name).
		WithCause(errors.ErrUnknownStrategy)
}

// Names returns the canonical names of every kind.
func Names() []string {
	kinds := Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}
