package pathcopy

import (
	"fmt"
	"sync"

	"github.com/paulschiretz/pgl-copy/pkg/util"
)

// State is what a worker is currently doing.
type State int

const (
	// StateInitializing is the state of a worker that has not asked for work yet.
	StateInitializing State = iota
	// StateIdle means the worker found the stack empty and is waiting.
	StateIdle
	// StateScanning means the worker is creating and listing a directory.
	StateScanning
	// StateCopying means the worker is copying a file.
	StateCopying
)

var stateToString = map[State]string{
	StateInitializing: "initializing",
	StateIdle:         "idle",
	StateScanning:     "scanning",
	StateCopying:      "copying",
}
var stringToState = map[string]State{}

func init() {
	stringToState = util.InvertMap(stateToString)
}

// String returns the string representation of a State.
func (s State) String() string {
	if str, ok := stateToString[s]; ok {
		return str
	}
	return fmt.Sprintf("unknown_state(%d)", s)
}

// ParseState parses a string and returns the corresponding State.
func ParseState(s string) (State, error) {
	if st, ok := stringToState[s]; ok {
		return st, nil
	}
	return 0, fmt.Errorf("invalid state: %q", s)
}

// Status is a worker's state together with the path it is working on.
// Path is empty for Initializing and Idle.
type Status struct {
	State State
	Path  string
}

func (s Status) String() string {
	if s.Path == "" {
		return s.State.String()
	}
	return s.State.String() + " " + s.Path
}

// statusTable holds one Status slot per worker.
type statusTable struct {
	mu    sync.Mutex
	slots []Status
}

func newStatusTable(workers int) *statusTable {
	return &statusTable{slots: make([]Status, workers)}
}

// set stores st for worker and reports whether it differs from the
// previous value.
func (t *statusTable) set(worker int, st Status) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.slots[worker] == st {
		return false
	}
	t.slots[worker] = st
	return true
}

func (t *statusTable) get(worker int) Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.slots[worker]
}

// Snapshot returns a copy of every worker's status.
func (t *statusTable) Snapshot() []Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Status, len(t.slots))
	copy(out, t.slots)
	return out
}
