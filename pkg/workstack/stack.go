// Package workstack provides the shared LIFO work stack of a copy run
// together with the detector that decides when the run is finished.
//
// A run is finished when the stack is empty and every worker is idle at the
// same moment. Workers are counted as busy from construction until their first
// call to Next, so no worker can observe termination before all of them have
// started looking for work.
package workstack

import "sync"

// Stack is an unbounded LIFO stack shared by a fixed number of workers.
// The zero value is not usable; create one with New.
type Stack[T any] struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []T
	busy     []bool
	numBusy  int
	done     bool
	canceled bool
	doneCh   chan struct{}
}

// New creates a stack shared by the given number of workers. Every worker
// starts out busy.
func New[T any](workers int) *Stack[T] {
	if workers < 1 {
		workers = 1
	}
	s := &Stack[T]{
		busy:    make([]bool, workers),
		numBusy: workers,
		doneCh:  make(chan struct{}),
	}
	for i := range s.busy {
		s.busy[i] = true
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Push appends items in order under a single lock acquisition and wakes
// any waiting workers. The last item is popped first.
func (s *Stack[T]) Push(items ...T) {
	if len(items) == 0 {
		return
	}
	s.mu.Lock()
	s.items = append(s.items, items...)
	s.mu.Unlock()
	s.cond.Broadcast()
}

// Pop removes the most recently pushed item. It never blocks and does not
// take part in termination detection.
func (s *Stack[T]) Pop() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.popLocked()
}

func (s *Stack[T]) popLocked() (T, bool) {
	var zero T
	n := len(s.items)
	if n == 0 {
		return zero, false
	}
	item := s.items[n-1]
	s.items[n-1] = zero
	s.items = s.items[:n-1]
	return item, true
}

// Len returns the number of items currently on the stack.
func (s *Stack[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Next is called by worker when it has finished its previous item, including
// every push that item caused. It returns the next item to work on, or false
// once the run has terminated or was canceled.
//
// When the stack is empty but other workers are still busy, onIdle (if not
// nil) is called once without the lock held and the caller waits for a push.
func (s *Stack[T]) Next(worker int, onIdle func()) (T, bool) {
	var zero T
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setBusyLocked(worker, false)
	notified := false
	for {
		if s.done || s.canceled {
			return zero, false
		}
		if item, ok := s.popLocked(); ok {
			s.setBusyLocked(worker, true)
			return item, true
		}
		if s.numBusy == 0 {
			s.done = true
			close(s.doneCh)
			s.cond.Broadcast()
			return zero, false
		}
		if onIdle != nil && !notified {
			notified = true
			s.mu.Unlock()
			onIdle()
			s.mu.Lock()
			continue
		}
		s.cond.Wait()
	}
}

func (s *Stack[T]) setBusyLocked(worker int, busy bool) {
	if s.busy[worker] == busy {
		return
	}
	s.busy[worker] = busy
	if busy {
		s.numBusy++
	} else {
		s.numBusy--
	}
}

// Done reports whether termination has been declared.
func (s *Stack[T]) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Terminated returns a channel that is closed when termination is declared.
// It is never closed for a canceled run.
func (s *Stack[T]) Terminated() <-chan struct{} {
	return s.doneCh
}

// Cancel makes every current and future call to Next return false.
// It is safe to call more than once and from any goroutine.
func (s *Stack[T]) Cancel() {
	s.mu.Lock()
	s.canceled = true
	s.mu.Unlock()
	s.cond.Broadcast()
}
