// Package lockfile keeps two runs from copying into the same destination at
// the same time. Locks live in a separate directory, keyed by destination,
// so the copied tree never contains a lock file.
package lockfile

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/paulschiretz/pgl-copy/pkg/plog"
	"github.com/paulschiretz/pgl-copy/pkg/util"
)

const (
	DefaultHeartbeatInterval = time.Minute
	// DefaultStaleAfter leaves room for two missed heartbeats.
	DefaultStaleAfter = 3 * DefaultHeartbeatInterval

	maxAttempts = 3
)

var (
	// ErrLostRace is returned internally when another process took over a
	// stale lock at the same time.
	ErrLostRace = errors.New("lost race during stale lock takeover")
	// ErrCorrupt reports a lock file that stays empty or unparsable.
	ErrCorrupt = errors.New("lock file is corrupt or empty")
)

// Owner is the content of a lock file.
type Owner struct {
	PID         int       `json:"pid"`
	Hostname    string    `json:"hostname"`
	RunID       string    `json:"runID"`
	Destination string    `json:"destination"`
	Heartbeat   time.Time `json:"heartbeat"`
	Nonce       string    `json:"nonce"`
}

// ActiveError is returned when the destination is locked by a live run.
type ActiveError struct {
	Owner Owner
	Age   time.Duration
}

func (e *ActiveError) Error() string {
	return fmt.Sprintf("destination %s is locked by run %s (PID %d on host '%s'), last heartbeat %s ago",
		e.Owner.Destination, e.Owner.RunID, e.Owner.PID, e.Owner.Hostname, e.Age.Truncate(time.Second))
}

// DefaultDir returns the directory used for destination locks.
func DefaultDir() string {
	return filepath.Join(os.TempDir(), "pgl-copy-locks")
}

// PathFor returns the lock file used for destination inside dir.
func PathFor(dir, destination string) string {
	sum := sha256.Sum256([]byte(filepath.Clean(destination)))
	return filepath.Join(dir, hex.EncodeToString(sum[:12])+".lock")
}

// Locker acquires destination locks in Dir.
type Locker struct {
	Dir               string
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration
}

// New returns a Locker using dir with the default timings.
func New(dir string) *Locker {
	return &Locker{
		Dir:               dir,
		HeartbeatInterval: DefaultHeartbeatInterval,
		StaleAfter:        DefaultStaleAfter,
	}
}

// Acquire locks destination for runID. It returns an *ActiveError if a live
// run holds the lock. Stale and corrupt locks are taken over.
func (l *Locker) Acquire(ctx context.Context, destination, runID string) (*Lock, error) {
	if err := os.MkdirAll(l.Dir, util.UserWritableDirPerms); err != nil {
		return nil, fmt.Errorf("failed to create lock directory %s: %w", l.Dir, err)
	}
	path := PathFor(l.Dir, destination)

	for range maxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		owner, err := newOwner(destination, runID)
		if err != nil {
			return nil, err
		}

		err = create(path, owner)
		if err == nil {
			return l.start(path, owner), nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		current, err := readOwner(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			continue // Released while we looked.
		case errors.Is(err, ErrCorrupt):
			plog.Warn("Found corrupt lock file, treating as stale", "path", path, "error", err)
		case err != nil:
			return nil, err
		default:
			age := time.Since(current.Heartbeat)
			if age < l.StaleAfter {
				return nil, &ActiveError{Owner: current, Age: age}
			}
			plog.Warn("Found stale lock, attempting takeover", "pid", current.PID, "run_id", current.RunID, "age", age)
		}

		if err := takeover(path, owner); err != nil {
			if !errors.Is(err, ErrLostRace) {
				return nil, err
			}
			plog.Debug("Lock takeover race lost, retrying acquisition")
			continue
		}
		return l.start(path, owner), nil
	}
	return nil, fmt.Errorf("failed to acquire lock after %d attempts (contention)", maxAttempts)
}

func (l *Locker) start(path string, owner Owner) *Lock {
	lock := &Lock{
		path:  path,
		owner: owner,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	go lock.heartbeat(l.HeartbeatInterval)
	plog.Debug("Lock acquired", "path", path, "destination", owner.Destination)
	return lock
}

// Lock is a held destination lock.
type Lock struct {
	path  string
	owner Owner
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

// Path returns the lock file path.
func (l *Lock) Path() string { return l.path }

// Release stops the heartbeat and removes the lock file, unless another run
// has taken it over in the meantime. It is safe to call more than once.
func (l *Lock) Release() {
	l.once.Do(func() {
		close(l.stop)
		<-l.done

		current, err := readOwner(l.path)
		if err == nil && current.Nonce != l.owner.Nonce {
			plog.Warn("Lock was taken over by another run, leaving it in place", "path", l.path, "run_id", current.RunID)
			return
		}
		if err := os.Remove(l.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			plog.Warn("Failed to remove lock file", "path", l.path, "error", err)
			return
		}
		plog.Debug("Lock released", "path", l.path)
	})
}

func (l *Lock) heartbeat(interval time.Duration) {
	defer close(l.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.owner.Heartbeat = time.Now().UTC()
			if err := writeAtomic(l.path, l.owner); err != nil {
				plog.Warn("Heartbeat failed to update lock file", "error", err)
			}
		}
	}
}

func newOwner(destination, runID string) (Owner, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Owner{}, fmt.Errorf("could not determine hostname: %w", err)
	}
	return Owner{
		PID:         os.Getpid(),
		Hostname:    hostname,
		RunID:       runID,
		Destination: destination,
		Heartbeat:   time.Now().UTC(),
		Nonce:       uuid.NewString(),
	}, nil
}

// create writes owner to a new lock file. It fails with fs.ErrExist if the
// file is already there.
func create(path string, owner Owner) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, util.UserWritableFilePerms)
	if err != nil {
		return err
	}
	err = json.NewEncoder(f).Encode(owner)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to write lock content: %w", err)
	}
	return nil
}

// takeover replaces a stale lock with owner and reads it back to check
// that no other run replaced it at the same time.
func takeover(path string, owner Owner) error {
	if err := writeAtomic(path, owner); err != nil {
		return err
	}
	current, err := readOwner(path)
	if err != nil {
		return fmt.Errorf("failed to read back lock file after takeover: %w", err)
	}
	if current.Nonce != owner.Nonce {
		return ErrLostRace
	}
	return nil
}

// writeAtomic writes owner next to path and renames it into place, so
// readers never see a partial file.
func writeAtomic(path string, owner Owner) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp lock file: %w", err)
	}
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil && !errors.Is(err, fs.ErrNotExist) {
			plog.Warn("Failed to remove temporary lock file", "path", tmp.Name(), "error", err)
		}
	}()

	if err := json.NewEncoder(tmp).Encode(owner); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write lock content: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp lock file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to rename temp lock file: %w", err)
	}
	return nil
}

// readOwner reads the lock file, retrying briefly while it is empty or
// half written by create.
func readOwner(path string) (Owner, error) {
	var lastErr error
	for range 3 {
		data, err := os.ReadFile(path)
		if err != nil {
			return Owner{}, err
		}
		var owner Owner
		if len(data) == 0 {
			lastErr = errors.New("lock file is empty")
		} else if lastErr = json.Unmarshal(data, &owner); lastErr == nil {
			return owner, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return Owner{}, fmt.Errorf("%w: %v", ErrCorrupt, lastErr)
}
