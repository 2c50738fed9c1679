package pathcopy

import (
	"errors"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"golang.org/x/sync/singleflight"

	"github.com/paulschiretz/pgl-copy/pkg/pool"
	"github.com/paulschiretz/pgl-copy/pkg/sharded"
	"github.com/paulschiretz/pgl-copy/pkg/util"
)

// defaultReadDirBatch is how many directory entries are read per Readdir call.
const defaultReadDirBatch = 256

// Child is one entry of a directory listing.
type Child struct {
	Path string
	Mode os.FileMode
}

// fsAdapter is the only place that touches the filesystem. Every method
// returns *IOError on failure and is safe for concurrent use.
type fsAdapter struct {
	fs        afero.Fs
	buffers   *pool.Buffers
	readBatch int
	metrics   Metrics

	// createdDirs tracks destination directories that are known to exist,
	// so repeated requests for the same path skip the syscalls.
	createdDirs *sharded.Set

	// dirGroup collapses concurrent EnsureDirectory calls for the same path
	// into a single MkdirAll.
	dirGroup singleflight.Group
}

func newFSAdapter(fsys afero.Fs, bufferSize, readBatch int, metrics Metrics) *fsAdapter {
	if readBatch <= 0 {
		readBatch = defaultReadDirBatch
	}
	return &fsAdapter{
		fs:          fsys,
		buffers:     pool.NewBuffers(bufferSize),
		readBatch:   readBatch,
		metrics:     metrics,
		createdDirs: sharded.NewSet(0),
	}
}

// EnsureDirectory makes path exist as a directory, creating missing parents.
// Calling it for an existing directory is a no-op.
func (a *fsAdapter) EnsureDirectory(path string) error {
	if a.createdDirs.Has(path) {
		return nil
	}

	_, err, _ := a.dirGroup.Do(path, func() (any, error) {
		if a.createdDirs.Has(path) {
			return nil, nil
		}

		info, err := a.fs.Stat(path)
		switch {
		case err == nil && info.IsDir():
			a.createdDirs.Store(path)
			return nil, nil
		case err == nil:
			return nil, &IOError{Op: "mkdir", Path: path, Err: errors.New("path exists and is not a directory")}
		}

		if err := a.fs.MkdirAll(path, util.UserWritableDirPerms); err != nil {
			return nil, &IOError{Op: "mkdir", Path: path, Err: err}
		}
		// Some filesystems report success for MkdirAll on an existing file.
		if info, err := a.fs.Stat(path); err != nil {
			return nil, &IOError{Op: "mkdir", Path: path, Err: err}
		} else if !info.IsDir() {
			return nil, &IOError{Op: "mkdir", Path: path, Err: errors.New("path exists and is not a directory")}
		}

		a.createdDirs.Store(path)
		a.metrics.AddDirsCreated(1)
		return nil, nil
	})
	return err
}

// ListChildren lazily lists the immediate children of dir in batches.
// A failure to open or read the directory is yielded once as an *IOError
// and ends the sequence; children read before the failure are still yielded.
// Each range over the result reopens the directory.
func (a *fsAdapter) ListChildren(dir string) iter.Seq2[Child, error] {
	return func(yield func(Child, error) bool) {
		f, err := a.fs.Open(dir)
		if err != nil {
			yield(Child{}, &IOError{Op: "open", Path: dir, Err: err})
			return
		}
		defer f.Close()

		for {
			infos, err := f.Readdir(a.readBatch)
			for _, info := range infos {
				child := Child{Path: filepath.Join(dir, info.Name()), Mode: info.Mode()}
				if !yield(child, nil) {
					return
				}
			}
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(Child{}, &IOError{Op: "readdir", Path: dir, Err: err})
				return
			}
			if len(infos) == 0 {
				return
			}
		}
	}
}

// CopyFile copies the contents of src to dest, replacing dest if it exists.
// The destination gets the source's permission bits plus user-write, so a
// read-only source can be copied again on the next run.
func (a *fsAdapter) CopyFile(src, dest string) (int64, error) {
	in, err := a.fs.Open(src)
	if err != nil {
		return 0, &IOError{Op: "open", Path: src, Err: err}
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return 0, &IOError{Op: "stat", Path: src, Err: err}
	}
	perm := util.WithUserWritePermission(info.Mode().Perm())

	out, err := a.fs.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return 0, &IOError{Op: "create", Path: dest, Err: err}
	}
	defer out.Close() // Ensure closed on error.

	bufPtr := a.buffers.Get()
	defer a.buffers.Put(bufPtr)

	n, err := io.CopyBuffer(out, in, *bufPtr)
	if err != nil {
		return n, &IOError{Op: "copy", Path: dest, Err: err}
	}
	if err := out.Close(); err != nil {
		return n, &IOError{Op: "close", Path: dest, Err: err}
	}

	// OpenFile only applies perm to new files; an existing destination keeps
	// its old mode otherwise.
	if err := a.fs.Chmod(dest, perm); err != nil {
		return n, &IOError{Op: "chmod", Path: dest, Err: err}
	}
	return n, nil
}
