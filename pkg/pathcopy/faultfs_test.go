package pathcopy

import (
	"os"
	"sync"
	"time"

	"github.com/spf13/afero"
)

// faultFs wraps an afero.Fs and lets tests inject failures and delays.
// A nil hook means the call is passed through unchanged.
type faultFs struct {
	afero.Fs

	openHook     func(name string) error
	openFileHook func(name string) error
	mkdirHook    func(path string) error
	// readdirHook is called before every Readdir with the 1-based call
	// number for that open file.
	readdirHook func(name string, call int) error
}

func (f *faultFs) Open(name string) (afero.File, error) {
	if f.openHook != nil {
		if err := f.openHook(name); err != nil {
			return nil, err
		}
	}
	file, err := f.Fs.Open(name)
	if err != nil || f.readdirHook == nil {
		return file, err
	}
	return &faultFile{File: file, name: name, hook: f.readdirHook}, nil
}

func (f *faultFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if f.openFileHook != nil {
		if err := f.openFileHook(name); err != nil {
			return nil, err
		}
	}
	return f.Fs.OpenFile(name, flag, perm)
}

func (f *faultFs) MkdirAll(path string, perm os.FileMode) error {
	if f.mkdirHook != nil {
		if err := f.mkdirHook(path); err != nil {
			return err
		}
	}
	return f.Fs.MkdirAll(path, perm)
}

type faultFile struct {
	afero.File
	name string
	hook func(name string, call int) error

	mu    sync.Mutex
	calls int
}

func (f *faultFile) Readdir(count int) ([]os.FileInfo, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	if err := f.hook(f.name, call); err != nil {
		return nil, err
	}
	return f.File.Readdir(count)
}

// delayDirs returns an open hook that sleeps before opening any path for
// which isDir reports true.
func delayDirs(fsys afero.Fs, d time.Duration) func(string) error {
	return func(name string) error {
		if info, err := fsys.Stat(name); err == nil && info.IsDir() {
			time.Sleep(d)
		}
		return nil
	}
}
