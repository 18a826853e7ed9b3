package registry

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"reforge/internal/core/errors"
)

// Lock is the advisory lock guarding registry read-modify-write cycles.
// Concurrent orchestrator runs against the same project must hold it, or
// regression detection (which compares against the immediately prior state)
// is not guaranteed.
type Lock struct {
	path string
	held bool
}

// NewLock derives the lock path from the registry path.
func NewLock(registryPath string) *Lock {
	return &Lock{path: registryPath + ".lock"}
}

// Acquire takes the lock by creating the lock file exclusively with the
// owner's pid inside. A lock file whose pid no longer maps to a live process
// is stale and is taken over.
func (l *Lock) Acquire() error {
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
			cerr := f.Close()
			if werr != nil || cerr != nil {
				os.Remove(l.path)
				return errors.AddContext(errors.New(errors.CodeStateIO, "failed to write lock file"),
					errors.CtxPath, l.path)
			}
			l.held = true
			return nil
		}
		if !os.IsExist(err) {
			return errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to create lock file"),
				errors.CtxPath, l.path)
		}

		pid, perr := l.ownerPid()
		if perr == nil && processAlive(pid) {
			return errors.AddContext(errors.New(errors.CodeConflict,
				fmt.Sprintf("registry locked by running process %d", pid)),
				errors.CtxPath, l.path)
		}
		// Stale lock: owner is gone. Remove and retry once.
		if rerr := os.Remove(l.path); rerr != nil && !os.IsNotExist(rerr) {
			return errors.AddContext(errors.Wrap(rerr, errors.CodeStateIO, "failed to remove stale lock"),
				errors.CtxPath, l.path)
		}
	}
	return errors.AddContext(errors.New(errors.CodeConflict, "failed to acquire registry lock"),
		errors.CtxPath, l.path)
}

// Release drops the lock. Safe to call when not held.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return errors.AddContext(errors.Wrap(err, errors.CodeStateIO, "failed to remove lock file"),
			errors.CtxPath, l.path)
	}
	return nil
}

func (l *Lock) ownerPid() (int, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// processAlive probes a pid with signal 0.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}
