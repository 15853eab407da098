// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package lease provides the appliance-wide exclusive lease that serializes
// role transitions across controller processes. The lease is an flock(2) on
// a well-known file, so the kernel drops it when the holder exits.
package lease

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"grimm.is/vrouter/internal/errors"
	"grimm.is/vrouter/internal/logging"
)

// Defaults used when Options leaves a field zero.
const (
	DefaultAttempts = 10
	DefaultBackoff  = time.Second
)

// Options bound the acquisition retry loop.
type Options struct {
	Attempts int
	Backoff  time.Duration
	Logger   *logging.Logger
}

// Holder describes the process holding the lease. It is written into the
// lock file for diagnostics only.
type Holder struct {
	PID      int       `json:"pid"`
	ID       string    `json:"id"`
	Acquired time.Time `json:"acquired"`
}

// Lease is a held exclusive lease.
type Lease struct {
	mu     sync.Mutex
	file   *os.File
	path   string
	holder Holder
	logger *logging.Logger
}

// Acquire takes the lease at path, retrying every Backoff up to Attempts
// times. Contention past the last attempt is a KindConflict error.
func Acquire(ctx context.Context, path string, opts Options) (*Lease, error) {
	if opts.Attempts <= 0 {
		opts.Attempts = DefaultAttempts
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	log := opts.Logger
	if log == nil {
		log = logging.WithComponent("lease")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.KindUnavailable, "failed to create lock directory for %s", path)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, errors.KindUnavailable, "failed to open lock %s", path)
	}

	for attempt := 1; ; attempt++ {
		err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if err != unix.EWOULDBLOCK {
			f.Close()
			return nil, errors.Wrapf(err, errors.KindUnavailable, "failed to lock %s", path)
		}
		if attempt >= opts.Attempts {
			f.Close()
			return nil, errors.Attr(errors.Errorf(errors.KindConflict,
				"transition lock %s still held after %d attempts", path, opts.Attempts), "holder", describeHolder(path))
		}

		log.Debug("Transition lock busy, retrying", "path", path, "attempt", attempt, "backoff", opts.Backoff)
		timer := time.NewTimer(opts.Backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			f.Close()
			return nil, errors.Wrapf(ctx.Err(), errors.KindConflict, "gave up waiting for %s", path)
		case <-timer.C:
		}
	}

	l := &Lease{
		file: f,
		path: path,
		holder: Holder{
			PID:      os.Getpid(),
			ID:       uuid.NewString(),
			Acquired: time.Now().UTC(),
		},
		logger: log,
	}
	l.writeHolder()
	log.Debug("Transition lock acquired", "path", path, "id", l.holder.ID)
	return l, nil
}

// ID is the unique identifier of this acquisition.
func (l *Lease) ID() string {
	return l.holder.ID
}

// Holder returns the holder record of this acquisition.
func (l *Lease) Holder() Holder {
	return l.holder
}

// Release drops the lease. It is safe to call more than once.
func (l *Lease) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	_ = f.Truncate(0)
	unlockErr := unix.Flock(int(f.Fd()), unix.LOCK_UN)
	closeErr := f.Close()
	if unlockErr != nil {
		return errors.Wrapf(unlockErr, errors.KindInternal, "failed to unlock %s", l.path)
	}
	if closeErr != nil {
		return errors.Wrapf(closeErr, errors.KindInternal, "failed to close %s", l.path)
	}
	l.logger.Debug("Transition lock released", "path", l.path, "id", l.holder.ID)
	return nil
}

func (l *Lease) writeHolder() {
	data, err := json.Marshal(l.holder)
	if err != nil {
		return
	}
	if err := l.file.Truncate(0); err != nil {
		l.logger.Warn("Cannot record lock holder", "path", l.path, "error", err)
		return
	}
	if _, err := l.file.WriteAt(data, 0); err != nil {
		l.logger.Warn("Cannot record lock holder", "path", l.path, "error", err)
	}
}

// ReadHolder returns the holder recorded in the lock file at path. The
// record may be stale if the holder exited without releasing.
func ReadHolder(path string) (Holder, error) {
	var h Holder
	data, err := os.ReadFile(path)
	if err != nil {
		return h, errors.Wrapf(err, errors.KindNotFound, "failed to read %s", path)
	}
	if len(data) == 0 {
		return h, errors.Errorf(errors.KindNotFound, "no holder recorded in %s", path)
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return h, errors.Wrapf(err, errors.KindValidation, "bad holder record in %s", path)
	}
	return h, nil
}

func describeHolder(path string) string {
	h, err := ReadHolder(path)
	if err != nil {
		return "unknown"
	}
	return h.ID
}
