package browser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrSessionBusy means another process already drives this browser state dir.
var ErrSessionBusy = errors.New("browser session already in use")

// SessionLock is an exclusive, process-level lock on a browser state
// directory. Only one run may drive a session at a time.
type SessionLock struct {
	fl *flock.Flock
}

func AcquireSessionLock(dir string) (*SessionLock, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	fl := flock.New(filepath.Join(dir, ".session.lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionBusy, fl.Path())
	}
	return &SessionLock{fl: fl}, nil
}

func (l *SessionLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
