// Package locker provides cross-process mutual exclusion keyed by trading
// identity. A lock is a file created with O_EXCL in the lock directory; the
// file body records the owner token, pid and acquisition time so a crashed
// holder can be detected and reclaimed instead of wedging the identity.
package locker

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/agenttrade/ledger/internal/domain"
	"github.com/agenttrade/ledger/internal/namespace"
)

const (
	initialRetryInterval = 10 * time.Millisecond
	maxRetryInterval     = 250 * time.Millisecond
)

// Manager hands out per-identity exclusive locks. Granularity is the whole
// identity, not a symbol: every trade rewrites the identity's full snapshot,
// so trades on different symbols still conflict and must serialize.
type Manager struct {
	dir        string
	staleAfter time.Duration
	logger     *zap.Logger
}

type lockInfo struct {
	Token      string    `json:"token"`
	PID        int       `json:"pid"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// NewManager creates a lock manager rooted at dir. Locks older than
// staleAfter are treated as abandoned by a crashed holder and reclaimed.
func NewManager(dir string, staleAfter time.Duration, logger *zap.Logger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if staleAfter <= 0 {
		return nil, errors.New("stale threshold must be positive")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create lock dir")
	}
	return &Manager{dir: dir, staleAfter: staleAfter, logger: logger}, nil
}

// Acquire blocks until the identity lock is held or timeout expires, in
// which case it fails with domain.ErrLockTimeout instead of hanging on a
// dead holder forever.
func (m *Manager) Acquire(identity string, timeout time.Duration) (*Handle, error) {
	path := filepath.Join(m.dir, namespace.For(identity)+".lock")
	token := uuid.NewString()
	deadline := time.Now().Add(timeout)
	interval := initialRetryInterval

	for {
		ok, err := m.tryCreate(path, token)
		if err != nil {
			return nil, err
		}
		if ok {
			return &Handle{mgr: m, path: path, token: token, identity: identity}, nil
		}

		m.reclaimIfStale(path, identity)

		if !time.Now().Add(interval).Before(deadline) {
			return nil, errors.Wrapf(domain.ErrLockTimeout, "identity %s after %s", identity, timeout)
		}
		time.Sleep(interval)
		if interval < maxRetryInterval {
			interval *= 2
		}
	}
}

func (m *Manager) tryCreate(path, token string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, errors.Wrap(err, "create lock file")
	}

	payload, err := json.Marshal(lockInfo{
		Token:      token,
		PID:        os.Getpid(),
		AcquiredAt: time.Now().UTC(),
	})
	if err == nil {
		_, err = f.Write(payload)
	}
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return false, errors.Wrap(err, "write lock file")
	}
	return true, nil
}

// reclaimIfStale frees the lock file when its holder exceeded the stale
// threshold. A plain read-then-remove would race: another waiter can reclaim
// and a new holder re-create the file between the two calls, and the remove
// would then kill the fresh holder's lock. Instead the file is claimed with
// an atomic rename, so exactly one waiter wins, and the claimed content is
// re-checked before the lock is considered reclaimed.
func (m *Manager) reclaimIfStale(path, identity string) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var info lockInfo
	if err := json.Unmarshal(payload, &info); err != nil || info.AcquiredAt.IsZero() {
		// unreadable metadata, fall back to file age
		st, statErr := os.Stat(path)
		if statErr != nil || time.Since(st.ModTime()) < m.staleAfter {
			return
		}
		info.AcquiredAt = st.ModTime()
	}

	age := time.Since(info.AcquiredAt)
	if age < m.staleAfter {
		return
	}

	claim := path + ".reclaim." + uuid.NewString()
	if err := os.Rename(path, claim); err != nil {
		// another waiter won the reclamation
		return
	}
	defer os.Remove(claim)

	claimed, err := os.ReadFile(claim)
	if err != nil || !bytes.Equal(claimed, payload) {
		// the file changed hands between the read and the rename; hand the
		// fresh holder's lock back
		if linkErr := os.Link(claim, path); linkErr != nil && !os.IsExist(linkErr) {
			m.logger.Warn("failed to restore claimed lock",
				zap.String("identity", identity), zap.Error(linkErr))
		}
		return
	}

	m.logger.Warn("reclaimed stale identity lock",
		zap.String("identity", identity),
		zap.Int("holder_pid", info.PID),
		zap.Duration("age", age))
}

// Handle is an acquired lock. Release is idempotent and must run on every
// exit path of the transaction that acquired it.
type Handle struct {
	mgr      *Manager
	path     string
	token    string
	identity string

	mu       sync.Mutex
	released bool
}

// Release frees the lock. Calling it more than once is safe; only the
// holder's own lock file is ever removed. The file is claimed by rename
// before inspection for the same reason reclamation does it: between a read
// and a remove the lock could be reclaimed and re-acquired, and the remove
// would hit the new holder.
func (h *Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true

	claim := h.path + ".release." + h.token
	if err := os.Rename(h.path, claim); err != nil {
		if os.IsNotExist(err) {
			// reclaimed while held
			return nil
		}
		return errors.Wrap(err, "claim lock file on release")
	}
	defer os.Remove(claim)

	payload, err := os.ReadFile(claim)
	if err != nil {
		return errors.Wrap(err, "read lock file on release")
	}

	var info lockInfo
	if err := json.Unmarshal(payload, &info); err == nil && info.Token != h.token {
		// the lock was reclaimed and re-acquired by someone else
		if linkErr := os.Link(claim, h.path); linkErr != nil && !os.IsExist(linkErr) {
			h.mgr.logger.Warn("failed to restore claimed lock",
				zap.String("identity", h.identity), zap.Error(linkErr))
		}
		h.mgr.logger.Warn("lock no longer owned on release",
			zap.String("identity", h.identity))
		return nil
	}
	return nil
}
