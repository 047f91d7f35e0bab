// Package ledger persists per-identity trade records in append-only WALs.
package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"
	"go.uber.org/zap"

	"github.com/agenttrade/ledger/internal/domain"
	"github.com/agenttrade/ledger/internal/namespace"
)

const (
	segmentThreshold = 1000
	maxSegments      = 100

	recordKeyPrefix = "trade_"
)

// Store owns one WAL per identity namespace. Records are written with the
// WAL index as sequence id in sync-disk mode: a confirmed append is durable,
// and a torn write is dropped by the WAL on recovery, so readers see either
// the complete record or nothing.
//
// The store does not lock. Callers are responsible for running the read and
// append of one transaction under a single continuously-held identity lock.
type Store struct {
	dir    string
	logger *zap.Logger

	mu   sync.Mutex
	wals map[string]*gowal.Wal
}

// NewStore creates a ledger store rooted at dir.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		dir:    dir,
		logger: logger,
		wals:   make(map[string]*gowal.Wal),
	}
}

func (s *Store) walFor(identity string) (*gowal.Wal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := namespace.For(identity)
	if w, ok := s.wals[ns]; ok {
		return w, nil
	}
	return s.openLocked(ns, identity)
}

// walForRead resolves an identity's ledger without creating one. Reads stay
// side-effect-free: an identity that never traded leaves no trace on disk.
// The second return is false when no ledger exists.
func (s *Store) walForRead(identity string) (*gowal.Wal, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ns := namespace.For(identity)
	if w, ok := s.wals[ns]; ok {
		return w, true, nil
	}

	if _, err := os.Stat(filepath.Join(s.dir, ns)); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "stat ledger for identity %s", identity)
	}

	w, err := s.openLocked(ns, identity)
	if err != nil {
		return nil, false, err
	}
	return w, true, nil
}

func (s *Store) openLocked(ns, identity string) (*gowal.Wal, error) {
	dir := filepath.Join(s.dir, ns)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create ledger dir for identity %s", identity)
	}

	w, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "ledger_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "open ledger for identity %s", identity)
	}

	s.wals[ns] = w
	return w, nil
}

// ReadLatest returns the most recent record of the identity's ledger. The
// tail is located directly from the WAL index, never by scanning history.
func (s *Store) ReadLatest(identity string) (domain.LedgerRecord, error) {
	w, ok, err := s.walForRead(identity)
	if err != nil {
		return domain.LedgerRecord{}, err
	}
	if !ok {
		return domain.LedgerRecord{}, errors.Wrapf(domain.ErrNoPriorPosition, "identity %s", identity)
	}

	idx := w.CurrentIndex()
	if idx == 0 {
		return domain.LedgerRecord{}, errors.Wrapf(domain.ErrNoPriorPosition, "identity %s", identity)
	}

	return s.decode(w, idx, identity)
}

// Append durably writes exactly one new record. The record's sequence id
// must continue the ledger tail by exactly one; anything else means the
// caller computed against stale state.
func (s *Store) Append(identity string, rec domain.LedgerRecord) error {
	w, err := s.walFor(identity)
	if err != nil {
		return err
	}

	next := w.CurrentIndex() + 1
	if rec.Seq != next {
		return errors.Wrapf(domain.ErrWriteFailed,
			"identity %s: record seq %d does not continue ledger tail %d", identity, rec.Seq, next-1)
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrapf(domain.ErrWriteFailed, "encode record: %v", err)
	}

	if err := w.Write(next, recordKeyPrefix+string(rec.Action), payload); err != nil {
		return errors.Wrapf(domain.ErrWriteFailed, "identity %s seq %d: %v", identity, next, err)
	}
	return nil
}

// RecordsAfter returns all records with sequence id greater than after, in
// order. It backs the ledger stream; latest-state reads never use it.
func (s *Store) RecordsAfter(identity string, after uint64) ([]domain.LedgerRecord, error) {
	w, ok, err := s.walForRead(identity)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	current := w.CurrentIndex()
	if current <= after {
		return nil, nil
	}

	records := make([]domain.LedgerRecord, 0, current-after)
	for idx := after + 1; idx <= current; idx++ {
		rec, err := s.decode(w, idx, identity)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) decode(w *gowal.Wal, idx uint64, identity string) (domain.LedgerRecord, error) {
	// Get reports checksum failures through err and a missing index as an
	// empty payload with no error.
	_, payload, err := w.Get(idx)
	if err != nil {
		return domain.LedgerRecord{}, errors.Wrapf(domain.ErrReadCorrupted,
			"identity %s seq %d: %v", identity, idx, err)
	}
	if len(payload) == 0 {
		return domain.LedgerRecord{}, errors.Wrapf(domain.ErrReadCorrupted,
			"identity %s: no record at seq %d", identity, idx)
	}

	var rec domain.LedgerRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return domain.LedgerRecord{}, errors.Wrapf(domain.ErrReadCorrupted,
			"identity %s seq %d: %v", identity, idx, err)
	}
	if rec.Seq != idx {
		return domain.LedgerRecord{}, errors.Wrapf(domain.ErrReadCorrupted,
			"identity %s: stored record claims seq %d at index %d", identity, rec.Seq, idx)
	}
	return rec, nil
}

// Close closes every open ledger.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for ns, w := range s.wals {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "close ledger %s", ns)
		}
		delete(s.wals, ns)
	}
	return firstErr
}
