package hook

import (
	"errors"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/rnwolfe/tasky/internal/log"
)

// ManifestStore resolves project roots to parsed manifests and caches them
// until the manifest or anything in the hooks directory changes.
//
// When a manifest that previously parsed becomes invalid, the store keeps
// serving the last good version and logs a warning, so a half-saved edit does
// not break every task command. The failure is available from LastError.
// Without a good version to fall back on, the ManifestError is returned.
type ManifestStore struct {
	mu     sync.Mutex
	roots  map[string]*rootState
	parses atomic.Int64
}

// rootState is guarded by its own mutex so unrelated projects never wait on
// each other's parse.
type rootState struct {
	mu      sync.Mutex
	entry   *cacheEntry
	failed  *Fingerprint
	lastErr error
	// scanErr is the message of the last fingerprint failure, so a
	// persistent one is warned about once.
	scanErr string
}

// cacheEntry is replaced, never mutated.
type cacheEntry struct {
	manifest    *Manifest
	fingerprint Fingerprint
}

// NewManifestStore returns an empty store.
func NewManifestStore() *ManifestStore {
	return &ManifestStore{roots: make(map[string]*rootState)}
}

// Get returns the manifest for projectRoot, or nil when the project has no
// hook.json. Concurrent calls for one root parse at most once per change.
func (s *ManifestStore) Get(projectRoot string) (*Manifest, error) {
	root := normalizeRoot(projectRoot)
	st := s.state(root)

	st.mu.Lock()
	defer st.mu.Unlock()

	path := ManifestPath(root)
	fp, err := computeFingerprint(path, HooksDir(root))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			st.reset()
			return nil, nil
		}
		me := &ManifestError{Path: path, Msg: "reading hooks directory", Err: err}
		if st.entry != nil && st.scanErr == me.Error() {
			st.lastErr = me
			return st.entry.manifest, nil
		}
		st.scanErr = me.Error()
		return st.fallback(me)
	}
	st.scanErr = ""

	if st.entry != nil && st.entry.fingerprint == fp {
		return st.entry.manifest, nil
	}
	if st.failed != nil && *st.failed == fp {
		if st.entry != nil {
			return st.entry.manifest, nil
		}
		return nil, st.lastErr
	}

	m, err := LoadManifest(path)
	s.parses.Add(1)
	if err != nil {
		st.failed = &fp
		return st.fallback(err)
	}

	log.Debug("hook manifest loaded: %s (%d hooks)", path, len(m.Hooks))
	st.entry = &cacheEntry{manifest: m, fingerprint: fp}
	st.failed, st.lastErr = nil, nil
	return m, nil
}

// LastError returns the most recent load failure for projectRoot, or nil if
// the last attempt succeeded.
func (s *ManifestStore) LastError(projectRoot string) error {
	st := s.state(normalizeRoot(projectRoot))
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.lastErr
}

// Invalidate forgets everything cached for projectRoot. It waits for an
// in-flight Get on the same root, so the next Get parses exactly once.
func (s *ManifestStore) Invalidate(projectRoot string) {
	st := s.state(normalizeRoot(projectRoot))
	st.mu.Lock()
	st.reset()
	st.mu.Unlock()
}

// Parses returns how many manifest parses the store has performed.
func (s *ManifestStore) Parses() int64 {
	return s.parses.Load()
}

func (s *ManifestStore) state(root string) *rootState {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.roots[root]
	if !ok {
		st = &rootState{}
		s.roots[root] = st
	}
	return st
}

// reset clears the cached entry and any remembered failure. Callers must
// hold st.mu.
func (st *rootState) reset() {
	st.entry, st.failed, st.lastErr, st.scanErr = nil, nil, nil, ""
}

// fallback records err and serves the last good manifest if there is one.
// Callers must hold st.mu.
func (st *rootState) fallback(err error) (*Manifest, error) {
	st.lastErr = err
	if st.entry == nil {
		return nil, err
	}
	log.Warn("%v; using last valid manifest", err)
	return st.entry.manifest, nil
}

func normalizeRoot(root string) string {
	if abs, err := filepath.Abs(root); err == nil {
		return abs
	}
	return filepath.Clean(root)
}
