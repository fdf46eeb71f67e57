package pmids

import "sync"

// List holds the PMIDs read from a file and reloads them on demand. Safe for concurrent use.
type List struct {
	path string
	mu   sync.RWMutex
	ids  []string
}

// NewList creates a list backed by path. Call Reload to read it.
func NewList(path string) *List {
	return &List{path: path}
}

// Path returns the backing file path.
func (l *List) Path() string {
	return l.path
}

// Reload re-reads the file. On error the previous ids are kept.
func (l *List) Reload() error {
	ids, err := ReadFile(l.path)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.ids = ids
	l.mu.Unlock()
	return nil
}

// Clear drops all ids, for when the file is removed.
func (l *List) Clear() {
	l.mu.Lock()
	l.ids = nil
	l.mu.Unlock()
}

// IDs returns a copy of the current ids.
func (l *List) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.ids...)
}
