package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/poiesic/dailyrag/core"
)

const (
	// MarkerName is the file that marks a fully built index.
	MarkerName = "index"

	// StoreDirName holds the persisted vector store inside an entry.
	StoreDirName = "store"

	// DefaultRetentionDays is how many whole days an entry is kept.
	DefaultRetentionDays = 3
)

// Entry is the cache folder of one DateKey.
type Entry struct {
	Key   core.DateKey
	Path  string
	Reuse bool // true iff the marker file exists
}

// StorePath returns the directory of the entry's vector store.
func (e Entry) StorePath() string {
	return filepath.Join(e.Path, StoreDirName)
}

// MarkerPath returns the path of the entry's marker file.
func (e Entry) MarkerPath() string {
	return filepath.Join(e.Path, MarkerName)
}

// Manager creates, resolves and prunes cache entries under one root.
// It assumes a single writer; there is no file locking.
type Manager struct {
	root          string
	retentionDays int
	logger        *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager) error

// WithRetentionDays sets how many whole days old an entry may be before
// Prune removes it. Default is DefaultRetentionDays.
func WithRetentionDays(days int) Option {
	return func(m *Manager) error {
		if days < 0 {
			return fmt.Errorf("%w: %d", ErrInvalidRetention, days)
		}
		m.retentionDays = days
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger.With("component", "cache")
		return nil
	}
}

// NewManager creates a Manager rooted at root, creating the directory if
// it is missing.
func NewManager(root string, opts ...Option) (*Manager, error) {
	if root == "" {
		return nil, ErrRootRequired
	}

	m := &Manager{
		root:          root,
		retentionDays: DefaultRetentionDays,
		logger:        slog.Default().With("component", "cache"),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache root %s: %w", root, err)
	}

	return m, nil
}

// Root returns the cache root directory.
func (m *Manager) Root() string {
	return m.root
}

// RetentionDays returns the configured retention period.
func (m *Manager) RetentionDays() int {
	return m.retentionDays
}

// Expired lists the date-named entries that Prune would remove at now.
func (m *Manager) Expired(now time.Time) ([]core.DateKey, error) {
	dirs, err := m.dateDirs(now.Location())
	if err != nil {
		return nil, err
	}

	var expired []core.DateKey
	for _, d := range dirs {
		if core.ElapsedDays(now, d.date) > m.retentionDays {
			expired = append(expired, d.key)
		}
	}
	return expired, nil
}

// Prune deletes every date-named entry more than the retention period
// before now and returns the removed keys. Deletion errors are returned
// immediately.
func (m *Manager) Prune(now time.Time) ([]core.DateKey, error) {
	expired, err := m.Expired(now)
	if err != nil {
		return nil, err
	}

	removed := make([]core.DateKey, 0, len(expired))
	for _, key := range expired {
		path := filepath.Join(m.root, string(key))
		if err := os.RemoveAll(path); err != nil {
			return removed, fmt.Errorf("removing %s: %w", path, err)
		}
		m.logger.Info("deleted old embeddings", "date", key)
		removed = append(removed, key)
	}
	return removed, nil
}

// Resolve returns the entry for key. Reuse reports whether a marker exists.
func (m *Manager) Resolve(key core.DateKey) (Entry, error) {
	if _, err := core.ParseDateKey(string(key), nil); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		Key:  key,
		Path: filepath.Join(m.root, string(key)),
	}

	info, err := os.Stat(entry.MarkerPath())
	switch {
	case err == nil:
		entry.Reuse = info.Mode().IsRegular()
	case errors.Is(err, os.ErrNotExist):
	default:
		return Entry{}, fmt.Errorf("checking marker for %s: %w", key, err)
	}

	return entry, nil
}

// Prepare readies entry for a fresh build: the folder is created and any
// store left by an interrupted build is removed.
func (m *Manager) Prepare(entry Entry) error {
	if entry.Reuse {
		return nil
	}
	if err := os.MkdirAll(entry.Path, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", entry.Path, err)
	}
	if err := os.RemoveAll(entry.StorePath()); err != nil {
		return fmt.Errorf("clearing %s: %w", entry.StorePath(), err)
	}
	return nil
}

// Commit writes the marker of entry. It must be called only after the
// store has been fully written and closed or flushed.
func (m *Manager) Commit(entry Entry, manifest core.IndexManifest) error {
	if err := core.ValidateManifest(&manifest); err != nil {
		return err
	}
	if manifest.DateKey != entry.Key {
		return fmt.Errorf("%w: manifest for %s committed to %s", core.ErrInvalidManifest, manifest.DateKey, entry.Key)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(entry.Path, MarkerName+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating marker: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing marker: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("syncing marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing marker: %w", err)
	}
	if err := os.Rename(tmpName, entry.MarkerPath()); err != nil {
		return fmt.Errorf("publishing marker: %w", err)
	}

	m.logger.Debug("committed index", "date", entry.Key, "chunks", manifest.Chunks)
	return nil
}

// Manifest reads the marker of entry.
func (m *Manager) Manifest(entry Entry) (*core.IndexManifest, error) {
	data, err := os.ReadFile(entry.MarkerPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotBuilt, entry.Key)
		}
		return nil, err
	}

	var manifest core.IndexManifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptIndex, entry.Key, err)
	}
	if err := core.ValidateManifest(&manifest); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorruptIndex, entry.Key, err)
	}
	if manifest.DateKey != entry.Key {
		return nil, fmt.Errorf("%w: marker of %s names %s", ErrCorruptIndex, entry.Key, manifest.DateKey)
	}
	return &manifest, nil
}

// Entries lists every date-named entry, oldest first.
func (m *Manager) Entries() ([]Entry, error) {
	dirs, err := m.dateDirs(time.Local)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(dirs))
	for _, d := range dirs {
		entry, err := m.Resolve(d.key)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

type dateDir struct {
	key  core.DateKey
	date time.Time
}

// dateDirs returns the subdirectories of root whose names parse as a
// DateKey, sorted by date. Everything else is skipped silently.
func (m *Manager) dateDirs(loc *time.Location) ([]dateDir, error) {
	items, err := os.ReadDir(m.root)
	if err != nil {
		return nil, fmt.Errorf("listing cache root %s: %w", m.root, err)
	}

	var dirs []dateDir
	for _, item := range items {
		if !item.IsDir() {
			continue
		}
		date, err := core.ParseDateKey(item.Name(), loc)
		if err != nil {
			continue
		}
		dirs = append(dirs, dateDir{key: core.DateKey(item.Name()), date: date})
	}

	slices.SortFunc(dirs, func(a, b dateDir) int {
		return a.date.Compare(b.date)
	})
	return dirs, nil
}
