// Package infra implements infrastructure concerns (settings persistence,
// run state, process, alarms, events, speech).
package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

const settingsFileName = "settings.json"

// settingsDocument is the on-disk shape: the configuration object plus
// the transient disable flag, stored under separate keys so the flag is
// never part of the configuration itself.
type settingsDocument struct {
	Version           int              `json:"version"`
	Config            *domain.Settings `json:"config"`
	TemporaryDisabled bool             `json:"temporaryDisabled"`
}

// FileSettingsStore implements domain.SettingsStore with a JSON file.
// Writes are flock-guarded and atomic (write temp + rename). Change
// notification is mtime polling; the host storage's onChanged analog.
// Concurrent edits from multiple processes are last-write-wins.
type FileSettingsStore struct {
	path         string
	pollInterval time.Duration

	mu        sync.Mutex
	callbacks []func()
	watching  bool
	stopWatch chan struct{}
}

// NewFileSettingsStore creates a store at dataDir/settings.json, writing
// defaults on first run.
func NewFileSettingsStore(dataDir string) (*FileSettingsStore, error) {
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	s := &FileSettingsStore{
		path:         filepath.Join(dataDir, settingsFileName),
		pollInterval: 500 * time.Millisecond,
		stopWatch:    make(chan struct{}),
	}

	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		doc := &settingsDocument{Version: 1, Config: domain.DefaultSettings()}
		if err := s.write(doc); err != nil {
			return nil, fmt.Errorf("writing default settings: %w", err)
		}
	}

	return s, nil
}

// Path returns the settings file path (for tests).
func (s *FileSettingsStore) Path() string { return s.path }

// GetSettings returns the current configuration, or nil if absent.
func (s *FileSettingsStore) GetSettings() (*domain.Settings, error) {
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	return doc.Config, nil
}

// SetSettings replaces the configuration, preserving the disable flag.
func (s *FileSettingsStore) SetSettings(cfg *domain.Settings) error {
	return s.update(func(doc *settingsDocument) {
		doc.Config = cfg
	})
}

// GetTemporaryDisabled reads the session-level override.
func (s *FileSettingsStore) GetTemporaryDisabled() (bool, error) {
	doc, err := s.read()
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}
	return doc.TemporaryDisabled, nil
}

// SetTemporaryDisabled toggles the session-level override.
func (s *FileSettingsStore) SetTemporaryDisabled(disabled bool) error {
	return s.update(func(doc *settingsDocument) {
		doc.TemporaryDisabled = disabled
	})
}

// OnChange registers a callback for persisted changes. The first
// registration starts the mtime watcher.
func (s *FileSettingsStore) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callbacks = append(s.callbacks, fn)
	if !s.watching {
		s.watching = true
		go s.watch()
	}
}

// Close stops the change watcher.
func (s *FileSettingsStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watching {
		close(s.stopWatch)
		s.watching = false
	}
}

func (s *FileSettingsStore) watch() {
	var lastMod time.Time
	if st, err := os.Stat(s.path); err == nil {
		lastMod = st.ModTime()
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopWatch:
			return
		case <-ticker.C:
			st, err := os.Stat(s.path)
			if err != nil {
				continue
			}
			if st.ModTime().Equal(lastMod) {
				continue
			}
			lastMod = st.ModTime()

			s.mu.Lock()
			callbacks := append([]func(){}, s.callbacks...)
			s.mu.Unlock()
			for _, fn := range callbacks {
				fn()
			}
		}
	}
}

// update applies a mutation under an exclusive file lock. The lock only
// serializes writers within this host; cross-context storage is still
// last-write-wins, as with the host platform's storage.
func (s *FileSettingsStore) update(mutate func(*settingsDocument)) error {
	lockPath := s.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("opening lock file: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	doc, err := s.read()
	if err != nil {
		return err
	}
	if doc == nil {
		doc = &settingsDocument{Version: 1}
	}

	mutate(doc)
	return s.write(doc)
}

func (s *FileSettingsStore) read() (*settingsDocument, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var doc settingsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing settings file: %w", err)
	}
	return &doc, nil
}

// write persists atomically: temp file unique per process, then rename.
func (s *FileSettingsStore) write(doc *settingsDocument) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", s.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileSettingsStore implements domain.SettingsStore.
var _ domain.SettingsStore = (*FileSettingsStore)(nil)
