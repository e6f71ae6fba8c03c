package infra

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

const runStateDir = "/var/tmp"

// FileRunState implements domain.RunStateStore using a hidden JSON file.
// The file location is obfuscated using a hash of the hostname.
type FileRunState struct {
	path string
}

// NewFileRunState creates a run-state store at the default hidden path.
func NewFileRunState() *FileRunState {
	hostname, _ := os.Hostname()
	hash := md5.Sum([]byte("sitemon-runstate-" + hostname))
	filename := ".cf_sys_state_" + hex.EncodeToString(hash[:])[:8]

	return &FileRunState{path: filepath.Join(runStateDir, filename)}
}

// NewFileRunStateWithPath creates a run-state store at a specific path
// (for testing).
func NewFileRunStateWithPath(path string) *FileRunState {
	return &FileRunState{path: path}
}

// Path returns the hidden run-state file path.
func (r *FileRunState) Path() string { return r.path }

// RegisterDaemon saves the daemon's PID and process name.
func (r *FileRunState) RegisterDaemon(pid int, name string) error {
	return r.locked(func(state *domain.RunState) {
		state.DaemonPID = pid
		state.DaemonName = name
		state.LastHeartbeat = time.Now().Unix()
	})
}

// UpdateHeartbeat updates the liveness timestamp.
func (r *FileRunState) UpdateHeartbeat() error {
	return r.locked(func(state *domain.RunState) {
		state.LastHeartbeat = time.Now().Unix()
	})
}

// Get returns the full run state, or nil if none exists.
func (r *FileRunState) Get() (*domain.RunState, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var state domain.RunState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

// Clear removes the run-state file.
func (r *FileRunState) Clear() error {
	return os.Remove(r.path)
}

// locked applies a mutation under an exclusive file lock, then writes
// atomically (temp file + rename).
func (r *FileRunState) locked(mutate func(*domain.RunState)) error {
	lockPath := r.path + ".lock"
	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return fmt.Errorf("opening lock file: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("acquiring lock: %w", err)
	}
	defer func() { _ = syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN) }()

	state, _ := r.Get() // may not exist yet
	if state == nil {
		state = &domain.RunState{Version: 1}
	}

	mutate(state)

	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	tmpPath := fmt.Sprintf("%s.%d.tmp", r.path, os.Getpid())
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return nil
}

// Ensure FileRunState implements domain.RunStateStore.
var _ domain.RunStateStore = (*FileRunState)(nil)
