package infra

import (
	"os"
	"syscall"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

// ProcessManagerImpl implements domain.ProcessManager using gopsutil.
type ProcessManagerImpl struct{}

// NewProcessManager creates a new process manager.
func NewProcessManager() domain.ProcessManager {
	return &ProcessManagerImpl{}
}

// IsRunning checks if a PID exists and is running.
func (pm *ProcessManagerImpl) IsRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	exists, err := process.PidExists(int32(pid))
	if err == nil {
		return exists
	}

	// gopsutil failed; fall back to signal 0.
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// GetCurrentPID returns the current process PID.
func (pm *ProcessManagerImpl) GetCurrentPID() int {
	return os.Getpid()
}

// Ensure ProcessManagerImpl implements domain.ProcessManager.
var _ domain.ProcessManager = (*ProcessManagerImpl)(nil)

// DaemonProbe implements domain.RuntimeProbe: the background runtime is
// alive when the registered daemon PID is running. Page monitors use this
// for their periodic liveness check.
type DaemonProbe struct {
	runState domain.RunStateStore
	pm       domain.ProcessManager
}

// NewDaemonProbe creates a probe over the run-state registry.
func NewDaemonProbe(runState domain.RunStateStore, pm domain.ProcessManager) *DaemonProbe {
	return &DaemonProbe{runState: runState, pm: pm}
}

// Alive reports whether the daemon process is reachable. Any read failure
// counts as dead; callers clean up locally and go quiet.
func (p *DaemonProbe) Alive() bool {
	state, err := p.runState.Get()
	if err != nil || state == nil {
		return false
	}
	return p.pm.IsRunning(state.DaemonPID)
}

// Ensure DaemonProbe implements domain.RuntimeProbe.
var _ domain.RuntimeProbe = (*DaemonProbe)(nil)
