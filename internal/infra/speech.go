package infra

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
)

// Speech parameters: slower, lower and quieter than the platform default,
// to land as a weary sigh rather than an announcement.
const (
	speechTimeout  = 15 * time.Second
	sayRateWPM     = "140" // macOS say default is ~175
	espeakRateWPM  = "130"
	espeakPitch    = "40" // 0-99, default 50
	espeakVolumeDB = "80" // 0-200, default 100
)

// SystemSpeaker implements domain.Speaker by shelling out to the
// platform's TTS binary: `say` on macOS, `espeak` elsewhere.
type SystemSpeaker struct{}

// NewSystemSpeaker creates a speaker for the current platform.
func NewSystemSpeaker() *SystemSpeaker {
	return &SystemSpeaker{}
}

// Speak utters text once. Errors (no binary, no audio device) are
// returned for the caller to swallow; speech is cosmetic.
func (s *SystemSpeaker) Speak(ctx context.Context, text string) error {
	ctx, cancel := context.WithTimeout(ctx, speechTimeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "darwin" {
		cmd = exec.CommandContext(ctx, "say", "-r", sayRateWPM, text)
	} else {
		cmd = exec.CommandContext(ctx, "espeak",
			"-s", espeakRateWPM,
			"-p", espeakPitch,
			"-a", espeakVolumeDB,
			text)
	}

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}
	return nil
}

// Ensure SystemSpeaker implements domain.Speaker.
var _ domain.Speaker = (*SystemSpeaker)(nil)

// NopSpeaker is used when TTS is unavailable or disabled.
type NopSpeaker struct{}

func (NopSpeaker) Speak(ctx context.Context, text string) error { return nil }

var _ domain.Speaker = NopSpeaker{}
