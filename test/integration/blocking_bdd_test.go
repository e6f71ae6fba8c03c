//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/site_mon/internal/alarm"
	"github.com/eliteGoblin/focusd/site_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/site_mon/internal/domain"
	"github.com/eliteGoblin/focusd/site_mon/internal/infra"
	"github.com/eliteGoblin/focusd/site_mon/internal/monitor"
	"github.com/eliteGoblin/focusd/site_mon/internal/usecase"
	"github.com/eliteGoblin/focusd/site_mon/test/fixtures"
)

var _ = Describe("Site Blocking", func() {
	var (
		tmpDir        string
		settings      *infra.FileSettingsStore
		events        *infra.EncryptedEventLog
		alarms        *infra.TimerAlarmService
		bus           *infra.Bus
		cancel        context.CancelFunc
		sessionCtx    context.Context
		sessionCancel context.CancelFunc
	)

	// startBackground boots the full background context against tmpDir.
	startBackground := func() {
		var err error
		settings, err = infra.NewFileSettingsStore(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		// A disabled schedule means the window always contains "now",
		// which keeps these specs independent of the wall clock.
		cfg, err := settings.GetSettings()
		Expect(err).NotTo(HaveOccurred())
		cfg.Schedule.Enabled = false
		Expect(settings.SetSettings(cfg)).To(Succeed())

		key, err := infra.NewFileKeyProvider(tmpDir).GetOrCreateKey()
		Expect(err).NotTo(HaveOccurred())
		events, err = infra.NewEncryptedEventLog(tmpDir, key)
		Expect(err).NotTo(HaveOccurred())

		logger := zap.NewNop()
		bus = infra.NewBus(logger)
		alarms = infra.NewTimerAlarmService()
		runState := infra.NewFileRunStateWithPath(filepath.Join(tmpDir, ".state"))

		d := daemon.NewDaemon(
			daemon.DefaultConfig(),
			settings,
			runState,
			usecase.NewDecider(settings, nil, logger),
			alarm.NewScheduler(alarms, nil, logger),
			bus,
			events,
			infra.NewProcessManager(),
			"com.apple.test.sitemon",
			logger,
		)

		var ctx context.Context
		ctx, cancel = context.WithCancel(context.Background())
		go func() {
			defer GinkgoRecover()
			_ = d.Run(ctx)
		}()

		Eventually(func() error {
			_, err := bus.Request(domain.ActionCheckBlockStatus, "https://example.com/")
			return err
		}, time.Second, 5*time.Millisecond).Should(Succeed())
	}

	startSession := func(page *fixtures.FakePage) *daemon.PageSession {
		cfg := monitor.Config{
			Debounce:     time.Millisecond,
			PollInterval: 5 * time.Millisecond,
		}
		session := daemon.NewPageSession(cfg, page, nil, nil, bus, settings, infra.NopSpeaker{}, nil, zap.NewNop())
		go func() {
			defer GinkgoRecover()
			session.Run(sessionCtx)
		}()
		return session
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "sitemon-integration-*")
		Expect(err).NotTo(HaveOccurred())
		sessionCtx, sessionCancel = context.WithCancel(context.Background())
		startBackground()
	})

	AfterEach(func() {
		sessionCancel()
		cancel()
		settings.Close()
		events.Close()
		_ = alarms.ClearAll()
		os.RemoveAll(tmpDir)
	})

	Describe("navigating to a blocked site", func() {
		It("covers the page with the overlay and locks scrolling", func() {
			page := fixtures.NewFakePage("https://m.youtube.com/watch?v=1")
			startSession(page)

			Eventually(page.HasOverlay, time.Second, 5*time.Millisecond).Should(BeTrue())
			Expect(page.ScrollLocked()).To(BeTrue())
			Expect(page.OverlayMessage()).NotTo(BeEmpty())
		})

		It("leaves allowed pages untouched", func() {
			page := fixtures.NewFakePage("https://golang.org/doc/")
			startSession(page)

			Consistently(page.HasOverlay, 100*time.Millisecond, 10*time.Millisecond).Should(BeFalse())
		})
	})

	Describe("dismissing with ignore", func() {
		It("records the event in the encrypted log", func() {
			page := fixtures.NewFakePage("https://reddit.com/r/all")
			session := startSession(page)

			Eventually(page.HasOverlay, time.Second, 5*time.Millisecond).Should(BeTrue())

			session.Overlay().DismissIgnore()

			Eventually(func() int {
				recent, err := events.Recent(10)
				if err != nil {
					return 0
				}
				return len(recent)
			}, time.Second, 5*time.Millisecond).Should(Equal(1))

			recent, err := events.Recent(10)
			Expect(err).NotTo(HaveOccurred())
			Expect(recent[0].URL).To(Equal("https://reddit.com/r/all"))
			Expect(recent[0].Message).NotTo(BeEmpty())
		})
	})

	Describe("pausing", func() {
		It("suppresses blocking until resumed", func() {
			Expect(settings.SetTemporaryDisabled(true)).To(Succeed())

			page := fixtures.NewFakePage("https://youtube.com/")
			startSession(page)

			Consistently(page.HasOverlay, 100*time.Millisecond, 10*time.Millisecond).Should(BeFalse())
		})
	})

	Describe("navigating away from a blocked site", func() {
		It("removes the overlay", func() {
			page := fixtures.NewFakePage("https://youtube.com/")
			startSession(page)

			Eventually(page.HasOverlay, time.Second, 5*time.Millisecond).Should(BeTrue())

			page.SetURL("https://golang.org/")

			Eventually(page.HasOverlay, time.Second, 5*time.Millisecond).Should(BeFalse())
		})
	})
})
