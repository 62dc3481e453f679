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

	"github.com/eliteGoblin/netmon/internal/config"
	"github.com/eliteGoblin/netmon/internal/daemon"
	"github.com/eliteGoblin/netmon/internal/domain"
	"github.com/eliteGoblin/netmon/internal/infra"
	"github.com/eliteGoblin/netmon/internal/policy"
	"github.com/eliteGoblin/netmon/test/fixtures"
)

func fastTimings() daemon.Config {
	cfg := daemon.DefaultConfig()
	cfg.Interval = 50 * time.Millisecond
	cfg.OperatorSettle = time.Millisecond
	cfg.FieldPause = time.Millisecond
	cfg.PostLogin = 10 * time.Millisecond
	cfg.Tick = 10 * time.Millisecond
	cfg.ErrorBackoff = 20 * time.Millisecond
	return cfg
}

var _ = Describe("Keeper", func() {
	var (
		tmpDir     string
		configPath string
		portal     domain.Portal
		fake       *fixtures.FakePortal
		launcher   *fixtures.FakeLauncher
		history    *infra.EncryptedHistory
		recorder   *daemon.Recorder
		queue      *daemon.StatusQueue
		keeper     *daemon.Keeper
		ctx        context.Context
		cancel     context.CancelFunc
		received   chan string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "netmon-integration-*")
		Expect(err).NotTo(HaveOccurred())

		configPath = filepath.Join(tmpDir, config.DefaultFileName)
		err = os.WriteFile(configPath, []byte(`{
  "login": {"account": "20234227001", "password": "secret", "operator": "中国移动", "operator_index": 2},
  "daemon": {"host": "http://10.9.1.3/", "frequencies": 10}
}`), 0o600)
		Expect(err).NotTo(HaveOccurred())

		p, err := policy.NewPortalStore().GetByID(policy.DefaultPortalID)
		Expect(err).NotTo(HaveOccurred())
		portal = *p

		fake = fixtures.NewFakePortal(portal)
		fake.Operators = config.Operators
		fake.ExpectAccount = "20234227001"
		fake.ExpectPassword = "secret"
		launcher = &fixtures.FakeLauncher{Browser: fake}

		history, err = infra.OpenHistory(tmpDir)
		Expect(err).NotTo(HaveOccurred())
		recorder = daemon.NewRecorder(history, daemon.DefaultHistoryKeep, zap.NewNop())

		queue = daemon.NewStatusQueue(daemon.DefaultQueueSize)
		received = make(chan string, 256)
		ctx, cancel = context.WithCancel(context.Background())

		// Shell side: drain, persist, forward
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case ev := <-queue.C():
					recorder.Record(ev)
					received <- ev.Message
				}
			}
		}()
	})

	AfterEach(func() {
		if keeper != nil {
			keeper.Stop()
			keeper.Wait(time.Second)
			keeper = nil
		}
		cancel()
		history.Close()
		os.RemoveAll(tmpDir)
	})

	startKeeper := func() {
		settings, err := config.Load(configPath)
		Expect(err).NotTo(HaveOccurred())
		ok, msg := config.Validate(settings)
		Expect(ok).To(BeTrue(), msg)

		keeper = daemon.NewKeeper(fastTimings(), settings, portal, launcher, queue.Sink(), zap.NewNop())
		Expect(keeper.Start(context.Background())).To(Succeed())
	}

	Describe("logging in", func() {
		Context("when the gateway session is logged out", func() {
			It("should log in and report success", func() {
				startKeeper()

				Eventually(received).Should(Receive(Equal(daemon.MsgInitializing)))
				Eventually(received).Should(Receive(Equal(daemon.MsgInitDone)))
				Eventually(received).Should(Receive(ContainSubstring("状态：未登录，尝试登录。 尝试登录...")))
				Eventually(received).Should(Receive(HavePrefix("已成功登录。[")))

				Expect(fake.LoggedIn()).To(BeTrue())
				Expect(fake.Selected()).To(Equal("中国移动"))
				Expect(keeper.State()).To(Equal(domain.StateRunning))
			})

			It("should persist status messages to the encrypted history", func() {
				startKeeper()
				Eventually(received).Should(Receive(HavePrefix("已成功登录。[")))

				Eventually(func() ([]domain.StatusEvent, error) {
					return history.Recent(10)
				}).Should(ContainElement(HaveField("Message", daemon.MsgInitDone)))

				raw, err := os.ReadFile(history.Path())
				Expect(err).NotTo(HaveOccurred())
				Expect(string(raw)).NotTo(ContainSubstring("SQLite format 3"))
			})
		})

		Context("when the session drops later", func() {
			It("should log in again on the next cycle", func() {
				startKeeper()
				Eventually(fake.LoggedIn).Should(BeTrue())
				Expect(fake.Submissions()).To(Equal(1))

				fake.SetLoggedIn(false)

				Eventually(fake.Submissions).Should(Equal(2))
				Eventually(fake.LoggedIn).Should(BeTrue())
			})
		})

		Context("when the credentials are wrong", func() {
			It("should keep trying and surface the portal message", func() {
				fake.ExpectPassword = "other"
				startKeeper()

				Eventually(received).Should(Receive(HavePrefix("尝试登录后仍未登录。[")))
				Eventually(received).Should(Receive(ContainSubstring(fixtures.MsgBadCredentials)))
				Expect(fake.LoggedIn()).To(BeFalse())
			})
		})
	})

	Describe("failures", func() {
		Context("when the gateway cannot be reached", func() {
			It("should treat it as logged out, attempt a login and re-probe", func() {
				fake.NavigateErrs = 1000
				startKeeper()

				var seen []string
				Eventually(func() string {
					select {
					case msg := <-received:
						seen = append(seen, msg)
						return msg
					default:
						return ""
					}
				}).Should(HavePrefix("尝试登录后仍未登录。["))

				Expect(seen).To(ContainElement(And(
					HavePrefix("["),
					HaveSuffix("] 状态：未登录，尝试登录。 尝试登录..."),
				)))
				Expect(seen).NotTo(ContainElement(daemon.MsgLoopError))
				Expect(fake.Submissions()).To(BeZero())
			})

			It("should log in once the gateway is back", func() {
				fake.NavigateErrs = 2
				startKeeper()

				Eventually(received).Should(Receive(HavePrefix("尝试登录后仍未登录。[")))
				Eventually(fake.LoggedIn).Should(BeTrue())
				Expect(keeper.Alive()).To(BeTrue())
			})
		})

		It("should back off after a crashed cycle and recover", func() {
			fake.PanicOnNavigate = true
			startKeeper()

			Eventually(received).Should(Receive(Equal(daemon.MsgLoopError)))
			Eventually(fake.LoggedIn).Should(BeTrue())
			Expect(keeper.Alive()).To(BeTrue())
		})

		It("should end in Failed when the browser cannot start", func() {
			launcher.Err = domain.ErrDriverMismatch
			startKeeper()

			Eventually(received).Should(Receive(Equal(daemon.MsgInitFailed)))
			Expect(keeper.Wait(time.Second)).To(BeTrue())
			Expect(keeper.State()).To(Equal(domain.StateFailed))
		})
	})

	Describe("stopping", func() {
		It("should stop within the bounded wait and release the browser", func() {
			startKeeper()
			Eventually(fake.LoggedIn).Should(BeTrue())

			keeper.Stop()
			Expect(keeper.Wait(time.Second)).To(BeTrue())
			Expect(keeper.State()).To(Equal(domain.StateStopped))
			Expect(fake.Closed()).To(BeTrue())
		})
	})

	Describe("configuration round trip", func() {
		It("should drop legacy fields when saved back", func() {
			settings, err := config.Load(configPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(config.Save(settings, configPath)).To(Succeed())

			data, err := os.ReadFile(configPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(data)).NotTo(ContainSubstring("operator_index"))
			Expect(string(data)).To(ContainSubstring(`"operator": "中国移动"`))
		})
	})

	Describe("single instance", func() {
		It("should refuse a second holder", func() {
			pm := infra.NewProcessManager()
			first := infra.NewInstanceLock(tmpDir, pm)
			Expect(first.Acquire()).To(Succeed())
			defer first.Release()

			second := infra.NewInstanceLock(tmpDir, pm)
			err := second.Acquire()
			Expect(err).To(MatchError(domain.ErrAlreadyRunning))
			Expect(second.HolderPID()).To(Equal(os.Getpid()))
		})
	})
})
