//go:build integration

package integration

import (
	"context"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/eliteGoblin/netmon/internal/config"
	"github.com/eliteGoblin/netmon/internal/domain"
	"github.com/eliteGoblin/netmon/internal/infra"
	"github.com/eliteGoblin/netmon/internal/policy"
	"github.com/eliteGoblin/netmon/internal/usecase"
	"github.com/eliteGoblin/netmon/test/fixtures"
)

// browserTestsEnv enables tests that download and drive a real Chromium.
const browserTestsEnv = "NETMON_BROWSER_TESTS"

var _ = Describe("Real browser against a local portal", func() {
	var (
		server *fixtures.PortalServer
		portal domain.Portal
		logger *zap.Logger
	)

	BeforeEach(func() {
		if os.Getenv(browserTestsEnv) == "" {
			Skip("set " + browserTestsEnv + "=1 to run browser tests")
		}
		server = fixtures.NewPortalServer("20234227001", "secret")
		portal = policy.ToPortal(policy.NewSudaPolicy())
		logger = zap.NewNop()
	})

	AfterEach(func() {
		if server != nil {
			server.Close()
		}
	})

	DescribeTable("probe, log in, probe again",
		func(engine domain.Engine) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
			defer cancel()

			launcher, err := infra.NewBrowserLauncher(engine, infra.LauncherOptions{Logger: logger})
			Expect(err).NotTo(HaveOccurred())

			browser, err := launcher.Launch(ctx)
			Expect(err).NotTo(HaveOccurred())
			defer browser.Close()

			prober := usecase.NewProber(portal, logger)
			result, err := prober.Probe(ctx, browser, server.URL)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.LoggedIn).To(BeFalse())
			Expect(result.Message).To(Equal(usecase.MsgNotLoggedIn))

			actor := usecase.NewLoginActor(portal, logger)
			ok := actor.AttemptLogin(ctx, browser, config.Login{
				Account:  "20234227001",
				Password: "secret",
				Operator: "中国联通",
			})
			Expect(ok).To(BeTrue())

			Eventually(server.LoggedIn).WithTimeout(5 * time.Second).Should(BeTrue())
			Expect(server.Operator()).To(Equal("中国联通"))

			result, err = prober.Probe(ctx, browser, server.URL)
			Expect(err).NotTo(HaveOccurred())
			Expect(result.LoggedIn).To(BeTrue())
			Expect(result.Message).To(Equal(portal.SuccessPhrase))
		},
		Entry("playwright", domain.EnginePlaywright),
		Entry("chromedp", domain.EngineChromedp),
	)

	It("should read the portal's message after a rejected login", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		launcher, err := infra.NewBrowserLauncher(domain.EngineChromedp, infra.LauncherOptions{Logger: logger})
		Expect(err).NotTo(HaveOccurred())
		browser, err := launcher.Launch(ctx)
		Expect(err).NotTo(HaveOccurred())
		defer browser.Close()

		prober := usecase.NewProber(portal, logger)
		_, err = prober.Probe(ctx, browser, server.URL)
		Expect(err).NotTo(HaveOccurred())

		actor := usecase.NewLoginActor(portal, logger)
		Expect(actor.AttemptLogin(ctx, browser, config.Login{Account: "20234227001", Password: "wrong"})).To(BeTrue())

		Eventually(func() string {
			result, err := prober.Probe(ctx, browser, server.URL)
			Expect(err).NotTo(HaveOccurred())
			return result.Message
		}).WithTimeout(10 * time.Second).Should(Equal(fixtures.MsgBadCredentials))
		Expect(server.LoggedIn()).To(BeFalse())
	})

	It("should classify an unreachable gateway as logged out", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()

		launcher, err := infra.NewBrowserLauncher(domain.EngineChromedp, infra.LauncherOptions{Logger: logger})
		Expect(err).NotTo(HaveOccurred())
		browser, err := launcher.Launch(ctx)
		Expect(err).NotTo(HaveOccurred())
		defer browser.Close()

		result, err := usecase.NewProber(portal, logger).Probe(ctx, browser, "http://127.0.0.1:1/")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.LoggedIn).To(BeFalse())
		Expect(result.Message).To(Equal(usecase.MsgNotLoggedIn))
	})
})
