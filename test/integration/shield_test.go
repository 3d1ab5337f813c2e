//go:build integration

package integration

import (
	"context"
	"errors"
	"net"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/eliteGoblin/focusd/shield_mon/internal/bridge"
	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
	"github.com/eliteGoblin/focusd/shield_mon/internal/infra"
	"github.com/eliteGoblin/focusd/shield_mon/internal/monitor"
	"github.com/eliteGoblin/focusd/shield_mon/internal/usecase"
	"github.com/eliteGoblin/focusd/shield_mon/test/fixtures"
)

// harness runs one engine behind a bridge server on an in-memory listener,
// fed by a relay source.
type harness struct {
	surface *fixtures.FakeSurface
	nav     *fixtures.FakeNavigator
	kv      *fixtures.MemKV
	relay   *monitor.Relay
	engine  *usecase.EnforcementEngine
	store   *usecase.BlockListStore
	client  *bridge.Client

	server  *bridge.Server
	cancel  context.CancelFunc
	runDone chan error
}

func newHarness() *harness {
	logger := zap.NewNop()
	h := &harness{
		surface: fixtures.NewFakeSurface(),
		nav:     &fixtures.FakeNavigator{},
		kv:      fixtures.NewMemKV(),
		relay:   monitor.NewRelay(),
		runDone: make(chan error, 1),
	}

	snapshots := infra.NewKVSnapshotStore(h.kv)
	h.store = usecase.NewBlockListStore(snapshots, logger)
	intercept := usecase.NewInterceptAction(h.surface, h.nav, "", logger)
	h.engine = usecase.NewEnforcementEngine(h.store, intercept, logger)

	service := bridge.NewService(h.store, h.engine, logger,
		bridge.WithSnapshotStore(snapshots),
		bridge.WithSelectionPresenter(&fixtures.FakePresenter{Selection: `{"apps":["token-1"]}`}),
		bridge.WithForegroundReporter(h.relay),
	)
	h.server = bridge.NewServer(service, logger)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = h.server.Serve(lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	Expect(err).NotTo(HaveOccurred())
	h.client = bridge.NewClient(conn)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	session := monitor.Start(ctx, h.relay, logger)
	go func() { h.runDone <- h.engine.Run(ctx, session) }()
	Eventually(h.relay.Attached).Should(BeTrue())

	return h
}

func (h *harness) close() {
	h.cancel()
	_ = h.client.Close()
	h.server.Stop()
}

func (h *harness) report(id string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	Expect(h.client.ReportForeground(ctx, id, time.Now())).To(Succeed())
}

func (h *harness) status() *domain.Status {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	status, err := h.client.QueryStatus(ctx)
	Expect(err).NotTo(HaveOccurred())
	return status
}

func (h *harness) activate(ids ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	warning, err := h.client.SetBlockList(ctx, ids)
	Expect(err).NotTo(HaveOccurred())
	Expect(warning).To(BeNil())
	active, err := h.client.SetShieldActive(ctx, true)
	Expect(err).NotTo(HaveOccurred())
	Expect(active).To(BeTrue())
}

var _ = Describe("Shield engine over the bridge", func() {
	var h *harness

	BeforeEach(func() {
		h = newHarness()
	})

	AfterEach(func() {
		h.close()
	})

	Describe("blocking a foreground target", func() {
		Context("when the target is on the block list and the shield is on", func() {
			BeforeEach(func() {
				h.activate("com.app.games")
			})

			It("covers the target and navigates away", func() {
				h.report("com.app.games")

				Eventually(h.surface.Covering).Should(Equal(domain.Identifier("com.app.games")))
				Eventually(h.nav.Calls).Should(HaveLen(1))
				Expect(h.surface.Notice()).To(Equal(usecase.DefaultNotice))
				Expect(h.nav.Calls()).To(Equal([]domain.Identifier{"com.app.games"}))

				status := h.status()
				Expect(status.Intercept.SurfaceActive).To(BeTrue())
				Expect(status.Intercept.BlockedIdentifier).To(Equal(domain.Identifier("com.app.games")))
				Expect(status.Health).To(Equal(domain.HealthOK))
			})

			It("leaves the surface up when a non-target comes to the foreground", func() {
				h.report("com.app.games")
				h.report("com.app.mail")

				Eventually(func() uint64 { return h.status().Events }).Should(BeNumerically("==", 2))
				Expect(h.surface.Covering()).To(Equal(domain.Identifier("com.app.games")))
				Expect(h.status().Intercept.BlockedIdentifier).To(Equal(domain.Identifier("com.app.games")))
			})

			It("tolerates duplicate delivery of the same transition", func() {
				for i := 0; i < 3; i++ {
					h.report("com.app.games")
				}

				Eventually(func() uint64 { return h.status().Events }).Should(BeNumerically("==", 3))
				Expect(h.surface.Shows()).To(Equal(1))
				Expect(h.surface.Covering()).To(Equal(domain.Identifier("com.app.games")))
			})

			It("keeps enforcing with navigation-away when the surface cannot be shown", func() {
				h.surface.FailWith(errors.New("window server refused"))

				h.report("com.app.games")

				Eventually(h.nav.Calls).Should(ContainElement(domain.Identifier("com.app.games")))
				Eventually(func() domain.Health { return h.status().Health }).Should(Equal(domain.HealthDegraded))
				status := h.status()
				Expect(status.Health).To(Equal(domain.HealthDegraded))
				Expect(status.Intercept.Degraded).To(BeTrue())
			})
		})

		Context("when the block list is empty", func() {
			It("stays idle", func() {
				h.activate()

				h.report("com.app.games")

				Eventually(func() uint64 { return h.status().Events }).Should(BeNumerically("==", 1))
				Expect(h.surface.Covering()).To(BeEmpty())
				Expect(h.nav.Calls()).To(BeEmpty())
				Expect(h.status().Intercept.SurfaceActive).To(BeFalse())
			})
		})

		Context("when the shield is off", func() {
			It("allows every target", func() {
				ctx := context.Background()
				_, err := h.client.SetBlockList(ctx, []string{"com.app.games"})
				Expect(err).NotTo(HaveOccurred())

				h.report("com.app.games")

				Eventually(func() uint64 { return h.status().Events }).Should(BeNumerically("==", 1))
				Expect(h.surface.Covering()).To(BeEmpty())
			})
		})
	})

	Describe("deactivating the shield", func() {
		It("clears an active surface before returning", func() {
			h.activate("com.app.games")
			h.report("com.app.games")
			Eventually(h.surface.Covering).ShouldNot(BeEmpty())

			active, err := h.client.SetShieldActive(context.Background(), false)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeFalse())

			Expect(h.surface.Covering()).To(BeEmpty())
			Expect(h.status().Intercept.SurfaceActive).To(BeFalse())
		})
	})

	Describe("persisting controller writes", func() {
		It("stores the block list and flag under the shared keys", func() {
			h.activate("com.app.games", "com.app.social")

			list, ok, err := h.kv.Get(infra.KeyActiveBlockList)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(list).To(MatchJSON(`{"blocked_package_names":["com.app.games","com.app.social"]}`))

			flag, ok, err := h.kv.Get(infra.KeyShieldActive)
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(flag).To(Equal("true"))
		})
	})

	Describe("selection UI", func() {
		It("returns the host's selection unmodified", func() {
			blob, err := h.client.RequestSelectionUI(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(blob).To(Equal(`{"apps":["token-1"]}`))
		})
	})

	Describe("losing foreground observation", func() {
		BeforeEach(func() {
			h.activate("com.app.games")
			h.report("com.app.games")
			Eventually(h.surface.Covering).ShouldNot(BeEmpty())
			h.relay.Revoke(errors.New("permission withdrawn"))
			Eventually(h.runDone).Should(Receive(MatchError(domain.ErrObservationUnavailable)))
		})

		It("reports unavailable health with a warning", func() {
			status := h.status()
			Expect(status.Health).To(Equal(domain.HealthUnavailable))
			Expect(status.Warnings).NotTo(BeEmpty())

			_, err := h.client.QueryShieldActive(context.Background())
			Expect(err).NotTo(HaveOccurred())
		})

		It("surfaces the failure to a host that keeps reporting", func() {
			err := h.client.ReportForeground(context.Background(), "com.app.games", time.Now())
			Expect(err).To(MatchError(domain.ErrObservationUnavailable))
		})

		It("fails closed", func() {
			Expect(h.status().ShieldActive).To(BeTrue())
			Expect(h.surface.Covering()).To(Equal(domain.Identifier("com.app.games")))
		})
	})
})
