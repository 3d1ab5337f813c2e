package daemon

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/eliteGoblin/focusd/shield_mon/internal/bridge"
	"github.com/eliteGoblin/focusd/shield_mon/internal/domain"
	"github.com/eliteGoblin/focusd/shield_mon/internal/infra"
	"github.com/eliteGoblin/focusd/shield_mon/internal/monitor"
	"github.com/eliteGoblin/focusd/shield_mon/internal/usecase"
)

// Host bundles the platform collaborators the shield runs against.
type Host struct {
	ProcessManager domain.ProcessManager
	Surface        domain.CoverSurface
	Navigator      domain.Navigator
	Presenter      domain.SelectionPresenter
}

// DesktopHost builds the process-table host adapters from cfg.
func DesktopHost(cfg infra.Config, logger *zap.Logger) Host {
	pm := infra.NewProcessManager()
	runner := infra.ExecRunner{}
	return Host{
		ProcessManager: pm,
		Surface:        infra.NewCommandSurface(runner, cfg.CoverCommand, logger),
		Navigator:      infra.NewProcessNavigator(pm, runner, cfg.HomeCommand, logger),
		Presenter:      infra.NewCommandSelectionPresenter(runner, cfg.SelectionCommand),
	}
}

// Assemble wires one shield from its configuration. kv stays owned by the
// caller and must outlive Run.
func Assemble(
	config ShieldConfig,
	cfg infra.Config,
	host Host,
	kv domain.KeyValueStore,
	registry domain.InstanceRegistry,
	logger *zap.Logger,
) (*Shield, error) {
	snapshots := infra.NewKVSnapshotStore(kv)
	store := usecase.NewBlockListStore(snapshots, logger.Named("store"))
	intercept := usecase.NewInterceptAction(host.Surface, host.Navigator, cfg.Notice, logger.Named("intercept"))
	engine := usecase.NewEnforcementEngine(store, intercept, logger.Named("engine"))

	opts := []bridge.Option{
		bridge.WithSnapshotStore(snapshots),
		bridge.WithSelectionPresenter(host.Presenter),
	}

	var source domain.ForegroundSource
	switch cfg.MonitorSource {
	case infra.MonitorSourceRelay:
		relay := monitor.NewRelay()
		source = relay
		opts = append(opts, bridge.WithForegroundReporter(relay))
	case infra.MonitorSourceProcess:
		source = infra.NewProcessForegroundSource(host.ProcessManager, cfg.ScanInterval, logger.Named("process"))
	default:
		return nil, fmt.Errorf("unknown monitor source %q", cfg.MonitorSource)
	}

	service := bridge.NewService(store, engine, logger.Named("bridge"), opts...)
	server := bridge.NewServer(service, logger.Named("bridge"))

	config.SocketPath = cfg.SocketPath
	if cfg.HeartbeatInterval > 0 {
		config.HeartbeatInterval = cfg.HeartbeatInterval
	}

	return NewShield(config, store, engine, intercept, source, registry, server, host.ProcessManager, logger), nil
}
