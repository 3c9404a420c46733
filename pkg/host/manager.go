package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"syscall"
	"time"

	"arhat.dev/pkg/log"
	prom "github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"arhat.dev/linkhook/pkg/bus"
	"arhat.dev/linkhook/pkg/conf"
	"arhat.dev/linkhook/pkg/constant"
	"arhat.dev/linkhook/pkg/dispatcher"
	"arhat.dev/linkhook/pkg/hook"
	"arhat.dev/linkhook/pkg/metrics"
	"arhat.dev/linkhook/pkg/networkctl"
	"arhat.dev/linkhook/pkg/scripts"
	"arhat.dev/linkhook/pkg/sdnotify"
	"arhat.dev/linkhook/pkg/sink"
	"arhat.dev/linkhook/pkg/util"
	"arhat.dev/linkhook/pkg/wireguard"
	"arhat.dev/linkhook/pkg/wireless"
)

const signalBuffer = 64

// SignalSource delivers link signals in bus order
type SignalSource interface {
	Listen(ctx context.Context, buffer int) (<-chan dispatcher.LinkSignal, error)
	Close() error
}

type Options struct {
	// optional, default to exec
	Runner   util.Runner
	LookPath util.LookPathFunc

	// optional, default to the system bus
	Signals SignalSource
	// optional, default to root owned scripts only
	Scripts hook.Lister
}

// Manager wires link signals to hook scripts on this host
type Manager struct {
	ctx    context.Context
	logger log.Interface
	config *conf.AppConfig

	signals    SignalSource
	dispatcher *dispatcher.Dispatcher
	sinks      sink.Set

	metricsServer *http.Server
}

func NewManager(ctx context.Context, config *conf.Config, opts Options) (*Manager, error) {
	logger := log.Log.WithName("host")
	app := &config.Linkhook

	if opts.Runner == nil {
		opts.Runner = util.ExecRunner{}
	}

	if opts.LookPath == nil {
		opts.LookPath = exec.LookPath
	}

	networkctlPath := app.Networkctl
	if networkctlPath == "" {
		networkctlPath = constant.NetworkctlCommand
	}

	networkctlPath, err := opts.LookPath(networkctlPath)
	if err != nil {
		logger.E("networkctl not found", log.String("path", app.Networkctl), log.Error(err))
		sdnotify.Errno(syscall.ENOENT)
		return nil, fmt.Errorf("networkctl not found: %w", err)
	}

	extraEnv, err := hook.LoadEnvFile(app.HookEnvFile)
	if err != nil {
		return nil, err
	}

	if opts.Scripts == nil {
		opts.Scripts = scripts.NewLocator(app.ScriptDirs)
	}

	var (
		recorder      metrics.Recorder = metrics.NoopRecorder{}
		metricsServer *http.Server
	)
	if app.Metrics.Listen != "" {
		reg := prom.NewRegistry()
		recorder = metrics.NewPrometheusRecorder(reg)

		mux := http.NewServeMux()
		mux.Handle(app.Metrics.Path, metrics.HTTPHandler(reg))
		metricsServer = &http.Server{
			Addr:              app.Metrics.Listen,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	client := networkctl.NewClient(networkctlPath, opts.Runner)
	runner, err := hook.NewRunner(hook.Options{
		Scripts:       opts.Scripts,
		Status:        client.Status,
		ESSID:         wireless.NewResolver(opts.Runner, opts.LookPath).ESSID,
		LinkAddresses: util.GetLinkAddresses,
		WireGuard:     wireguard.DeviceEnv,
		ExtraEnv:      extraEnv,
		Timeout:       app.HookTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create hook runner: %w", err)
	}

	sinks, err := createSinks(ctx, config.Sinks)
	if err != nil {
		return nil, err
	}

	d, err := dispatcher.New(dispatcher.Options{
		List:    client.List,
		Hooks:   runner,
		Sinks:   sinks,
		Metrics: recorder,
	})
	if err != nil {
		_ = sinks.Close()
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}

	return &Manager{
		ctx:    ctx,
		logger: logger,
		config: app,

		signals:    opts.Signals,
		dispatcher: d,
		sinks:      sinks,

		metricsServer: metricsServer,
	}, nil
}

func createSinks(ctx context.Context, configs []conf.SinkConfig) (sink.Set, error) {
	var sinks sink.Set
	for i, c := range configs {
		s, err := sink.NewSink(ctx, c.Driver, c.Config)
		if err != nil {
			return nil, multierr.Append(
				fmt.Errorf("failed to create sink #%d (%s): %w", i, c.Driver, err),
				sinks.Close(),
			)
		}

		sinks = append(sinks, s)
	}

	return sinks, nil
}

func (m *Manager) Dispatcher() *dispatcher.Dispatcher {
	return m.dispatcher
}

// Start subscribes to link signals and dispatches them until the manager
// context is done
func (m *Manager) Start() (err error) {
	defer func() {
		err = multierr.Append(err, m.sinks.Close())
	}()

	if m.signals == nil {
		m.signals, err = bus.ConnectSystemBus(m.ctx)
		if err != nil {
			return err
		}
	}
	defer func() {
		err = multierr.Append(err, m.signals.Close())
	}()

	// subscribe before the first scan so no transition is missed
	signals, err := m.signals.Listen(m.ctx, signalBuffer)
	if err != nil {
		return err
	}

	m.dispatcher.Scan(m.ctx)

	if m.config.RunStartupTriggers {
		m.logger.D("running startup triggers")
		if err2 := m.dispatcher.TriggerAll(m.ctx); err2 != nil {
			m.logger.I("startup triggers finished with errors", log.Error(err2))
		}
	}

	if m.metricsServer != nil {
		go m.serveMetrics()
		defer func() {
			_ = m.metricsServer.Close()
		}()
	}

	m.logger.D("startup complete")
	sdnotify.Ready()

	err = m.dispatcher.Run(m.ctx, signals)
	if errors.Is(err, context.Canceled) && m.ctx.Err() != nil {
		return nil
	}

	return err
}

func (m *Manager) serveMetrics() {
	m.logger.D("serving metrics", log.String("listen", m.metricsServer.Addr))

	err := m.metricsServer.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		m.logger.I("metrics server exited", log.Error(err))
	}
}
