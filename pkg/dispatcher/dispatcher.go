package dispatcher

import (
	"context"
	"errors"
	"fmt"

	"arhat.dev/pkg/log"
	"go.uber.org/multierr"

	"arhat.dev/linkhook/pkg/constant"
	"arhat.dev/linkhook/pkg/hook"
	"arhat.dev/linkhook/pkg/metrics"
	"arhat.dev/linkhook/pkg/networkctl"
	"arhat.dev/linkhook/pkg/sink"
)

var (
	ErrUnknownInterface = errors.New("unknown interface")
	ErrSignalsClosed    = errors.New("signal channel closed")
)

type (
	ListFunc func(ctx context.Context) []networkctl.Link

	// HookRunner runs hook scripts for a link entering state
	HookRunner interface {
		RunHooksForState(ctx context.Context, link networkctl.Link, state string) (*hook.Report, error)
	}
)

type Options struct {
	List  ListFunc
	Hooks HookRunner

	// optional
	Sinks   sink.Set
	Metrics metrics.Recorder
}

// Dispatcher tracks link states and runs hooks on transitions
type Dispatcher struct {
	logger log.Interface

	list    ListFunc
	hooks   HookRunner
	sinks   sink.Set
	metrics metrics.Recorder

	registry *Registry
}

func New(opts Options) (*Dispatcher, error) {
	if opts.List == nil {
		return nil, fmt.Errorf("no link list func provided")
	}

	if opts.Hooks == nil {
		return nil, fmt.Errorf("no hook runner provided")
	}

	d := &Dispatcher{
		logger:   log.Log.WithName("dispatcher"),
		list:     opts.List,
		hooks:    opts.Hooks,
		sinks:    opts.Sinks,
		metrics:  opts.Metrics,
		registry: NewRegistry(),
	}

	if d.metrics == nil {
		d.metrics = metrics.NoopRecorder{}
	}

	return d, nil
}

// Scan replaces the registry with the current link list
func (d *Dispatcher) Scan(ctx context.Context) {
	d.registry.Replace(d.list(ctx))
	d.metrics.SetInterfaces(d.registry.Len())

	d.logger.D("performed interface scan", log.Any("state", d.registry.Snapshot()))
}

func (d *Dispatcher) Snapshot() []networkctl.Link {
	return d.registry.Snapshot()
}

// Run handles signals one at a time until ctx is canceled or signals is closed
func (d *Dispatcher) Run(ctx context.Context, signals <-chan LinkSignal) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sig, more := <-signals:
			if !more {
				return ErrSignalsClosed
			}

			d.HandleSignal(ctx, sig)
		}
	}
}

// HandleSignal resolves the link a signal refers to and handles its new states
func (d *Dispatcher) HandleSignal(ctx context.Context, sig LinkSignal) {
	change, err := DecodeSignal(sig)
	if err != nil {
		d.logger.I("ignoring signal", log.String("path", sig.Path), log.Error(err))
		d.metrics.IncSignalDropped("malformed")
		return
	}

	name, ok := d.registry.NameOf(change.Index)
	if !ok {
		d.logger.D("unknown interface index, rescanning", log.Any("index", change.Index))
		d.metrics.IncRescan()
		d.Scan(ctx)

		name, ok = d.registry.NameOf(change.Index)
		if !ok {
			d.logger.E("unknown interface index, dropping signal",
				log.Any("index", change.Index), log.Any("state", d.registry.Snapshot()))
			d.metrics.IncSignalDropped("unknown_index")
			return
		}
	}

	if change.HasAdministrative && change.Administrative == constant.AdministrativeStateLinger {
		d.logger.D("removing interface", log.String("ifname", name), log.Any("index", change.Index))
		d.registry.Remove(name)
		d.metrics.SetInterfaces(d.registry.Len())
		return
	}

	_ = d.Handle(ctx, name, change, false)
}

// Handle applies the administrative state then the operational state of
// change to the link called name, every failing axis is logged
func (d *Dispatcher) Handle(ctx context.Context, name string, change Change, force bool) error {
	var err error
	for _, s := range change.states() {
		err2 := d.handleOneAxis(ctx, name, s.axis, s.state, force)
		if err2 == nil {
			continue
		}

		// already logged
		if !errors.Is(err2, ErrUnknownInterface) {
			d.logger.E("error handling interface state change",
				log.String("ifname", name), log.String("axis", string(s.axis)),
				log.String("state", s.state), log.Error(err2))
		}

		err = multierr.Append(err, err2)
	}

	return err
}

// TriggerAll replays the current state of every known link through hooks,
// one error is logged per failing link
func (d *Dispatcher) TriggerAll(ctx context.Context) error {
	var err error
	for _, l := range d.registry.Snapshot() {
		var linkErr error
		for _, s := range (Change{
			Administrative:    l.Administrative,
			HasAdministrative: true,
			Operational:       l.Operational,
			HasOperational:    true,
		}).states() {
			linkErr = multierr.Append(linkErr, d.handleOneAxis(ctx, l.Name, s.axis, s.state, true))
		}

		if linkErr != nil {
			d.logger.E("error handling initial state for interface",
				log.String("ifname", l.Name), log.Error(linkErr))
			err = multierr.Append(err, fmt.Errorf("%s: %w", l.Name, linkErr))
		}
	}

	return err
}

func (d *Dispatcher) handleOneAxis(
	ctx context.Context, name string, axis Axis, state string, force bool,
) (err error) {
	link, ok := d.registry.Get(name)
	if !ok {
		d.logger.E("unknown interface", log.String("ifname", name),
			log.String("axis", string(axis)), log.String("state", state))
		return fmt.Errorf("%w %q", ErrUnknownInterface, name)
	}

	current := link.Operational
	if axis == AxisAdministrative {
		current = link.Administrative
	}

	if current == state && !force {
		d.logger.D("no change", log.String("ifname", name),
			log.String("axis", string(axis)), log.String("state", state))
		return nil
	}

	if axis == AxisAdministrative {
		link.Administrative = state
	} else {
		link.Operational = state
	}
	d.metrics.IncTransition(string(axis))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("hook runner panic: %v", r)
		}

		if err != nil {
			d.metrics.IncHandleError()
			err = fmt.Errorf("%s %s: %w", axis, state, err)
		}
	}()

	d.logger.V("running hooks", log.String("iface", link.String()),
		log.String("axis", string(axis)), log.String("state", state))

	d.metrics.IncHookRun(state)
	report, err := d.hooks.RunHooksForState(ctx, *link, state)
	if report != nil {
		d.metrics.AddScriptFailures(len(report.Failed))
	}

	d.publish(*link, axis, state, report)

	return err
}

func (d *Dispatcher) publish(link networkctl.Link, axis Axis, state string, report *hook.Report) {
	if len(d.sinks) == 0 {
		return
	}

	ev := sink.NewEvent()
	ev.Interface = link.Name
	ev.Index = link.Index
	ev.Type = link.Type
	ev.Axis = string(axis)
	ev.State = state
	ev.Administrative = link.Administrative
	ev.Operational = link.Operational
	if report != nil {
		ev.Scripts = report.Scripts
		ev.Failed = report.Failed
	}

	if err := d.sinks.Publish(ev); err != nil {
		d.logger.I("failed to publish transition event", log.String("ifname", link.Name), log.Error(err))
	}
}
