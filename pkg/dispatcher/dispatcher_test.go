package dispatcher

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arhat.dev/linkhook/pkg/constant"
	"arhat.dev/linkhook/pkg/hook"
	"arhat.dev/linkhook/pkg/networkctl"
	"arhat.dev/linkhook/pkg/sink"
)

type hookCall struct {
	link  networkctl.Link
	state string
}

type fakeHooks struct {
	calls []hookCall
	fail  map[string]error
	panic map[string]bool
}

func (f *fakeHooks) RunHooksForState(_ context.Context, link networkctl.Link, state string) (*hook.Report, error) {
	f.calls = append(f.calls, hookCall{link: link, state: state})

	if f.panic[link.Name] {
		panic("hook exploded")
	}

	return &hook.Report{State: state, Scripts: []string{"/etc/networkd-dispatcher/" + state + ".d/50-test"}}, f.fail[link.Name]
}

type fakeSink struct {
	events []*sink.Event
}

func (s *fakeSink) Name() string { return "fake" }
func (s *fakeSink) Publish(ev *sink.Event) error {
	s.events = append(s.events, ev)
	return nil
}
func (s *fakeSink) Close() error { return nil }

type fakeRecorder struct {
	transitions    map[string]int
	hookRuns       map[string]int
	scriptFailures int
	handleErrors   int
	rescans        int
	signalsDropped map[string]int
	interfaces     int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{
		transitions:    map[string]int{},
		hookRuns:       map[string]int{},
		signalsDropped: map[string]int{},
	}
}

func (r *fakeRecorder) IncTransition(axis string)      { r.transitions[axis]++ }
func (r *fakeRecorder) IncHookRun(state string)        { r.hookRuns[state]++ }
func (r *fakeRecorder) AddScriptFailures(n int)        { r.scriptFailures += n }
func (r *fakeRecorder) IncHandleError()                { r.handleErrors++ }
func (r *fakeRecorder) IncRescan()                     { r.rescans++ }
func (r *fakeRecorder) IncSignalDropped(reason string) { r.signalsDropped[reason]++ }
func (r *fakeRecorder) SetInterfaces(n int)            { r.interfaces = n }

type fakeList struct {
	links [][]networkctl.Link
	calls int
}

func (l *fakeList) List(context.Context) []networkctl.Link {
	idx := l.calls
	if idx >= len(l.links) {
		idx = len(l.links) - 1
	}
	l.calls++

	ret := make([]networkctl.Link, len(l.links[idx]))
	copy(ret, l.links[idx])
	return ret
}

var testLinks = []networkctl.Link{
	{Index: 1, Name: "lo", Type: "loopback", Operational: "carrier", Administrative: "unmanaged"},
	{Index: 2, Name: "wlp2s0", Type: "wlan", Operational: "routable", Administrative: "configured"},
	{Index: 3, Name: "eth0", Type: "ether", Operational: "no-carrier", Administrative: "configuring"},
}

type testEnv struct {
	d     *Dispatcher
	hooks *fakeHooks
	list  *fakeList
	sink  *fakeSink
	rec   *fakeRecorder
}

func newTestEnv(t *testing.T, lists ...[]networkctl.Link) *testEnv {
	if len(lists) == 0 {
		lists = [][]networkctl.Link{testLinks}
	}

	env := &testEnv{
		hooks: &fakeHooks{fail: map[string]error{}, panic: map[string]bool{}},
		list:  &fakeList{links: lists},
		sink:  &fakeSink{},
		rec:   newFakeRecorder(),
	}

	var err error
	env.d, err = New(Options{
		List:    env.list.List,
		Hooks:   env.hooks,
		Sinks:   sink.Set{env.sink},
		Metrics: env.rec,
	})
	require.NoError(t, err)

	env.d.Scan(context.TODO())
	return env
}

func linkPath(index int) string {
	label := fmt.Sprintf("%d", index)
	return constant.NetworkdLinkPathPrefix + "/" + fmt.Sprintf("_%x", label[0]) + label[1:]
}

func TestNew(t *testing.T) {
	_, err := New(Options{Hooks: &fakeHooks{}})
	assert.Error(t, err)

	_, err = New(Options{List: (&fakeList{}).List})
	assert.Error(t, err)
}

func TestHandleOneAxis_NoChange(t *testing.T) {
	env := newTestEnv(t)

	for _, l := range testLinks {
		assert.NoError(t, env.d.handleOneAxis(context.TODO(), l.Name, AxisOperational, l.Operational, false))
		assert.NoError(t, env.d.handleOneAxis(context.TODO(), l.Name, AxisAdministrative, l.Administrative, false))
	}

	assert.Empty(t, env.hooks.calls)
	assert.Empty(t, env.sink.events)
	assert.Equal(t, testLinks, env.d.Snapshot())
}

func TestHandleOneAxis_UnknownInterface(t *testing.T) {
	env := newTestEnv(t)
	logger := newRecordingLogger()
	env.d.logger = logger

	err := env.d.handleOneAxis(context.TODO(), "nonexistent", AxisOperational, "routable", false)
	assert.ErrorIs(t, err, ErrUnknownInterface)

	err = env.d.handleOneAxis(context.TODO(), "nonexistent", AxisAdministrative, "configured", true)
	assert.ErrorIs(t, err, ErrUnknownInterface)

	err = env.d.Handle(context.TODO(), "nonexistent", Change{Operational: "off", HasOperational: true}, false)
	assert.ErrorIs(t, err, ErrUnknownInterface)

	assert.Equal(t, []string{"unknown interface", "unknown interface", "unknown interface"}, logger.messages("E"))
	assert.Empty(t, env.hooks.calls)
	assert.Equal(t, testLinks, env.d.Snapshot())
}

func TestHandle_LogsEachFailingAxis(t *testing.T) {
	env := newTestEnv(t)
	logger := newRecordingLogger()
	env.d.logger = logger
	env.hooks.fail["eth0"] = fmt.Errorf("boom")

	err := env.d.Handle(context.TODO(), "eth0", Change{
		Administrative:    "configured",
		HasAdministrative: true,
		Operational:       "routable",
		HasOperational:    true,
	}, false)
	assert.Error(t, err)

	assert.Equal(t, []string{
		"error handling interface state change",
		"error handling interface state change",
	}, logger.messages("E"))
	assert.Equal(t, 2, env.rec.handleErrors)

	// the registry is updated even though hooks failed
	l, _ := env.d.registry.Get("eth0")
	assert.Equal(t, "routable", l.Operational)
	assert.Equal(t, "configured", l.Administrative)
}

func TestHandleSignal_OperationalTransition(t *testing.T) {
	env := newTestEnv(t)

	env.d.HandleSignal(context.TODO(), LinkSignal{
		Interface: constant.NetworkdLinkInterface,
		Path:      linkPath(2),
		Changed:   map[string]string{constant.PropertyOperationalState: "dormant"},
	})

	require.Len(t, env.hooks.calls, 1)
	assert.Equal(t, "dormant", env.hooks.calls[0].state)
	assert.Equal(t, "wlp2s0", env.hooks.calls[0].link.Name)
	assert.Equal(t, "dormant", env.hooks.calls[0].link.Operational)

	l, ok := env.d.registry.Get("wlp2s0")
	require.True(t, ok)
	assert.Equal(t, "dormant", l.Operational)
	assert.Equal(t, "configured", l.Administrative)

	require.Len(t, env.sink.events, 1)
	ev := env.sink.events[0]
	assert.Equal(t, "wlp2s0", ev.Interface)
	assert.Equal(t, 2, ev.Index)
	assert.Equal(t, string(AxisOperational), ev.Axis)
	assert.Equal(t, "dormant", ev.State)
	assert.Len(t, ev.Scripts, 1)
	assert.NotEmpty(t, ev.ID)

	assert.Equal(t, 1, env.rec.transitions[string(AxisOperational)])
	assert.Equal(t, 1, env.rec.hookRuns["dormant"])

	// same signal again is a no-op
	env.d.HandleSignal(context.TODO(), LinkSignal{
		Interface: constant.NetworkdLinkInterface,
		Path:      linkPath(2),
		Changed:   map[string]string{constant.PropertyOperationalState: "dormant"},
	})
	assert.Len(t, env.hooks.calls, 1)
}

func TestHandleSignal_BothAxesInOrder(t *testing.T) {
	env := newTestEnv(t)

	env.d.HandleSignal(context.TODO(), LinkSignal{
		Interface: constant.NetworkdLinkInterface,
		Path:      linkPath(3),
		Changed: map[string]string{
			constant.PropertyOperationalState:    "routable",
			constant.PropertyAdministrativeState: "configured",
		},
	})

	require.Len(t, env.hooks.calls, 2)
	assert.Equal(t, "configured", env.hooks.calls[0].state)
	assert.Equal(t, "no-carrier", env.hooks.calls[0].link.Operational)
	assert.Equal(t, "routable", env.hooks.calls[1].state)
	assert.Equal(t, "configured", env.hooks.calls[1].link.Administrative)
}

func TestHandleSignal_Malformed(t *testing.T) {
	env := newTestEnv(t)

	for _, sig := range []LinkSignal{
		{Interface: "org.freedesktop.network1.Manager", Path: linkPath(2),
			Changed: map[string]string{constant.PropertyOperationalState: "off"}},
		{Interface: constant.NetworkdLinkInterface, Path: "/org/freedesktop/network1/network/_32",
			Changed: map[string]string{constant.PropertyOperationalState: "off"}},
		{Interface: constant.NetworkdLinkInterface, Path: constant.NetworkdLinkPathPrefix + "/_3",
			Changed: map[string]string{constant.PropertyOperationalState: "off"}},
	} {
		env.d.HandleSignal(context.TODO(), sig)
	}

	assert.Empty(t, env.hooks.calls)
	assert.Equal(t, 3, env.rec.signalsDropped["malformed"])
}

func TestHandleSignal_UnknownIndexRescan(t *testing.T) {
	added := append(append([]networkctl.Link{}, testLinks...),
		networkctl.Link{Index: 12, Name: "wg0", Type: "wireguard", Operational: "off", Administrative: "configuring"})

	env := newTestEnv(t, testLinks, added)

	env.d.HandleSignal(context.TODO(), LinkSignal{
		Interface: constant.NetworkdLinkInterface,
		Path:      constant.NetworkdLinkPathPrefix + "/_312",
		Changed:   map[string]string{constant.PropertyOperationalState: "routable"},
	})

	assert.Equal(t, 2, env.list.calls)
	require.Len(t, env.hooks.calls, 1)
	assert.Equal(t, "wg0", env.hooks.calls[0].link.Name)
	assert.Equal(t, 1, env.rec.rescans)
	assert.Equal(t, 4, env.rec.interfaces)
}

func TestHandleSignal_UnknownIndexDropped(t *testing.T) {
	env := newTestEnv(t)

	env.d.HandleSignal(context.TODO(), LinkSignal{
		Interface: constant.NetworkdLinkInterface,
		Path:      linkPath(9),
		Changed:   map[string]string{constant.PropertyOperationalState: "routable"},
	})

	// exactly one rescan
	assert.Equal(t, 2, env.list.calls)
	assert.Empty(t, env.hooks.calls)
	assert.Equal(t, 1, env.rec.signalsDropped["unknown_index"])
}

func TestHandleSignal_Linger(t *testing.T) {
	env := newTestEnv(t)

	env.d.HandleSignal(context.TODO(), LinkSignal{
		Interface: constant.NetworkdLinkInterface,
		Path:      linkPath(3),
		Changed: map[string]string{
			constant.PropertyAdministrativeState: constant.AdministrativeStateLinger,
			constant.PropertyOperationalState:    "off",
		},
	})

	assert.Empty(t, env.hooks.calls)
	_, ok := env.d.registry.Get("eth0")
	assert.False(t, ok)
	_, ok = env.d.registry.NameOf(3)
	assert.False(t, ok)
	assert.Len(t, env.d.Snapshot(), 2)
	assert.Equal(t, 2, env.rec.interfaces)
}

func TestTriggerAll_ContinuesOnFailure(t *testing.T) {
	env := newTestEnv(t)
	logger := newRecordingLogger()
	env.d.logger = logger
	env.hooks.panic["lo"] = true
	env.hooks.fail["eth0"] = fmt.Errorf("boom")

	err := env.d.TriggerAll(context.TODO())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "lo")
	assert.Contains(t, err.Error(), "eth0")
	assert.NotContains(t, err.Error(), "wlp2s0")

	// both axes of all three links, forced even though unchanged
	require.Len(t, env.hooks.calls, 6)
	var names []string
	for _, c := range env.hooks.calls {
		names = append(names, c.link.Name)
	}
	assert.Equal(t, []string{"lo", "lo", "wlp2s0", "wlp2s0", "eth0", "eth0"}, names)
	assert.Equal(t, "unmanaged", env.hooks.calls[0].state)
	assert.Equal(t, "carrier", env.hooks.calls[1].state)

	assert.Equal(t, 4, env.rec.handleErrors)
	assert.Equal(t, testLinks, env.d.Snapshot())

	// one error record per failing link
	assert.Equal(t, []string{
		"error handling initial state for interface",
		"error handling initial state for interface",
	}, logger.messages("E"))
}

func TestRun(t *testing.T) {
	env := newTestEnv(t)

	signals := make(chan LinkSignal, 2)
	signals <- LinkSignal{
		Interface: constant.NetworkdLinkInterface,
		Path:      linkPath(2),
		Changed:   map[string]string{constant.PropertyOperationalState: "off"},
	}
	signals <- LinkSignal{
		Interface: constant.NetworkdLinkInterface,
		Path:      linkPath(2),
		Changed:   map[string]string{constant.PropertyOperationalState: "routable"},
	}
	close(signals)

	assert.ErrorIs(t, env.d.Run(context.TODO(), signals), ErrSignalsClosed)
	require.Len(t, env.hooks.calls, 2)
	assert.Equal(t, "off", env.hooks.calls[0].state)
	assert.Equal(t, "routable", env.hooks.calls[1].state)

	ctx, cancel := context.WithCancel(context.TODO())
	cancel()
	assert.ErrorIs(t, env.d.Run(ctx, make(chan LinkSignal)), context.Canceled)
}
