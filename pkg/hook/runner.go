package hook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"arhat.dev/pkg/log"

	"arhat.dev/linkhook/pkg/networkctl"
)

type (
	// Lister lists ordered scripts for a state
	Lister interface {
		List(state string) []string
	}

	StatusFunc    func(ctx context.Context, ifname string) *networkctl.Detail
	ESSIDFunc     func(ctx context.Context, ifname string) string
	AddressesFunc func(ifname string) ([]string, error)
	EnvFunc       func(ifname string) (map[string]string, error)
)

type Options struct {
	Scripts Lister
	Status  StatusFunc

	// optional
	ESSID         ESSIDFunc
	LinkAddresses AddressesFunc
	WireGuard     EnvFunc
	ExtraEnv      map[string]string

	// Timeout per script, zero means wait forever
	Timeout time.Duration

	Stdout io.Writer
	Stderr io.Writer
}

// Report of one hook run
type Report struct {
	State   string
	Scripts []string
	Failed  []string
}

type Runner struct {
	scripts       Lister
	status        StatusFunc
	essid         ESSIDFunc
	linkAddresses AddressesFunc
	wireguard     EnvFunc
	extraEnv      map[string]string
	timeout       time.Duration

	stdout io.Writer
	stderr io.Writer

	logger log.Interface
}

func NewRunner(opts Options) (*Runner, error) {
	if opts.Scripts == nil {
		return nil, fmt.Errorf("no script lister provided")
	}

	if opts.Status == nil {
		return nil, fmt.Errorf("no status query provided")
	}

	r := &Runner{
		scripts:       opts.Scripts,
		status:        opts.Status,
		essid:         opts.ESSID,
		linkAddresses: opts.LinkAddresses,
		wireguard:     opts.WireGuard,
		extraEnv:      opts.ExtraEnv,
		timeout:       opts.Timeout,
		stdout:        opts.Stdout,
		stderr:        opts.Stderr,
		logger:        log.Log.WithName("hook"),
	}

	if r.stdout == nil {
		r.stdout = os.Stdout
	}

	if r.stderr == nil {
		r.stderr = os.Stderr
	}

	return r, nil
}

// RunHooksForState runs all scripts of state one after another, script
// failures are logged and recorded in the report but never returned
func (r *Runner) RunHooksForState(ctx context.Context, link networkctl.Link, state string) (*Report, error) {
	report := &Report{State: state}

	report.Scripts = r.scripts.List(state)
	if len(report.Scripts) == 0 {
		r.logger.D("ignoring notification, no triggers",
			log.String("iface", link.String()), log.String("state", state))
		return report, nil
	}

	env, err := r.BuildEnv(ctx, link, state)
	if err != nil {
		return report, err
	}

	envs := envList(env)
	for _, script := range report.Scripts {
		r.logger.D("running script",
			log.String("script", script), log.String("ifname", link.Name), log.String("state", state))

		err = r.runScript(ctx, script, envs)
		if err != nil {
			r.logger.I("script failed", log.String("script", script), log.Error(err))
			report.Failed = append(report.Failed, script)
		}
	}

	return report, nil
}

func (r *Runner) runScript(ctx context.Context, script string, env []string) error {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, script)
	cmd.Env = env
	cmd.Stdout = r.stdout
	cmd.Stderr = r.stderr

	err := cmd.Run()
	if err == nil {
		return nil
	}

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("failed to start script: %w", err)
	}

	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		if ctx.Err() != nil {
			return fmt.Errorf("killed after %v: %w", r.timeout, ctx.Err())
		}

		return fmt.Errorf("terminated by signal %v", ws.Signal())
	}

	return fmt.Errorf("exit status %d", exitErr.ExitCode())
}
