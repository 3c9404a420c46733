package conf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"arhat.dev/pkg/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"arhat.dev/linkhook/pkg/constant"
	"arhat.dev/linkhook/pkg/scripts"
)

// CLI holds command line options, explicitly set flags override the
// config file
type CLI struct {
	ConfigFile         string
	ScriptDirs         string
	RunStartupTriggers bool
	HookTimeout        time.Duration
	MetricsListen      string

	Verbose int
	Quiet   int

	Log log.Config
}

func (c *CLI) Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("linkhook", pflag.ExitOnError)

	// config file
	fs.StringVarP(&c.ConfigFile, "config", "c", constant.DefaultConfigFile, "path to the linkhook config file")
	// script search path
	fs.StringVarP(&c.ScriptDirs, "script-dir", "S", "",
		"colon separated script search path (default \"/etc/networkd-dispatcher:/usr/lib/networkd-dispatcher\")")
	fs.BoolVarP(&c.RunStartupTriggers, "run-startup-triggers", "T", false,
		"generate events reflecting preexisting state and behavior on startup")
	fs.DurationVar(&c.HookTimeout, "hook-timeout", constant.DefaultHookTimeout,
		"kill hook scripts running longer than this, 0 to wait forever")
	fs.StringVar(&c.MetricsListen, "metrics.listen", "", "serve prometheus metrics on this address")

	// verbosity
	fs.CountVarP(&c.Verbose, "verbose", "v", "increase verbosity level")
	fs.CountVarP(&c.Quiet, "quiet", "q", "decrease verbosity level")

	// log config options
	fs.AddFlagSet(log.FlagsForLogConfig("log.", &c.Log))

	return fs
}

// LevelFromVerbosity maps -q/-v counts to a log level name
func LevelFromVerbosity(verbose, quiet int) string {
	switch d := quiet - verbose; {
	case d <= -2:
		return "verbose"
	case d == -1:
		return "debug"
	case d == 0:
		return "info"
	case d == 1:
		return "error"
	default:
		return "silent"
	}
}

// Load reads the config file and applies explicitly set flags of flags
func Load(flags *pflag.FlagSet, cli *CLI, config *Config) error {
	visited := make(map[string]struct{})
	flags.Visit(func(f *pflag.Flag) {
		visited[f.Name] = struct{}{}
	})

	_, configFileSet := visited["config"]
	configBytes, err := os.ReadFile(cli.ConfigFile)
	switch {
	case err == nil:
		dec := yaml.NewDecoder(bytes.NewReader(configBytes))
		dec.KnownFields(true)
		if err = dec.Decode(config); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to unmarshal config file %s: %w", cli.ConfigFile, err)
		}
	case errors.Is(err, os.ErrNotExist) && !configFileSet:
		// default config file is optional
	default:
		return fmt.Errorf("failed to read config file %s: %w", cli.ConfigFile, err)
	}

	app := &config.Linkhook
	if _, set := visited["script-dir"]; set {
		app.ScriptDirs = scripts.SplitSearchPath(cli.ScriptDirs)
	}

	if _, set := visited["run-startup-triggers"]; set {
		app.RunStartupTriggers = cli.RunStartupTriggers
	}

	if _, set := visited["hook-timeout"]; set {
		app.HookTimeout = cli.HookTimeout
	}

	if _, set := visited["metrics.listen"]; set {
		app.Metrics.Listen = cli.MetricsListen
	}

	if len(app.ScriptDirs) == 0 {
		app.ScriptDirs = append([]string(nil), constant.DefaultScriptDirs...)
	}

	if app.HookTimeout < 0 {
		return fmt.Errorf("invalid negative hook timeout %v", app.HookTimeout)
	}

	if app.Metrics.Path == "" {
		app.Metrics.Path = "/metrics"
	}

	if len(app.Log) == 0 {
		app.Log = append(app.Log, cli.Log)
	} else {
		if _, set := visited["log.format"]; set {
			app.Log[0].Format = cli.Log.Format
		}

		if _, set := visited["log.level"]; set {
			app.Log[0].Level = cli.Log.Level
		}
	}

	_, vSet := visited["verbose"]
	_, qSet := visited["quiet"]
	if vSet || qSet {
		for i := range app.Log {
			app.Log[i].Level = LevelFromVerbosity(cli.Verbose, cli.Quiet)
		}
	}

	return nil
}

// ReadConfig loads config, sets up the default logger and returns a
// context canceled on the first SIGINT or SIGTERM, the second one exits
func ReadConfig(flags *pflag.FlagSet, cli *CLI, config *Config) (context.Context, error) {
	err := Load(flags, cli, config)
	if err != nil {
		return nil, err
	}

	err = log.SetDefaultLogger(config.Linkhook.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to set default logger: %w", err)
	}

	appCtx, exit := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		exitCount := 0
		for sig := range sigCh {
			exitCount++
			log.Log.I("received exit signal", log.String("signal", sig.String()))

			if exitCount == 1 {
				exit()
			} else {
				os.Exit(1)
			}
		}
	}()

	return appCtx, nil
}
