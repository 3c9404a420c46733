package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arhat.dev/linkhook/pkg/constant"
	"arhat.dev/linkhook/pkg/sink/mqtt"
	"arhat.dev/linkhook/pkg/sink/nats"
)

const testConfig = `
linkhook:
  log:
  - level: info
    format: console
  scriptDirs:
  - /etc/linkhook
  runStartupTriggers: true
  hookTimeout: 30s
  hookEnvFile: /etc/linkhook/hook.env
  metrics:
    listen: 127.0.0.1:9090
sinks:
- driver: mqtt
  config:
    broker: mqtt.example.com:1883
    topic: net/transitions
    qos: 1
- driver: nats
`

func writeConfig(t *testing.T, content string) string {
	f := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(f, []byte(content), 0600))
	return f
}

func TestLevelFromVerbosity(t *testing.T) {
	tests := []struct {
		verbose, quiet int
		expected       string
	}{
		{0, 0, "info"},
		{1, 0, "debug"},
		{2, 0, "verbose"},
		{5, 0, "verbose"},
		{0, 1, "error"},
		{0, 2, "silent"},
		{2, 1, "debug"},
		{1, 1, "info"},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, LevelFromVerbosity(test.verbose, test.quiet))
	}
}

func TestLoad_File(t *testing.T) {
	cli := &CLI{}
	flags := cli.Flags()
	require.NoError(t, flags.Parse([]string{"-c", writeConfig(t, testConfig)}))

	config := new(Config)
	require.NoError(t, Load(flags, cli, config))

	app := config.Linkhook
	assert.Equal(t, []string{"/etc/linkhook"}, app.ScriptDirs)
	assert.True(t, app.RunStartupTriggers)
	assert.Equal(t, 30*time.Second, app.HookTimeout)
	assert.Equal(t, "/etc/linkhook/hook.env", app.HookEnvFile)
	assert.Equal(t, "127.0.0.1:9090", app.Metrics.Listen)
	assert.Equal(t, "/metrics", app.Metrics.Path)
	require.Len(t, app.Log, 1)
	assert.Equal(t, "info", app.Log[0].Level)

	require.Len(t, config.Sinks, 2)
	assert.Equal(t, mqtt.Name, config.Sinks[0].Driver)
	mc, ok := config.Sinks[0].Config.(*mqtt.Config)
	require.True(t, ok)
	assert.Equal(t, "mqtt.example.com:1883", mc.Broker)
	assert.Equal(t, "net/transitions", mc.Topic)
	assert.Equal(t, 1, mc.Qos)
	// defaults kept
	assert.Equal(t, "linkhook", mc.ClientID)

	assert.Equal(t, nats.Name, config.Sinks[1].Driver)
	nc, ok := config.Sinks[1].Config.(*nats.Config)
	require.True(t, ok)
	assert.Equal(t, "linkhook.transitions", nc.Subject)
}

func TestLoad_FlagsOverride(t *testing.T) {
	cli := &CLI{}
	flags := cli.Flags()
	require.NoError(t, flags.Parse([]string{
		"-c", writeConfig(t, testConfig),
		"-S", "/run/a:/run/b",
		"--hook-timeout", "5s",
		"-vv",
	}))

	config := new(Config)
	require.NoError(t, Load(flags, cli, config))

	assert.Equal(t, []string{"/run/a", "/run/b"}, config.Linkhook.ScriptDirs)
	assert.Equal(t, 5*time.Second, config.Linkhook.HookTimeout)
	assert.True(t, config.Linkhook.RunStartupTriggers)
	assert.Equal(t, "verbose", config.Linkhook.Log[0].Level)
}

func TestLoad_Defaults(t *testing.T) {
	cli := &CLI{}
	flags := cli.Flags()
	require.NoError(t, flags.Parse(nil))

	// default config file is optional
	cli.ConfigFile = filepath.Join(t.TempDir(), "missing.yaml")

	config := new(Config)
	require.NoError(t, Load(flags, cli, config))

	assert.Equal(t, constant.DefaultScriptDirs, config.Linkhook.ScriptDirs)
	assert.False(t, config.Linkhook.RunStartupTriggers)
	assert.Zero(t, config.Linkhook.HookTimeout)
	assert.Empty(t, config.Linkhook.Metrics.Listen)
	assert.Len(t, config.Linkhook.Log, 1)
	assert.Empty(t, config.Sinks)
}

func TestLoad_EmptyFile(t *testing.T) {
	cli := &CLI{}
	flags := cli.Flags()
	require.NoError(t, flags.Parse([]string{"-c", writeConfig(t, "")}))

	config := new(Config)
	require.NoError(t, Load(flags, cli, config))
	assert.Equal(t, constant.DefaultScriptDirs, config.Linkhook.ScriptDirs)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		args func(t *testing.T) []string
	}{
		{
			name: "Explicit Missing File",
			args: func(t *testing.T) []string {
				return []string{"-c", filepath.Join(t.TempDir(), "missing.yaml")}
			},
		},
		{
			name: "Unknown Sink",
			args: func(t *testing.T) []string {
				return []string{"-c", writeConfig(t, "sinks:\n- driver: kafka\n")}
			},
		},
		{
			name: "No Sink Driver",
			args: func(t *testing.T) []string {
				return []string{"-c", writeConfig(t, "sinks:\n- config: {}\n")}
			},
		},
		{
			name: "Unknown Sink Field",
			args: func(t *testing.T) []string {
				return []string{"-c", writeConfig(t, "sinks:\n- driver: nats\n  config:\n    foo: bar\n")}
			},
		},
		{
			name: "Unknown Key",
			args: func(t *testing.T) []string {
				return []string{"-c", writeConfig(t, "linkhook:\n  scriptDir: [/etc/linkhook]\n")}
			},
		},
		{
			name: "Unknown Section",
			args: func(t *testing.T) []string {
				return []string{"-c", writeConfig(t, "hooks: {}\n")}
			},
		},
		{
			name: "Negative Timeout",
			args: func(t *testing.T) []string {
				return []string{"-c", writeConfig(t, "linkhook: {}\n"), "--hook-timeout=-1s"}
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			cli := &CLI{}
			flags := cli.Flags()
			require.NoError(t, flags.Parse(test.args(t)))

			assert.Error(t, Load(flags, cli, new(Config)))
		})
	}
}
