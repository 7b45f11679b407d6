package launcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-runtime/flags"
)

// runConfigFromArgs runs MakeAllConfigs inside a synthetic app.
func runConfigFromArgs(t *testing.T, args []string) (Config, error) {
	t.Helper()

	app := cli.NewApp()
	app.HideHelp = true
	app.HideVersion = true
	app.Flags = flags.Merge(flags.CommonFlags(), flags.NetworkFlags(), flags.DevChainFlags())

	var (
		got    Config
		cfgErr error
	)
	app.Action = func(c *cli.Context) error {
		got, cfgErr = MakeAllConfigs(c)
		return nil
	}
	require.NoError(t, app.Run(append([]string{"opera"}, args...)))
	return got, cfgErr
}

func TestMakeAllConfigsFlagOverrides(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want func(t *testing.T, cfg Config)
	}{
		{
			name: "defaults",
			want: func(t *testing.T, cfg Config) {
				require.Equal(t, DefaultConfig(), cfg)
			},
		},
		{
			name: "network",
			args: []string{"--preset", "local", "--validators", "7"},
			want: func(t *testing.T, cfg Config) {
				preset, err := cfg.Preset()
				require.NoError(t, err)
				require.Equal(t, "local", preset.Name)
				require.Equal(t, 7, preset.Validators)
			},
		},
		{
			name: "logging and metrics",
			args: []string{"--log.level", "debug", "--log.format", "json", "--metrics", "--metrics.port", "7070"},
			want: func(t *testing.T, cfg Config) {
				require.Equal(t, "debug", cfg.Logging.Level)
				require.Equal(t, "json", cfg.Logging.Format)
				require.True(t, cfg.Metrics.Enabled)
				require.Equal(t, 7070, cfg.Metrics.Port)
				require.Equal(t, "127.0.0.1", cfg.Metrics.Addr)
			},
		},
		{
			name: "devchain",
			args: []string{"--blocks", "5", "--block.interval", "250ms"},
			want: func(t *testing.T, cfg Config) {
				require.EqualValues(t, 5, cfg.DevChain.Blocks)
				d, err := cfg.BlockInterval()
				require.NoError(t, err)
				require.Equal(t, 250*time.Millisecond, d)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := runConfigFromArgs(t, tt.args)
			require.NoError(t, err)
			tt.want(t, cfg)
		})
	}
}

func TestMakeAllConfigsRejectsUnknownPreset(t *testing.T) {
	_, err := runConfigFromArgs(t, []string{"--preset", "moon"})
	require.Error(t, err)
}

func TestConfigFile(t *testing.T) {
	require := require.New(t)
	dir := t.TempDir()

	path := filepath.Join(dir, "config.toml")
	require.NoError(os.WriteFile(path, []byte(`
[network]
preset = "test"

[logging]
level = "warn"

[devchain]
blocks = 3
interval = "2s"
`), 0o600))

	cfg, err := runConfigFromArgs(t, []string{"--config", path, "--log.level", "error"})
	require.NoError(err)
	require.Equal("test", cfg.Network.Preset)
	// flags win over the file
	require.Equal("error", cfg.Logging.Level)
	require.EqualValues(3, cfg.DevChain.Blocks)
	require.Equal("2s", cfg.DevChain.Interval)
	require.Equal("text", cfg.Logging.Format)

	bad := filepath.Join(dir, "bad.toml")
	require.NoError(os.WriteFile(bad, []byte("[network]\nchain = \"x\"\n"), 0o600))
	_, err = runConfigFromArgs(t, []string{"--config", bad})
	require.Error(err)
}
