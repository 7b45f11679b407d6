package launcher

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-runtime/flags"
	"github.com/rony4d/go-opera-runtime/integration"
	"github.com/rony4d/go-opera-runtime/utils/logging"
)

// Config aggregates everything the launcher needs.
type Config struct {
	Network  NetworkConfig  `toml:"network"`
	Logging  LoggingConfig  `toml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics"`
	DevChain DevChainConfig `toml:"devchain"`
}

type NetworkConfig struct {
	Preset string `toml:"preset"`
	// Validators overrides the preset if positive.
	Validators int `toml:"validators"`
}

type LoggingConfig struct {
	Level     string `toml:"level"`
	Format    string `toml:"format"`
	Color     bool   `toml:"color"`
	SentryDSN string `toml:"sentry_dsn"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
	Port    int    `toml:"port"`
}

type DevChainConfig struct {
	Blocks uint64 `toml:"blocks"`
	// Interval is a duration string such as "500ms".
	Interval string `toml:"interval"`
}

// Preset resolves the network section into a preset.
func (c Config) Preset() (integration.PresetConfig, error) {
	preset, err := integration.GetPresetByName(c.Network.Preset)
	if err != nil {
		return preset, err
	}
	if c.Network.Validators > 0 {
		preset.Validators = c.Network.Validators
	}
	return preset, nil
}

// Logger builds the root logger writing to out.
func (c Config) Logger(out io.Writer) (*logrus.Logger, error) {
	return logging.New(out, logging.Config{
		Level:     c.Logging.Level,
		Format:    c.Logging.Format,
		Color:     c.Logging.Color,
		SentryDSN: c.Logging.SentryDSN,
	})
}

// BlockInterval parses the devchain interval.
func (c Config) BlockInterval() (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(c.DevChain.Interval))
	if err != nil {
		return 0, fmt.Errorf("parse devchain interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("devchain interval must be positive, got %s", d)
	}
	return d, nil
}

// MakeAllConfigs merges defaults, the optional config file, then CLI flag overrides.
func MakeAllConfigs(ctx *cli.Context) (Config, error) {
	cfg := DefaultConfig()

	if file := ctx.GlobalString(flags.ConfigFileFlag.Name); file != "" {
		if err := loadConfigFile(file, &cfg); err != nil {
			return cfg, err
		}
	}

	applyCLIOverrides(ctx, &cfg)

	if _, err := cfg.Preset(); err != nil {
		return cfg, err
	}
	if _, err := cfg.BlockInterval(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadConfigFile(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) != 0 {
		return fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}

// isSet reports whether a flag was given on the command line, globally or to the command.
func isSet(ctx *cli.Context, name string) bool {
	return ctx.IsSet(name) || ctx.GlobalIsSet(name)
}

func applyCLIOverrides(ctx *cli.Context, cfg *Config) {
	if isSet(ctx, flags.PresetFlag.Name) {
		cfg.Network.Preset = ctx.GlobalString(flags.PresetFlag.Name)
	}
	if isSet(ctx, flags.ValidatorsFlag.Name) {
		cfg.Network.Validators = ctx.GlobalInt(flags.ValidatorsFlag.Name)
	}

	if isSet(ctx, flags.LogLevelFlag.Name) {
		cfg.Logging.Level = ctx.GlobalString(flags.LogLevelFlag.Name)
	}
	if isSet(ctx, flags.LogFormatFlag.Name) {
		cfg.Logging.Format = ctx.GlobalString(flags.LogFormatFlag.Name)
	}
	if isSet(ctx, flags.LogColorFlag.Name) {
		cfg.Logging.Color = ctx.GlobalBool(flags.LogColorFlag.Name)
	}
	if isSet(ctx, flags.LogSentryFlag.Name) {
		cfg.Logging.SentryDSN = ctx.GlobalString(flags.LogSentryFlag.Name)
	}

	if isSet(ctx, flags.MetricsEnabledFlag.Name) {
		cfg.Metrics.Enabled = ctx.GlobalBool(flags.MetricsEnabledFlag.Name)
	}
	if isSet(ctx, flags.MetricsAddrFlag.Name) {
		cfg.Metrics.Addr = ctx.GlobalString(flags.MetricsAddrFlag.Name)
	}
	if isSet(ctx, flags.MetricsPortFlag.Name) {
		cfg.Metrics.Port = ctx.GlobalInt(flags.MetricsPortFlag.Name)
	}

	if ctx.IsSet(flags.BlocksFlag.Name) {
		cfg.DevChain.Blocks = ctx.Uint64(flags.BlocksFlag.Name)
	}
	if ctx.IsSet(flags.BlockIntervalFlag.Name) {
		cfg.DevChain.Interval = ctx.Duration(flags.BlockIntervalFlag.Name).String()
	}
}
