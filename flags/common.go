package flags

import (
	"gopkg.in/urfave/cli.v1"
)

var (
	ConfigFileFlag = cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	LogLevelFlag = cli.StringFlag{
		Name:  "log.level",
		Usage: "Log level (panic|fatal|error|warn|info|debug)",
		Value: "info",
	}
	LogFormatFlag = cli.StringFlag{
		Name:  "log.format",
		Usage: "Log output format (text|json)",
		Value: "text",
	}
	LogColorFlag = cli.BoolFlag{
		Name:  "log.color",
		Usage: "Enable colored log output",
	}
	LogSentryFlag = cli.StringFlag{
		Name:  "log.sentry",
		Usage: "Sentry DSN receiving error logs",
	}
	MetricsEnabledFlag = cli.BoolFlag{
		Name:  "metrics",
		Usage: "Enable collection of Prometheus-compatible metrics",
	}
	MetricsAddrFlag = cli.StringFlag{
		Name:  "metrics.addr",
		Usage: "Metrics server listening interface",
		Value: "127.0.0.1",
	}
	MetricsPortFlag = cli.IntFlag{
		Name:  "metrics.port",
		Usage: "Metrics server listening port",
		Value: 6060,
	}
)

// CommonFlags returns the base set of CLI flags shared across commands.
func CommonFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFileFlag,
		LogLevelFlag,
		LogFormatFlag,
		LogColorFlag,
		LogSentryFlag,
		MetricsEnabledFlag,
		MetricsAddrFlag,
		MetricsPortFlag,
	}
}
