package launcher

// DefaultConfig is the configuration used before the config file and flags apply.
func DefaultConfig() Config {
	return Config{
		Network: NetworkConfig{
			Preset: "dev",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Addr: "127.0.0.1",
			Port: 6060,
		},
		DevChain: DevChainConfig{
			Interval: "1s",
		},
	}
}
