package flags

import (
	"time"

	"gopkg.in/urfave/cli.v1"
)

var (
	BlocksFlag = cli.Uint64Flag{
		Name:  "blocks",
		Usage: "Stop after authoring this many blocks (0 runs until interrupted)",
	}
	BlockIntervalFlag = cli.DurationFlag{
		Name:  "block.interval",
		Usage: "Wall time between two authored blocks",
		Value: time.Second,
	}
	SeedFlag = cli.StringFlag{
		Name:  "seed",
		Usage: "Seed to derive session keys from (random if empty)",
	}
)

// DevChainFlags tune the local block author.
func DevChainFlags() []cli.Flag {
	return []cli.Flag{
		BlocksFlag,
		BlockIntervalFlag,
	}
}

// KeyFlags control session key generation.
func KeyFlags() []cli.Flag {
	return []cli.Flag{
		SeedFlag,
	}
}
