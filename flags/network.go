package flags

import (
	"gopkg.in/urfave/cli.v1"
)

var (
	PresetFlag = cli.StringFlag{
		Name:  "preset",
		Usage: "Network preset (dev|local|test|main|default)",
		Value: "dev",
	}
	ValidatorsFlag = cli.IntFlag{
		Name:  "validators",
		Usage: "Number of fake genesis validators, overrides the preset",
	}
)

// NetworkFlags select the rules and the genesis of the chain.
func NetworkFlags() []cli.Flag {
	return []cli.Flag{
		PresetFlag,
		ValidatorsFlag,
	}
}
