package launcher

import (
	"gopkg.in/urfave/cli.v1"

	"github.com/rony4d/go-opera-runtime/flags"
)

// Version of the launcher binary.
const Version = "0.1.0"

var app = newApp()

func newApp() *cli.App {
	app := flags.NewApp(Version, "deterministic block runtime")
	app.Flags = flags.Merge(flags.CommonFlags(), flags.NetworkFlags())
	app.Commands = []cli.Command{
		versionCommand,
		metadataCommand,
		devChainCommand,
		sessionKeysCommand,
		dumpConfigCommand,
	}
	app.Action = devChain
	return app
}

// Launch runs the app with the process arguments.
func Launch(args []string) error {
	return app.Run(args)
}
