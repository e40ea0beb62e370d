package main

import (
	"os"
	"runtime"

	"github.com/lipeining/jobrun/container"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func init() {
	if len(os.Args) > 1 && os.Args[1] == "init" {
		runtime.GOMAXPROCS(1)
		runtime.LockOSThread()
	}
}

var initCommand = cli.Command{
	Name:   "init",
	Usage:  `hold the target until it is bound to its job, then exec it (do not call it outside of jobrun)`,
	Hidden: true,
	Action: func(context *cli.Context) error {
		logrus.Debug("waiting for the launch config on the init pipe")
		// only returns on failure, the target replaces this process
		return container.StartInitialization()
	},
}
