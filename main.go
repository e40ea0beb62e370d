package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lipeining/jobrun/configs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const (
	name  = "jobrun"
	usage = "run a process inside a job and limit its behavior"
)

func newApp(target []string) *cli.App {
	app := cli.NewApp()
	app.Name = name
	app.Usage = usage
	app.Version = "1.0.0"
	app.HideVersion = true
	app.CustomAppHelpTemplate = usageText()
	app.Writer = os.Stdout

	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug output for logging",
		},
		cli.StringFlag{
			Name:  "log",
			Value: "",
			Usage: "set the log file path where internal debug information is written",
		},
		cli.StringFlag{
			Name:  "log-format",
			Value: "text",
			Usage: "set the format used by logs ('text' (default), or 'json')",
		},
		cli.StringFlag{
			Name:  "profile",
			Usage: "load limits from a YAML profile; flags on the command line override it",
		},
	}
	app.Flags = append(app.Flags, limitFlags()...)
	app.Commands = []cli.Command{
		initCommand,
	}
	app.Before = setupLogging
	app.OnUsageError = func(context *cli.Context, err error, _ bool) error {
		return &configs.ConfigurationError{Field: "arguments", Detail: err.Error()}
	}
	app.Action = func(context *cli.Context) error {
		return launch(context, strings.Join(target, " "), os.Stdin, os.Stdout)
	}
	return app
}

// limitFlags declares one string flag per limit; values are validated by
// configs.Build so every error surfaces as a ConfigurationError.
func limitFlags() []cli.Flag {
	flags := make([]cli.Flag, 0, len(configs.FlagSpecs))
	for _, f := range configs.FlagSpecs {
		flags = append(flags, cli.StringFlag{
			Name:   f.Long + ", " + f.Short,
			Usage:  f.Usage,
			EnvVar: f.EnvVar,
		})
	}
	return flags
}

func setupLogging(context *cli.Context) error {
	if context.GlobalBool("debug") {
		logrus.SetLevel(logrus.DebugLevel)
	}
	if path := context.GlobalString("log"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND|os.O_SYNC, 0666)
		if err != nil {
			return err
		}
		logrus.SetOutput(f)
	}
	switch context.GlobalString("log-format") {
	case "text":
		// retain logrus's default.
	case "json":
		logrus.SetFormatter(new(logrus.JSONFormatter))
	default:
		// cli has already printed the help for a failed Before
		return errors.Errorf("unknown log-format %q", context.GlobalString("log-format"))
	}
	return nil
}

func main() {
	args, target := os.Args, []string(nil)
	if len(os.Args) < 2 || os.Args[1] != initCommand.Name {
		args, target = splitArgs(os.Args)
	}
	if err := newApp(target).Run(args); err != nil {
		os.Exit(report(os.Stdout, err))
	}
}

// report writes the user visible outcome of a failed run and returns the
// exit status.
func report(w io.Writer, err error) int {
	var cerr *configs.ConfigurationError
	if errors.As(err, &cerr) {
		fmt.Fprintln(w, cerr.Detail)
		fmt.Fprint(w, usageText())
		return 1
	}
	logrus.Error(err)
	fmt.Fprintln(w, diagnostic(err))
	return 1
}
