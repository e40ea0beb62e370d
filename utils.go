package main

import (
	"fmt"
	"strings"

	"github.com/lipeining/jobrun/configs"
	"github.com/lipeining/jobrun/container"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

// valueFlags are the global flags that consume the following argument.
var valueFlags = map[string]bool{
	"log":        true,
	"log-format": true,
	"profile":    true,
}

func takesValue(arg string) bool {
	name := strings.TrimLeft(arg, "-")
	if strings.Contains(name, "=") {
		return false
	}
	if _, ok := configs.LookupFlag(name); ok {
		return true
	}
	return valueFlags[name]
}

func isFlag(arg string) bool {
	return len(arg) > 1 && arg[0] == '-'
}

// splitArgs separates the flags from the target command line so that
// flags may appear anywhere. Every token that is not a flag or a flag's
// value is part of the target; everything after "--" is target verbatim.
func splitArgs(args []string) (flags []string, target []string) {
	if len(args) == 0 {
		return args, nil
	}
	flags = []string{args[0]}
	rest := args[1:]
	for i := 0; i < len(rest); i++ {
		arg := rest[i]
		switch {
		case arg == "--":
			return flags, append(target, rest[i+1:]...)
		case !isFlag(arg):
			target = append(target, arg)
		default:
			flags = append(flags, arg)
			if takesValue(arg) && i+1 < len(rest) {
				i++
				flags = append(flags, rest[i])
			}
		}
	}
	return flags, target
}

// rawLimits collects the limit flags set on the command line or through
// their environment variables, keyed by long name.
func rawLimits(context *cli.Context) map[string]string {
	raw := make(map[string]string)
	for _, f := range configs.FlagSpecs {
		if context.IsSet(f.Long) {
			raw[f.Long] = context.String(f.Long)
		}
	}
	return raw
}

// diagnostic renders err as the single line shown for a failed launch.
func diagnostic(err error) string {
	var (
		cerr *container.ContainerError
		lerr *container.LaunchError
	)
	switch {
	case errors.As(err, &cerr):
		if cerr.Category == container.CategoryCreate {
			return withCause(fmt.Sprintf("%s failed with error code: %d", cerr.Category, cerr.Code), cerr.Code, cerr.Err)
		}
		return withCause(fmt.Sprintf("setting %s failed with error code: %d", cerr.Category, cerr.Code), cerr.Code, cerr.Err)
	case errors.As(err, &lerr):
		return withCause(fmt.Sprintf("%s failed with error code: %d", lerr.Stage, lerr.Code), lerr.Code, lerr.Err)
	}
	return err.Error()
}

// withCause appends the underlying error when there is no OS code to show.
func withCause(line string, code uint32, cause error) string {
	if code != 0 || cause == nil {
		return line
	}
	return line + " (" + cause.Error() + ")"
}
