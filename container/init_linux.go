//go:build linux
// +build linux

package container

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime/debug"
	"strconv"
	"syscall"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// StartInitialization runs in the re-executed child. It blocks on the init
// pipe until the parent has bound the child and sent its config, then
// replaces the process image with the target. If the parent closes the
// pipe without a config, the target never starts. Any failure before the
// exec is reported back on the sync pipe, which the exec itself closes.
func StartInitialization() (err error) {
	var (
		pipefd      int
		envInitPipe = os.Getenv(initPipeEnv)
	)

	// Get the INITPIPE.
	pipefd, err = strconv.Atoi(envInitPipe)
	if err != nil {
		return fmt.Errorf("unable to convert %s=%s to int: %s", initPipeEnv, envInitPipe, err)
	}
	pipe := os.NewFile(uintptr(pipefd), "pipe")
	defer pipe.Close()

	var sync *os.File
	if syncfd, serr := strconv.Atoi(os.Getenv(syncPipeEnv)); serr == nil {
		unix.CloseOnExec(syncfd)
		sync = os.NewFile(uintptr(syncfd), "sync")
		defer sync.Close()
	}

	// the target must not see the pipe variables
	os.Unsetenv(initPipeEnv)
	os.Unsetenv(syncPipeEnv)

	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("panic from initialization: %v, %v", e, string(debug.Stack()))
		}
		if err != nil && sync != nil {
			reportInitError(sync, err)
		}
	}()

	var config initConfig
	if err := json.NewDecoder(pipe).Decode(&config); err != nil {
		return errors.Wrap(err, "waiting for resume")
	}
	// Close the pipe so it does not leak into the target.
	pipe.Close()
	return initialize(&config)
}

func reportInitError(w *os.File, err error) {
	ierr := initError{Message: err.Error()}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		ierr.Errno = int(errno)
	}
	// nobody may be reading if the parent is gone
	WriteJSON(w, ierr)
}

func initialize(config *initConfig) error {
	if len(config.Args) == 0 {
		return errors.New("no command to execute")
	}
	name, err := exec.LookPath(config.Args[0])
	if err != nil {
		return err
	}
	if config.Nice != nil {
		if err := unix.Setpriority(unix.PRIO_PROCESS, 0, *config.Nice); err != nil {
			return errors.Wrapf(err, "setpriority %d", *config.Nice)
		}
	}
	if config.AddressSpace > 0 {
		rlim := &unix.Rlimit{Cur: config.AddressSpace, Max: config.AddressSpace}
		if err := unix.Setrlimit(unix.RLIMIT_AS, rlim); err != nil {
			return errors.Wrap(err, "setrlimit RLIMIT_AS")
		}
	}
	// If Exec succeeds it does not return, hence none of the defers will be called.
	return errors.Wrapf(unix.Exec(name, config.Args, os.Environ()), "exec %s", name)
}
