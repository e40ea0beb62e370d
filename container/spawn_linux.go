//go:build linux
// +build linux

package container

import (
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/google/shlex"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	initPipeEnv = "_JOBRUN_INITPIPE"
	syncPipeEnv = "_JOBRUN_SYNCPIPE"
)

// initConfig is sent over the init pipe to release a held process.
type initConfig struct {
	Args         []string `json:"args"`
	AddressSpace uint64   `json:"address_space,omitempty"`
	Nice         *int     `json:"nice,omitempty"`
}

// initError is what the child writes on the sync pipe when it cannot
// exec the target. A successful exec closes the pipe without a payload.
type initError struct {
	Message string `json:"message"`
	Errno   int    `json:"errno,omitempty"`
}

// reexecSpawner starts jobrun itself in its init mode. The child blocks on
// the init pipe, so it cannot run the target before the parent has placed
// it in the container and written the init config.
type reexecSpawner struct {
	InitPath string
	InitArgs []string
}

// NewSpawner returns the spawner for this platform.
func NewSpawner() Spawner {
	return &reexecSpawner{
		InitPath: "/proc/self/exe",
		InitArgs: []string{"init"},
	}
}

func (s *reexecSpawner) SpawnSuspended(cmdline string) (SuspendedProcess, error) {
	args, err := shlex.Split(cmdline)
	if err != nil {
		return nil, errors.Wrapf(unix.EINVAL, "split command line: %v", err)
	}
	if len(args) == 0 {
		return nil, errors.Wrap(unix.EINVAL, "empty command line")
	}
	if _, err := exec.LookPath(args[0]); err != nil {
		var errno syscall.Errno
		if !errors.As(err, &errno) {
			// not found in PATH carries no errno of its own
			err = errors.Wrap(unix.ENOENT, err.Error())
		}
		return nil, errors.Wrapf(err, "resolve %s", args[0])
	}
	readPipe, writePipe, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	syncRead, syncWrite, err := os.Pipe()
	if err != nil {
		readPipe.Close()
		writePipe.Close()
		return nil, err
	}
	cmd := exec.Command(s.InitPath, s.InitArgs...)
	// stdin stays with jobrun, it is waiting for the release signal
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.ExtraFiles = []*os.File{readPipe, syncWrite}
	cmd.Env = append(os.Environ(), initPipeEnv+"=3", syncPipeEnv+"=4")
	cmd.SysProcAttr = &syscall.SysProcAttr{Pdeathsig: syscall.SIGKILL}
	err = cmd.Start()
	readPipe.Close()
	syncWrite.Close()
	if err != nil {
		writePipe.Close()
		syncRead.Close()
		return nil, err
	}
	return &initProcess{
		cmd:    cmd,
		pipe:   writePipe,
		sync:   syncRead,
		config: initConfig{Args: args},
	}, nil
}

type initProcess struct {
	cmd    *exec.Cmd
	pipe   *os.File
	sync   *os.File
	config initConfig
	reaper sync.Once
}

func (p *initProcess) Pid() int {
	return p.cmd.Process.Pid
}

func (p *initProcess) limitAddressSpace(bytes uint64) {
	p.config.AddressSpace = bytes
}

func (p *initProcess) setNice(nice int) {
	p.config.Nice = &nice
}

// Resume sends the init config and waits until the child has either
// exec'd the target or reported why it could not.
func (p *initProcess) Resume() error {
	if p.pipe == nil {
		return errors.Wrap(unix.EBADF, "init pipe already closed")
	}
	err := WriteJSON(p.pipe, p.config)
	if cerr := p.closePipe(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	return p.waitExec()
}

func (p *initProcess) waitExec() error {
	if p.sync == nil {
		return nil
	}
	defer p.closeSync()
	data, err := io.ReadAll(p.sync)
	if err != nil {
		return errors.Wrap(err, "read init sync pipe")
	}
	if len(data) == 0 {
		return nil
	}
	var ierr initError
	if err := json.Unmarshal(data, &ierr); err != nil {
		return errors.Wrapf(err, "decode init error %q", data)
	}
	if ierr.Errno != 0 {
		return errors.Wrap(syscall.Errno(ierr.Errno), ierr.Message)
	}
	return errors.New(ierr.Message)
}

func (p *initProcess) Kill() error {
	// a held child also exits when its pipe closes without a config
	p.closePipe()
	p.closeSync()
	err := p.cmd.Process.Kill()
	p.reap()
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *initProcess) Release() error {
	p.closeSync()
	err := p.closePipe()
	p.reap()
	return err
}

func (p *initProcess) closePipe() error {
	if p.pipe == nil {
		return nil
	}
	err := p.pipe.Close()
	p.pipe = nil
	return err
}

func (p *initProcess) closeSync() {
	if p.sync != nil {
		p.sync.Close()
		p.sync = nil
	}
}

func (p *initProcess) reap() {
	p.reaper.Do(func() {
		go p.cmd.Wait()
	})
}
