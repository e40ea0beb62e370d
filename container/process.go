package container

import (
	"github.com/sirupsen/logrus"
)

// SuspendedProcess is the OS side of a process created with its primary
// thread held before any of its own code runs.
type SuspendedProcess interface {
	// Pid returns the process id.
	Pid() int

	// Resume releases the held thread.
	Resume() error

	// Kill terminates the process.
	Kill() error

	// Release frees the OS resources held for the process without
	// affecting it.
	Release() error
}

// Spawner creates suspended processes from a command line.
type Spawner interface {
	SpawnSuspended(cmdline string) (SuspendedProcess, error)
}

type processState int

const (
	processSuspended processState = iota
	processBound
	processRunning
	processTerminated
)

func (s processState) String() string {
	switch s {
	case processSuspended:
		return "suspended"
	case processBound:
		return "bound"
	case processRunning:
		return "running"
	case processTerminated:
		return "terminated"
	}
	return "unknown"
}

// Process is a target process owned by the Launcher until it is bound to a
// Container. After binding, the container decides its lifetime and the
// caller only keeps the ability to resume it.
type Process struct {
	// CommandLine is the command the process was created from.
	CommandLine string

	sys       SuspendedProcess
	state     processState
	container *Container
}

// Pid returns the process id.
func (p *Process) Pid() int {
	return p.sys.Pid()
}

// Bound reports whether the process has been bound to a container.
func (p *Process) Bound() bool {
	return p.state >= processBound && p.container != nil
}

// Running reports whether the process has been resumed and its container
// is still open.
func (p *Process) Running() bool {
	return p.state == processRunning
}

// Terminated reports whether the process was killed, either directly or by
// the release of its container.
func (p *Process) Terminated() bool {
	return p.state == processTerminated
}

// Kill terminates a process that never made it into a container. Bound
// processes are terminated by closing their container instead.
func (p *Process) Kill() error {
	if p.state == processTerminated {
		return nil
	}
	if p.container != nil {
		return ErrAlreadyBound
	}
	err := p.sys.Kill()
	p.state = processTerminated
	if rerr := p.sys.Release(); rerr != nil {
		logrus.WithError(rerr).WithField("pid", p.sys.Pid()).Debug("release process")
	}
	return err
}

func (p *Process) terminated() {
	p.state = processTerminated
	if err := p.sys.Release(); err != nil {
		logrus.WithError(err).WithField("pid", p.sys.Pid()).Debug("release process")
	}
}
