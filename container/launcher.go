package container

import (
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Launcher creates the target process held before execution and releases
// it once it is bound.
type Launcher struct {
	spawner Spawner
}

// NewLauncher returns a launcher that creates processes with s.
func NewLauncher(s Spawner) *Launcher {
	return &Launcher{spawner: s}
}

// SpawnSuspended starts cmdline with its main thread held.
func (l *Launcher) SpawnSuspended(cmdline string) (*Process, error) {
	if cmdline == "" {
		return nil, newLaunchError(StageSpawn, errors.New("empty command line"))
	}
	sys, err := l.spawner.SpawnSuspended(cmdline)
	if err != nil {
		return nil, newLaunchError(StageSpawn, err)
	}
	logrus.WithFields(logrus.Fields{
		"pid":     sys.Pid(),
		"command": cmdline,
	}).Debug("process created suspended")
	return &Process{CommandLine: cmdline, sys: sys, state: processSuspended}, nil
}

// Resume lets a bound process run. It refuses any process that has not
// been bound to an open container.
func (l *Launcher) Resume(p *Process) error {
	if p.state != processBound || p.container == nil {
		return newLaunchError(StageResume, ErrNotBound)
	}
	if p.container.isClosed() {
		return newLaunchError(StageResume, ErrClosed)
	}
	if err := p.sys.Resume(); err != nil {
		return newLaunchError(StageResume, err)
	}
	p.state = processRunning
	logrus.WithField("pid", p.sys.Pid()).Debug("process resumed")
	return nil
}
