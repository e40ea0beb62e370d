package container

import (
	"github.com/lipeining/jobrun/configs"
	"github.com/sirupsen/logrus"
)

// LaunchResult is the outcome of Run. On success the caller owns the
// container and must Close it, which terminates the target.
type LaunchResult struct {
	Container *Container
	Process   *Process
	Attempt   *Attempt
}

// Close releases the container of the launch.
func (r *LaunchResult) Close() error {
	if r.Container == nil {
		return nil
	}
	return r.Container.Close()
}

// Run creates a container, applies limits, creates the target suspended,
// binds it and resumes it, in that order. Any failure aborts the launch:
// the container and the target are released before Run returns, and the
// returned result (nil when the container could not be created) reports
// the failed attempt.
func Run(limits *configs.Limits, f Factory, s Spawner) (result *LaunchResult, err error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	c, err := Create(f)
	if err != nil {
		return nil, err
	}
	result = &LaunchResult{Container: c, Attempt: NewAttempt()}
	defer func() {
		if err == nil {
			return
		}
		result.Attempt.Fail(err)
		if cerr := c.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("release container after failed launch")
		}
	}()

	if err = c.Apply(limits); err != nil {
		return result, err
	}
	if err = result.Attempt.Transition(LimitsApplied); err != nil {
		return result, err
	}

	l := NewLauncher(s)
	p, err := l.SpawnSuspended(limits.Target)
	if err != nil {
		return result, err
	}
	result.Process = p
	if err = result.Attempt.Transition(ProcessSpawnedSuspended); err != nil {
		killUnbound(p)
		return result, err
	}
	if err = c.Bind(p); err != nil {
		// never bound, so closing the container would not reach it
		killUnbound(p)
		return result, err
	}
	if err = result.Attempt.Transition(Bound); err != nil {
		return result, err
	}
	if err = l.Resume(p); err != nil {
		return result, err
	}
	if err = result.Attempt.Transition(Running); err != nil {
		return result, err
	}
	logrus.WithFields(logrus.Fields{
		"pid":     p.Pid(),
		"applied": len(c.Applied()),
	}).Info("target running inside container")
	return result, nil
}

func killUnbound(p *Process) {
	if err := p.Kill(); err != nil {
		logrus.WithError(err).WithField("pid", p.Pid()).Warn("kill unbound process")
	}
}
