package container

import (
	"sync"

	"github.com/lipeining/jobrun/configs"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Container owns one OS container handle. It is created without limits,
// gains one limit category per Apply call and, when closed, terminates
// every process still bound to it.
type Container struct {
	m       sync.Mutex
	handle  Handle
	applied []Category
	procs   []*Process
	closed  bool
}

// Create allocates a new container and sets its kill-on-close policy. If
// the policy cannot be set the handle is released again.
func Create(f Factory) (*Container, error) {
	h, err := f.Create()
	if err != nil {
		return nil, newContainerError(CategoryCreate, err)
	}
	if err := h.SetKillOnClose(); err != nil {
		if cerr := h.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("release container after failed creation")
		}
		return nil, newContainerError(CategoryKillOnClose, err)
	}
	logrus.Debug("container created")
	return &Container{handle: h}, nil
}

func (c *Container) set(category Category, value interface{}, fn func(h Handle) error) error {
	c.m.Lock()
	defer c.m.Unlock()
	if c.closed {
		return newContainerError(category, ErrClosed)
	}
	if err := fn(c.handle); err != nil {
		logrus.WithFields(logrus.Fields{
			"category": category,
			"value":    value,
		}).WithError(err).Debug("apply limit failed")
		return newContainerError(category, err)
	}
	c.applied = append(c.applied, category)
	logrus.WithFields(logrus.Fields{
		"category": category,
		"value":    value,
	}).Debug("limit applied")
	return nil
}

// ApplyTotalCommit caps the committed memory of the whole container.
func (c *Container) ApplyTotalCommit(mb uint64) error {
	return c.set(CategoryTotalCommit, mb, func(h Handle) error {
		return h.SetJobMemoryLimit(MegabytesToBytes(mb))
	})
}

// ApplyProcessCommit caps the committed memory of each process.
func (c *Container) ApplyProcessCommit(mb uint64) error {
	return c.set(CategoryProcessCommit, mb, func(h Handle) error {
		return h.SetProcessMemoryLimit(MegabytesToBytes(mb))
	})
}

// ApplyWorkingSet sets a soft working set range of mb/2 to mb megabytes.
func (c *Container) ApplyWorkingSet(mb uint64) error {
	return c.set(CategoryWorkingSet, mb, func(h Handle) error {
		return h.SetWorkingSet(WorkingSetBytes(mb))
	})
}

// ApplyCPUTime sets the CPU time budget of the container as a whole.
func (c *Container) ApplyCPUTime(seconds uint64) error {
	return c.set(CategoryCPUTime, seconds, func(h Handle) error {
		return h.SetJobTimeLimit(SecondsToTicks(seconds))
	})
}

// ApplyMaxProcesses caps the number of active processes.
func (c *Container) ApplyMaxProcesses(n uint32) error {
	return c.set(CategoryMaxProcesses, n, func(h Handle) error {
		return h.SetActiveProcessLimit(n)
	})
}

// ApplyBreakaway permits child processes to leave the container. Passing
// false keeps the default, which already forbids it, and writes nothing.
func (c *Container) ApplyBreakaway(allowed bool) error {
	if !allowed {
		return nil
	}
	return c.set(CategoryBreakaway, allowed, func(h Handle) error {
		return h.SetBreakawayOK()
	})
}

// ApplyAffinity restricts the processors the container may use.
func (c *Container) ApplyAffinity(mask uint64) error {
	return c.set(CategoryAffinity, mask, func(h Handle) error {
		return h.SetAffinity(mask)
	})
}

// ApplyPriority sets the priority class of the container's processes.
func (c *Container) ApplyPriority(class uint32) error {
	return c.set(CategoryPriority, class, func(h Handle) error {
		return h.SetPriorityClass(class)
	})
}

// ApplySchedulingClass sets the scheduling class, 0-9.
func (c *Container) ApplySchedulingClass(class uint32) error {
	if class > 9 {
		return newContainerError(CategorySchedulingClass, errors.Errorf("scheduling class %d out of range 0-9", class))
	}
	return c.set(CategorySchedulingClass, class, func(h Handle) error {
		return h.SetSchedulingClass(class)
	})
}

// ApplyCPURate enables hard-capped CPU rate control at percent of the
// aggregate CPU cycles.
func (c *Container) ApplyCPURate(percent uint32) error {
	if percent < 1 || percent > 100 {
		return newContainerError(CategoryCPURate, errors.Errorf("CPU rate %d out of range 1-100", percent))
	}
	return c.set(CategoryCPURate, percent, func(h Handle) error {
		return h.SetCPURateHardCap(CPURateUnits(percent))
	})
}

// ApplyCPUWeight enables weight based CPU rate control. It replaces a hard
// cap set earlier; the OS keeps only the last rate control written.
func (c *Container) ApplyCPUWeight(weight uint32) error {
	if weight < 1 || weight > 9 {
		return newContainerError(CategoryCPUWeight, errors.Errorf("CPU weight %d out of range 1-9", weight))
	}
	return c.set(CategoryCPUWeight, weight, func(h Handle) error {
		return h.SetCPUWeight(weight)
	})
}

// ApplyUIRestrictions restricts the UI operations named by mask.
func (c *Container) ApplyUIRestrictions(mask uint32) error {
	return c.set(CategoryUIRestrictions, mask, func(h Handle) error {
		return h.SetUIRestrictions(mask)
	})
}

// Apply writes every limit present in l and stops at the first failure.
// Absent limits are never written.
func (c *Container) Apply(l *configs.Limits) error {
	steps := []struct {
		present bool
		apply   func() error
	}{
		{l.TotalCommitMB != nil, func() error { return c.ApplyTotalCommit(*l.TotalCommitMB) }},
		{l.ProcessCommitMB != nil, func() error { return c.ApplyProcessCommit(*l.ProcessCommitMB) }},
		{l.WorkingSetMB != nil, func() error { return c.ApplyWorkingSet(*l.WorkingSetMB) }},
		{l.CPUSeconds != nil, func() error { return c.ApplyCPUTime(*l.CPUSeconds) }},
		{l.MaxProcesses != nil, func() error { return c.ApplyMaxProcesses(*l.MaxProcesses) }},
		{l.AllowBreakaway != nil, func() error { return c.ApplyBreakaway(*l.AllowBreakaway) }},
		{l.AffinityMask != nil, func() error { return c.ApplyAffinity(*l.AffinityMask) }},
		{l.PriorityClass != nil, func() error { return c.ApplyPriority(*l.PriorityClass) }},
		{l.SchedulingClass != nil, func() error { return c.ApplySchedulingClass(*l.SchedulingClass) }},
		{l.CPURatePercent != nil, func() error { return c.ApplyCPURate(*l.CPURatePercent) }},
		{l.CPUWeight != nil, func() error { return c.ApplyCPUWeight(*l.CPUWeight) }},
		{l.UIRestrictions != nil, func() error { return c.ApplyUIRestrictions(*l.UIRestrictions) }},
	}
	for _, s := range steps {
		if !s.present {
			continue
		}
		if err := s.apply(); err != nil {
			return err
		}
	}
	return nil
}

// Bind places a suspended process into the container. It must happen
// before the process is resumed.
func (c *Container) Bind(p *Process) error {
	c.m.Lock()
	defer c.m.Unlock()
	if c.closed {
		return newLaunchError(StageBind, ErrClosed)
	}
	if p.container != nil || p.state != processSuspended {
		return newLaunchError(StageBind, ErrAlreadyBound)
	}
	if err := c.handle.Assign(p.sys); err != nil {
		return newLaunchError(StageBind, err)
	}
	p.container = c
	p.state = processBound
	c.procs = append(c.procs, p)
	logrus.WithField("pid", p.sys.Pid()).Debug("process bound to container")
	return nil
}

// Applied lists the categories written so far, in order.
func (c *Container) Applied() []Category {
	c.m.Lock()
	defer c.m.Unlock()
	out := make([]Category, len(c.applied))
	copy(out, c.applied)
	return out
}

// Processes returns the processes bound to the container.
func (c *Container) Processes() []*Process {
	c.m.Lock()
	defer c.m.Unlock()
	out := make([]*Process, len(c.procs))
	copy(out, c.procs)
	return out
}

func (c *Container) isClosed() bool {
	c.m.Lock()
	defer c.m.Unlock()
	return c.closed
}

// Close releases the container handle, terminating every bound process.
// Calling Close more than once is a no-op.
func (c *Container) Close() error {
	c.m.Lock()
	defer c.m.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := c.handle.Close()
	for _, p := range c.procs {
		if err != nil && p.state != processTerminated {
			// the handle may still be open, do not leave the process behind
			if kerr := p.sys.Kill(); kerr != nil {
				logrus.WithError(kerr).WithField("pid", p.sys.Pid()).Warn("kill process")
			}
		}
		p.terminated()
	}
	logrus.WithField("processes", len(c.procs)).Debug("container released")
	return errors.Wrap(err, "close container")
}
