//go:build linux
// +build linux

package container

import (
	"math"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lipeining/jobrun/cgroups"
	"github.com/lipeining/jobrun/configs"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

const (
	cfsPeriod     uint64 = 100000
	minCfsQuota   int64  = 1000
	defaultShares uint64 = 1024
)

// niceValues maps the Windows priority classes onto nice values.
var niceValues = map[uint32]int{
	configs.PriorityIdle:        19,
	configs.PriorityBelowNormal: 10,
	configs.PriorityNormal:      0,
	configs.PriorityAboveNormal: -5,
	configs.PriorityHigh:        -10,
	configs.PriorityRealtime:    -20,
}

// NewFactory returns a factory of cgroup v1 backed containers, each in a
// fresh group named jobrun-<uuid>.
func NewFactory() Factory {
	return FactoryFunc(func() (Handle, error) {
		root, err := cgroups.MountPoint()
		if err != nil {
			return nil, errors.Wrap(err, "find cgroup mount")
		}
		return newCgroupJob(root, "jobrun-"+uuid.New().String())
	})
}

// cgroupJob implements Handle with a cgroup for the aggregate limits and
// rlimits/nice values handed to each process as it is assigned.
type cgroupJob struct {
	m            sync.Mutex
	cg           *cgroups.Manager
	killOnClose  bool
	addressSpace uint64
	nice         *int
	cpuBudget    uint64
	pollInterval time.Duration
	stop         chan struct{}
	done         chan struct{}
}

func newCgroupJob(root, name string) (*cgroupJob, error) {
	cg, err := cgroups.New(root, name)
	if err != nil {
		return nil, err
	}
	return &cgroupJob{cg: cg, pollInterval: 100 * time.Millisecond}, nil
}

func (j *cgroupJob) SetKillOnClose() error {
	j.killOnClose = true
	return nil
}

func (j *cgroupJob) SetJobMemoryLimit(bytes uint64) error {
	if bytes > math.MaxInt64 {
		return errors.Wrapf(unix.EINVAL, "memory limit %d", bytes)
	}
	limit := int64(bytes)
	return j.cg.Update(&cgroups.Resources{Memory: &cgroups.MemoryResource{Limit: &limit}})
}

// SetProcessMemoryLimit is enforced with RLIMIT_AS on each assigned process.
func (j *cgroupJob) SetProcessMemoryLimit(bytes uint64) error {
	j.addressSpace = bytes
	return nil
}

// SetWorkingSet maps the maximum onto the memory soft limit. cgroup v1 has
// no working set floor, so min is only logged.
func (j *cgroupJob) SetWorkingSet(min, max uint64) error {
	if max > math.MaxInt64 {
		return errors.Wrapf(unix.EINVAL, "working set %d", max)
	}
	logrus.WithField("minimum", min).Debug("working set minimum has no cgroup equivalent")
	soft := int64(max)
	return j.cg.Update(&cgroups.Resources{Memory: &cgroups.MemoryResource{SoftLimit: &soft}})
}

// SetJobTimeLimit arms a watcher that empties the group once its total CPU
// usage reaches the budget.
func (j *cgroupJob) SetJobTimeLimit(ticks uint64) error {
	if ticks > math.MaxUint64/100 {
		return errors.Wrapf(unix.EINVAL, "CPU time %d", ticks)
	}
	if _, err := j.cg.CPUUsage(); err != nil {
		return err
	}
	j.cpuBudget = ticks * 100
	return nil
}

func (j *cgroupJob) SetActiveProcessLimit(n uint32) error {
	return j.cg.Update(&cgroups.Resources{Pids: &cgroups.PidsResource{Limit: int64(n)}})
}

func (j *cgroupJob) SetBreakawayOK() error {
	return errors.Wrap(ErrNotSupported, "cgroup membership is always inherited")
}

func (j *cgroupJob) SetAffinity(mask uint64) error {
	cpus, err := cgroups.CpusFromMask(mask)
	if err != nil {
		return errors.Wrap(unix.EINVAL, err.Error())
	}
	return j.cg.Update(&cgroups.Resources{CPU: &cgroups.CpuResource{Cpus: cpus}})
}

func (j *cgroupJob) SetPriorityClass(class uint32) error {
	nice, ok := niceValues[class]
	if !ok {
		return errors.Wrapf(unix.EINVAL, "unknown priority class %#x", class)
	}
	j.nice = &nice
	return nil
}

func (j *cgroupJob) SetSchedulingClass(class uint32) error {
	return errors.Wrap(ErrNotSupported, "scheduling class")
}

// SetCPURateHardCap sets a CFS quota of rate hundredths of a percent of all
// logical CPUs and resets any weight.
func (j *cgroupJob) SetCPURateHardCap(rate uint32) error {
	quota := int64(uint64(rate) * cfsPeriod * uint64(logicalCPUs()) / 10000)
	if quota < minCfsQuota {
		quota = minCfsQuota
	}
	period, shares := cfsPeriod, defaultShares
	return j.cg.Update(&cgroups.Resources{CPU: &cgroups.CpuResource{
		Shares: &shares,
		Period: &period,
		Quota:  &quota,
	}})
}

// SetCPUWeight maps weight 1-9 onto cpu.shares, 5 being the default share,
// and lifts any hard cap.
func (j *cgroupJob) SetCPUWeight(weight uint32) error {
	shares := uint64(weight) * defaultShares / 5
	unlimited := int64(-1)
	return j.cg.Update(&cgroups.Resources{CPU: &cgroups.CpuResource{
		Shares: &shares,
		Quota:  &unlimited,
	}})
}

func (j *cgroupJob) SetUIRestrictions(mask uint32) error {
	return errors.Wrap(ErrNotSupported, "UI restrictions")
}

// processLimiter is implemented by processes that apply their own
// per-process limits right before the target executes.
type processLimiter interface {
	limitAddressSpace(bytes uint64)
	setNice(nice int)
}

func (j *cgroupJob) Assign(p SuspendedProcess) error {
	j.m.Lock()
	defer j.m.Unlock()
	pid := p.Pid()
	if err := j.cg.Add(pid); err != nil {
		return err
	}
	if pl, ok := p.(processLimiter); ok {
		if j.addressSpace > 0 {
			pl.limitAddressSpace(j.addressSpace)
		}
		if j.nice != nil {
			pl.setNice(*j.nice)
		}
	} else {
		if j.addressSpace > 0 {
			rlim := &unix.Rlimit{Cur: j.addressSpace, Max: j.addressSpace}
			if err := unix.Prlimit(pid, unix.RLIMIT_AS, rlim, nil); err != nil {
				return err
			}
		}
		if j.nice != nil {
			if err := unix.Setpriority(unix.PRIO_PROCESS, pid, *j.nice); err != nil {
				return err
			}
		}
	}
	if j.cpuBudget > 0 && j.stop == nil {
		j.stop, j.done = make(chan struct{}), make(chan struct{})
		go j.watchCPU(j.cpuBudget)
	}
	return nil
}

func (j *cgroupJob) watchCPU(budget uint64) {
	defer close(j.done)
	ticker := time.NewTicker(j.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-j.stop:
			return
		case <-ticker.C:
			usage, err := j.cg.CPUUsage()
			if err != nil {
				logrus.WithError(err).Debug("read cpu usage")
				continue
			}
			if usage < budget {
				continue
			}
			logrus.WithFields(logrus.Fields{
				"usage":  time.Duration(usage),
				"budget": time.Duration(budget),
			}).Warn("CPU time limit reached, terminating container processes")
			if err := j.cg.Kill(); err != nil {
				logrus.WithError(err).Error("terminate container processes")
			}
			return
		}
	}
}

func (j *cgroupJob) Close() error {
	j.m.Lock()
	defer j.m.Unlock()
	if j.stop != nil {
		close(j.stop)
		<-j.done
		j.stop = nil
	}
	if st, err := j.cg.Stat(); err == nil {
		logrus.WithFields(logrus.Fields{
			"cpu":    time.Duration(st.CPUUsage),
			"memory": st.MemoryUsage,
			"pids":   st.Pids,
		}).Debug("container usage at release")
	}
	if j.killOnClose {
		if err := j.cg.Kill(); err != nil {
			return err
		}
	}
	return j.cg.Delete()
}

func logicalCPUs() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}
