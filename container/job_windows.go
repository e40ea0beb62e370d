//go:build windows
// +build windows

package container

import (
	"sync"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// CPU rate control flags, JOBOBJECT_CPU_RATE_CONTROL_INFORMATION.ControlFlags.
const (
	jobObjectCPURateControlEnable      = 0x1
	jobObjectCPURateControlWeightBased = 0x2
	jobObjectCPURateControlHardCap     = 0x4
)

// jobObjectCPURateControlInformation mirrors
// JOBOBJECT_CPU_RATE_CONTROL_INFORMATION. Value holds CpuRate or Weight,
// which share a union.
type jobObjectCPURateControlInformation struct {
	ControlFlags uint32
	Value        uint32
}

// NewFactory returns a factory of unnamed job objects.
func NewFactory() Factory {
	return FactoryFunc(func() (Handle, error) {
		h, err := windows.CreateJobObject(nil, nil)
		if err != nil {
			return nil, errors.Wrap(err, "CreateJobObject")
		}
		return &jobObject{handle: h}, nil
	})
}

// jobObject implements Handle with a Windows job object. The extended
// limit information is written as a whole on every change, so limits
// accumulate in limits and a later write never clears an earlier one.
type jobObject struct {
	m      sync.Mutex
	handle windows.Handle
	limits windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION
}

func (j *jobObject) setLimits(flag uint32, fill func(info *windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION)) error {
	j.m.Lock()
	defer j.m.Unlock()
	info := j.limits
	fill(&info)
	info.BasicLimitInformation.LimitFlags |= flag
	if _, err := windows.SetInformationJobObject(
		j.handle,
		windows.JobObjectExtendedLimitInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	); err != nil {
		return err
	}
	j.limits = info
	return nil
}

func (j *jobObject) SetKillOnClose() error {
	return j.setLimits(windows.JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE, func(*windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION) {})
}

func (j *jobObject) SetJobMemoryLimit(bytes uint64) error {
	return j.setLimits(windows.JOB_OBJECT_LIMIT_JOB_MEMORY, func(info *windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION) {
		info.JobMemoryLimit = uintptr(bytes)
	})
}

func (j *jobObject) SetProcessMemoryLimit(bytes uint64) error {
	return j.setLimits(windows.JOB_OBJECT_LIMIT_PROCESS_MEMORY, func(info *windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION) {
		info.ProcessMemoryLimit = uintptr(bytes)
	})
}

func (j *jobObject) SetWorkingSet(min, max uint64) error {
	return j.setLimits(windows.JOB_OBJECT_LIMIT_WORKINGSET, func(info *windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION) {
		info.BasicLimitInformation.MinimumWorkingSetSize = uintptr(min)
		info.BasicLimitInformation.MaximumWorkingSetSize = uintptr(max)
	})
}

func (j *jobObject) SetJobTimeLimit(ticks uint64) error {
	return j.setLimits(windows.JOB_OBJECT_LIMIT_JOB_TIME, func(info *windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION) {
		info.BasicLimitInformation.PerJobUserTimeLimit = int64(ticks)
	})
}

func (j *jobObject) SetActiveProcessLimit(n uint32) error {
	return j.setLimits(windows.JOB_OBJECT_LIMIT_ACTIVE_PROCESS, func(info *windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION) {
		info.BasicLimitInformation.ActiveProcessLimit = n
	})
}

func (j *jobObject) SetBreakawayOK() error {
	return j.setLimits(windows.JOB_OBJECT_LIMIT_BREAKAWAY_OK, func(*windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION) {})
}

func (j *jobObject) SetAffinity(mask uint64) error {
	return j.setLimits(windows.JOB_OBJECT_LIMIT_AFFINITY, func(info *windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION) {
		info.BasicLimitInformation.Affinity = uintptr(mask)
	})
}

func (j *jobObject) SetPriorityClass(class uint32) error {
	return j.setLimits(windows.JOB_OBJECT_LIMIT_PRIORITY_CLASS, func(info *windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION) {
		info.BasicLimitInformation.PriorityClass = class
	})
}

func (j *jobObject) SetSchedulingClass(class uint32) error {
	return j.setLimits(windows.JOB_OBJECT_LIMIT_SCHEDULING_CLASS, func(info *windows.JOBOBJECT_EXTENDED_LIMIT_INFORMATION) {
		info.BasicLimitInformation.SchedulingClass = class
	})
}

func (j *jobObject) setCPURateControl(flags, value uint32) error {
	info := jobObjectCPURateControlInformation{
		ControlFlags: jobObjectCPURateControlEnable | flags,
		Value:        value,
	}
	_, err := windows.SetInformationJobObject(
		j.handle,
		windows.JobObjectCpuRateControlInformation,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	return err
}

func (j *jobObject) SetCPURateHardCap(rate uint32) error {
	return j.setCPURateControl(jobObjectCPURateControlHardCap, rate)
}

func (j *jobObject) SetCPUWeight(weight uint32) error {
	return j.setCPURateControl(jobObjectCPURateControlWeightBased, weight)
}

func (j *jobObject) SetUIRestrictions(mask uint32) error {
	info := windows.JOBOBJECT_BASIC_UI_RESTRICTIONS{UIRestrictionsClass: mask}
	_, err := windows.SetInformationJobObject(
		j.handle,
		windows.JobObjectBasicUIRestrictions,
		uintptr(unsafe.Pointer(&info)),
		uint32(unsafe.Sizeof(info)),
	)
	return err
}

func (j *jobObject) Assign(p SuspendedProcess) error {
	wp, ok := p.(*windowsProcess)
	if !ok {
		return errors.Wrapf(windows.ERROR_INVALID_HANDLE, "not a windows process: %T", p)
	}
	return windows.AssignProcessToJobObject(j.handle, wp.info.Process)
}

// Close closes the job handle; JOB_OBJECT_LIMIT_KILL_ON_JOB_CLOSE makes the
// system terminate every process still in the job.
func (j *jobObject) Close() error {
	return windows.CloseHandle(j.handle)
}
