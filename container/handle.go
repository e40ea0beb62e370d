package container

// Handle is the OS container primitive: a job object on Windows, a set of
// cgroups on Linux. Each setter writes exactly one policy category and
// leaves the others in place.
type Handle interface {
	SetKillOnClose() error
	SetJobMemoryLimit(bytes uint64) error
	SetProcessMemoryLimit(bytes uint64) error
	SetWorkingSet(min, max uint64) error
	SetJobTimeLimit(ticks uint64) error
	SetActiveProcessLimit(n uint32) error
	SetBreakawayOK() error
	SetAffinity(mask uint64) error
	SetPriorityClass(class uint32) error
	SetSchedulingClass(class uint32) error
	SetCPURateHardCap(rate uint32) error
	SetCPUWeight(weight uint32) error
	SetUIRestrictions(mask uint32) error

	// Assign places a suspended process under the container's policy.
	Assign(p SuspendedProcess) error

	// Close releases the handle. Every process still assigned to the
	// container is terminated.
	Close() error
}

// Factory allocates new, unnamed container handles.
type Factory interface {
	Create() (Handle, error)
}

// FactoryFunc adapts a function to the Factory interface.
type FactoryFunc func() (Handle, error)

func (f FactoryFunc) Create() (Handle, error) { return f() }
