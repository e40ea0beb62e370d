package container

// Category is one container policy dimension.
type Category string

const (
	CategoryCreate          Category = "container creation"
	CategoryKillOnClose     Category = "kill on close"
	CategoryTotalCommit     Category = "job committed memory limit"
	CategoryProcessCommit   Category = "process committed memory limit"
	CategoryWorkingSet      Category = "working set limit"
	CategoryCPUTime         Category = "CPU time limit"
	CategoryMaxProcesses    Category = "active process limit"
	CategoryBreakaway       Category = "breakaway"
	CategoryAffinity        Category = "processor affinity"
	CategoryPriority        Category = "priority class"
	CategorySchedulingClass Category = "scheduling class"
	CategoryCPURate         Category = "CPU rate hard cap"
	CategoryCPUWeight       Category = "CPU weight"
	CategoryUIRestrictions  Category = "UI restrictions"
)

func (c Category) String() string { return string(c) }

const (
	// BytesPerMegabyte converts the megabyte limits to bytes.
	BytesPerMegabyte = 1048576

	// TicksPerSecond converts seconds to the 100ns units used for CPU time.
	TicksPerSecond = 10000000

	// RateUnitsPerPercent converts a percentage to hundredths of a percent.
	RateUnitsPerPercent = 100
)

// MegabytesToBytes converts a megabyte limit to bytes.
func MegabytesToBytes(mb uint64) uint64 {
	return mb * BytesPerMegabyte
}

// SecondsToTicks converts seconds to 100ns ticks.
func SecondsToTicks(seconds uint64) uint64 {
	return seconds * TicksPerSecond
}

// WorkingSetBytes returns the working set range for a maximum of mb
// megabytes. The minimum is half the maximum, truncated to whole megabytes.
func WorkingSetBytes(mb uint64) (min, max uint64) {
	return MegabytesToBytes(mb / 2), MegabytesToBytes(mb)
}

// CPURateUnits converts a CPU rate percentage to hundredths of a percent.
func CPURateUnits(percent uint32) uint32 {
	return percent * RateUnitsPerPercent
}
