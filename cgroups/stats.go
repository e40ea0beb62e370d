package cgroups

// Stats is the accounting jobrun reads back from a group.
type Stats struct {
	// CPUUsage is the total CPU time consumed by the group, in nanoseconds.
	CPUUsage uint64
	// MemoryUsage is the current memory usage in bytes.
	MemoryUsage uint64
	// Pids is the number of tasks in the group.
	Pids uint64
}
