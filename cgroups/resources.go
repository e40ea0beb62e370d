package cgroups

// Resources is a partial update of a group's limits. Nil fields are left
// untouched.
type Resources struct {
	CPU    *CpuResource
	Memory *MemoryResource
	Pids   *PidsResource
}

type CpuResource struct {
	Shares *uint64
	Period *uint64
	Quota  *int64
	Cpus   string
}

type MemoryResource struct {
	Limit     *int64
	SoftLimit *int64
}

type PidsResource struct {
	Limit int64
}
