package configs

// Limits is the resource policy of a job. Every limit is optional: a nil
// field means the category is left at the OS default and is never applied.
type Limits struct {
	// TotalCommitMB caps the committed memory of all processes in the job.
	TotalCommitMB *uint64 `json:"total_commit_mb,omitempty"`

	// ProcessCommitMB caps the committed memory of each process in the job.
	ProcessCommitMB *uint64 `json:"process_commit_mb,omitempty"`

	// WorkingSetMB is the soft working set maximum of each process. The
	// minimum is always half of it.
	WorkingSetMB *uint64 `json:"working_set_mb,omitempty"`

	// CPUSeconds is the CPU time budget of the job as a whole.
	CPUSeconds *uint64 `json:"cpu_seconds,omitempty"`

	// MaxProcesses caps the number of simultaneously active processes.
	MaxProcesses *uint32 `json:"max_processes,omitempty"`

	// AllowBreakaway lets child processes be created outside the job.
	AllowBreakaway *bool `json:"allow_breakaway,omitempty"`

	// AffinityMask selects the processors the job's processes may run on.
	AffinityMask *uint64 `json:"affinity_mask,omitempty"`

	// PriorityClass is the OS priority class code (e.g. 0x20 for normal).
	PriorityClass *uint32 `json:"priority_class,omitempty"`

	// SchedulingClass is the relative scheduling class, 0-9.
	SchedulingClass *uint32 `json:"scheduling_class,omitempty"`

	// CPURatePercent is a hard cap on CPU cycles, 1-100.
	CPURatePercent *uint32 `json:"cpu_rate_percent,omitempty"`

	// CPUWeight is a weight based CPU share, 1-9.
	CPUWeight *uint32 `json:"cpu_weight,omitempty"`

	// UIRestrictions is the UI restriction bitmask, see UIRestriction.
	UIRestrictions *uint32 `json:"ui_restrictions,omitempty"`

	// Target is the command line to launch inside the job.
	Target string `json:"target"`
}

// UIRestriction is one bit of the UI restriction mask.
type UIRestriction uint32

const (
	UIHandles          UIRestriction = 1 << iota // no USER handles owned by foreign processes
	UIReadClipboard                              // no clipboard reads
	UIWriteClipboard                             // no clipboard writes
	UISystemParameters                           // no SystemParametersInfo changes
	UIDisplaySettings                            // no ChangeDisplaySettings
	UIGlobalAtoms                                // no global atom table access
	UIDesktop                                    // no desktop create/switch
	UIExitWindows                                // no ExitWindows(Ex)

	// UIRestrictionsAll is every documented restriction bit.
	UIRestrictionsAll = UIHandles | UIReadClipboard | UIWriteClipboard | UISystemParameters |
		UIDisplaySettings | UIGlobalAtoms | UIDesktop | UIExitWindows
)

// Windows priority class codes accepted by -p.
const (
	PriorityIdle        uint32 = 0x00000040
	PriorityBelowNormal uint32 = 0x00004000
	PriorityNormal      uint32 = 0x00000020
	PriorityAboveNormal uint32 = 0x00008000
	PriorityHigh        uint32 = 0x00000080
	PriorityRealtime    uint32 = 0x00000100
)

// Validate checks the invariants that span more than one field. Range
// checks of the individual fields happen when they are parsed.
func (l *Limits) Validate() error {
	if l.Target == "" {
		return &ConfigurationError{Field: "application", Detail: "expected: application name"}
	}
	if l.CPURatePercent != nil && l.CPUWeight != nil {
		return &ConfigurationError{
			Field:  "cpu-weight",
			Detail: "CPU rate and CPU weight are mutually exclusive, specify only one of -r and -t",
		}
	}
	return nil
}

// Empty reports whether no limit at all is present.
func (l *Limits) Empty() bool {
	return l.TotalCommitMB == nil && l.ProcessCommitMB == nil && l.WorkingSetMB == nil &&
		l.CPUSeconds == nil && l.MaxProcesses == nil && l.AllowBreakaway == nil &&
		l.AffinityMask == nil && l.PriorityClass == nil && l.SchedulingClass == nil &&
		l.CPURatePercent == nil && l.CPUWeight == nil && l.UIRestrictions == nil
}
