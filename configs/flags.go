package configs

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the value syntax a flag accepts.
type Kind int

const (
	// Uint is a decimal unsigned integer.
	Uint Kind = iota
	// Mask is an unsigned integer that may also be written in hex (0x...).
	Mask
	// YesNo is the literal "yes" or "no".
	YesNo
)

// FlagSpec describes one limit flag. The table below is the only place
// that knows names, ranges and help text; the CLI and profile loader are
// generated from it.
type FlagSpec struct {
	Short   string
	Long    string
	Kind    Kind
	Min     uint64
	Max     uint64
	Arg     string
	Title   string
	Usage   string
	EnvVar  string
	assign  func(l *Limits, v uint64)
	present func(l *Limits) bool
}

const (
	mb          = 1 << 20
	maxMegabyte = math.MaxUint64 / mb
	// CPU time is expressed in 100ns ticks held in a signed 64-bit value.
	maxCPUSeconds = math.MaxInt64 / 10000000
)

// FlagSpecs lists every limit flag in the order it is applied and reported.
var FlagSpecs = []FlagSpec{
	{
		Short: "M", Long: "memory", Kind: Uint, Min: 1, Max: maxMegabyte, Arg: "MEGABYTES",
		Title: "Committed memory limit",
		Usage: "Limit the total committed memory of the job's processes",
		assign: func(l *Limits, v uint64) {
			l.TotalCommitMB = &v
		},
		present: func(l *Limits) bool { return l.TotalCommitMB != nil },
	},
	{
		Short: "m", Long: "process-memory", Kind: Uint, Min: 1, Max: maxMegabyte, Arg: "MEGABYTES",
		Title: "Process committed memory limit",
		Usage: "Limit the committed memory of each of the job's processes",
		assign: func(l *Limits, v uint64) {
			l.ProcessCommitMB = &v
		},
		present: func(l *Limits) bool { return l.ProcessCommitMB != nil },
	},
	{
		Short: "w", Long: "working-set", Kind: Uint, Min: 1, Max: maxMegabyte, Arg: "MEGABYTES",
		Title: "Working set limit",
		Usage: "Limit the process working set of each of the job's processes (soft limit)",
		assign: func(l *Limits, v uint64) {
			l.WorkingSetMB = &v
		},
		present: func(l *Limits) bool { return l.WorkingSetMB != nil },
	},
	{
		Short: "c", Long: "cpu-time", Kind: Uint, Min: 1, Max: maxCPUSeconds, Arg: "SECONDS",
		Title: "CPU time limit",
		Usage: "Limit the total CPU time of the job's processes",
		assign: func(l *Limits, v uint64) {
			l.CPUSeconds = &v
		},
		present: func(l *Limits) bool { return l.CPUSeconds != nil },
	},
	{
		Short: "n", Long: "processes", Kind: Uint, Min: 1, Max: math.MaxUint32, Arg: "NUMPROCS",
		Title: "Process count",
		Usage: "Limit the number of processes in the job",
		assign: func(l *Limits, v uint64) {
			n := uint32(v)
			l.MaxProcesses = &n
		},
		present: func(l *Limits) bool { return l.MaxProcesses != nil },
	},
	{
		Short: "b", Long: "breakaway", Kind: YesNo, Arg: "yes|no",
		Title: "Breakaway",
		Usage: "Allow job processes to break away",
		assign: func(l *Limits, v uint64) {
			b := v != 0
			l.AllowBreakaway = &b
		},
		present: func(l *Limits) bool { return l.AllowBreakaway != nil },
	},
	{
		Short: "a", Long: "affinity", Kind: Mask, Min: 1, Max: math.MaxUint64, Arg: "AFFINITY",
		Title: "Processor affinity",
		Usage: "Set the processor affinity of the job's processes",
		assign: func(l *Limits, v uint64) {
			l.AffinityMask = &v
		},
		present: func(l *Limits) bool { return l.AffinityMask != nil },
	},
	{
		Short: "p", Long: "priority", Kind: Mask, Min: 1, Max: math.MaxUint32, Arg: "PRIORITY",
		Title: "Priority class",
		Usage: "Set the priority class of the job's processes",
		assign: func(l *Limits, v uint64) {
			p := uint32(v)
			l.PriorityClass = &p
		},
		present: func(l *Limits) bool { return l.PriorityClass != nil },
	},
	{
		Short: "s", Long: "scheduling-class", Kind: Uint, Min: 0, Max: 9, Arg: "SCHEDCLASS",
		Title: "Scheduling class value",
		Usage: "Set the scheduling class (0-9) of the job's processes",
		assign: func(l *Limits, v uint64) {
			s := uint32(v)
			l.SchedulingClass = &s
		},
		present: func(l *Limits) bool { return l.SchedulingClass != nil },
	},
	{
		Short: "r", Long: "cpu-rate", Kind: Uint, Min: 1, Max: 100, Arg: "CPURATE",
		Title: "CPU rate",
		Usage: "Set the portion (%) of the CPU cycles this job's threads can use",
		assign: func(l *Limits, v uint64) {
			r := uint32(v)
			l.CPURatePercent = &r
		},
		present: func(l *Limits) bool { return l.CPURatePercent != nil },
	},
	{
		Short: "t", Long: "cpu-weight", Kind: Uint, Min: 1, Max: 9, Arg: "CPUWEIGHT",
		Title: "Scheduling weight",
		Usage: "Set the scheduling weight (1-9) of the job object",
		assign: func(l *Limits, v uint64) {
			w := uint32(v)
			l.CPUWeight = &w
		},
		present: func(l *Limits) bool { return l.CPUWeight != nil },
	},
	{
		Short: "u", Long: "ui-restrictions", Kind: Mask, Min: 1, Max: uint64(UIRestrictionsAll), Arg: "UIRESTRS",
		Title: "UI restriction mask",
		Usage: "Set the UI restriction class for the job's processes, a bitmask",
		assign: func(l *Limits, v uint64) {
			u := uint32(v)
			l.UIRestrictions = &u
		},
		present: func(l *Limits) bool { return l.UIRestrictions != nil },
	},
}

func init() {
	for i := range FlagSpecs {
		FlagSpecs[i].EnvVar = "JOBRUN_" + strings.ToUpper(strings.Replace(FlagSpecs[i].Long, "-", "_", -1))
	}
}

// LookupFlag finds a flag by its short or long name.
func LookupFlag(name string) (*FlagSpec, bool) {
	for i := range FlagSpecs {
		if FlagSpecs[i].Short == name || FlagSpecs[i].Long == name {
			return &FlagSpecs[i], true
		}
	}
	return nil, false
}

// Present reports whether l carries a value for this flag.
func (f *FlagSpec) Present(l *Limits) bool {
	return f.present(l)
}

// Parse converts the raw text of a flag into its numeric value. YesNo
// flags yield 1 or 0.
func (f *FlagSpec) Parse(raw string) (uint64, error) {
	if f.Kind == YesNo {
		switch raw {
		case "yes":
			return 1, nil
		case "no":
			return 0, nil
		}
		return 0, &ConfigurationError{
			Field:  f.Long,
			Detail: fmt.Sprintf("expected: Boolean value (\"yes\" or \"no\"), found '%s'", raw),
		}
	}
	base := 10
	if f.Kind == Mask && (strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X")) {
		base = 0
	}
	v, err := strconv.ParseUint(raw, base, 64)
	if err != nil {
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return 0, f.rangeError(raw)
		}
		return 0, &ConfigurationError{
			Field:  f.Long,
			Detail: fmt.Sprintf("expected: integer value, found '%s'", raw),
		}
	}
	if v == 0 && f.Min > 0 {
		return 0, &ConfigurationError{
			Field:  f.Long,
			Detail: fmt.Sprintf("expected: integer value, found '%s'", raw),
		}
	}
	if v < f.Min || v > f.Max {
		return 0, f.rangeError(raw)
	}
	return v, nil
}

func (f *FlagSpec) rangeError(raw string) error {
	return &ConfigurationError{
		Field:  f.Long,
		Detail: fmt.Sprintf("%s must be %d-%d, but got: %s", f.Title, f.Min, f.Max, raw),
	}
}

// Build parses raw flag values keyed by long name and assembles validated
// limits. Keys missing from raw leave the category absent.
func Build(raw map[string]string, target string) (*Limits, error) {
	for name := range raw {
		if _, ok := LookupFlag(name); !ok {
			return nil, &ConfigurationError{Field: name, Detail: "unknown limit"}
		}
	}
	l := &Limits{Target: strings.TrimSpace(target)}
	for i := range FlagSpecs {
		f := &FlagSpecs[i]
		s, ok := raw[f.Long]
		if !ok {
			continue
		}
		v, err := f.Parse(s)
		if err != nil {
			return nil, err
		}
		f.assign(l, v)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return l, nil
}
