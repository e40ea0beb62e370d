package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/lipeining/jobrun/configs"
)

var uiRestrictionHelp = []struct {
	bit  configs.UIRestriction
	text string
}{
	{configs.UIHandles, "prevent using USER handles from other processes"},
	{configs.UIReadClipboard, "prevent reading the clipboard"},
	{configs.UIWriteClipboard, "prevent writing the clipboard"},
	{configs.UISystemParameters, "prevent changing system parameters with SystemParametersInfo"},
	{configs.UIDisplaySettings, "prevent changing display settings with ChangeDisplaySettings"},
	{configs.UIGlobalAtoms, "prevent accessing global atoms"},
	{configs.UIDesktop, "prevent creating desktops and switching desktops"},
	{configs.UIExitWindows, "prevent shutting down or restarting with ExitWindows(Ex)"},
}

// usageText is the help shown for -h and for every configuration error.
func usageText() string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n%s - %s\n\n", name, usage)

	line := "USAGE: " + name
	indent := strings.Repeat(" ", len(line))
	for i, f := range configs.FlagSpecs {
		if i > 0 && i%4 == 0 {
			b.WriteString(line + "\n")
			line = indent
		}
		line += fmt.Sprintf(" [-%s %s]", f.Short, f.Arg)
	}
	b.WriteString(line + "\n")
	b.WriteString(indent + " <application>\n\n")

	for _, f := range configs.FlagSpecs {
		fmt.Fprintf(&b, "  -%s, --%-17s %s\n", f.Short, f.Long+" "+f.Arg, f.Usage)
		if f.Long == "ui-restrictions" {
			for _, u := range uiRestrictionHelp {
				fmt.Fprintf(&b, "%26d - %s\n", u.bit, u.text)
			}
		}
	}
	b.WriteString("\nGLOBAL OPTIONS:\n")
	b.WriteString("  --profile FILE     load limits from a YAML profile\n")
	b.WriteString("  --debug            enable debug logging\n")
	b.WriteString("  --log FILE         write logs to FILE instead of stderr\n")
	b.WriteString("  --log-format FMT   text (default) or json\n\n")
	b.WriteString("Every limit can also be set with its environment variable, e.g. JOBRUN_MEMORY.\n\n")
	return b.String()
}

// statusLines describes the resolved configuration, one line per limit.
func statusLines(l *configs.Limits) []string {
	lines := []string{fmt.Sprintf("Launching application '%s'", l.Target)}
	add := func(format string, args ...interface{}) {
		lines = append(lines, "  "+fmt.Sprintf(format, args...))
	}
	if l.TotalCommitMB != nil {
		add("with committed memory limit of %dMB", *l.TotalCommitMB)
	}
	if l.ProcessCommitMB != nil {
		add("with per-process committed memory limit of %dMB", *l.ProcessCommitMB)
	}
	if l.WorkingSetMB != nil {
		add("with working set memory limit of %dMB", *l.WorkingSetMB)
	}
	if l.CPUSeconds != nil {
		add("with CPU limit of %d seconds", *l.CPUSeconds)
	}
	if l.MaxProcesses != nil {
		add("with maximum of %d active processes", *l.MaxProcesses)
	}
	if l.AllowBreakaway != nil && *l.AllowBreakaway {
		add("allowing breakaway")
	} else {
		add("not allowing breakaway")
	}
	if l.AffinityMask != nil {
		add("with processor affinity of %064b", *l.AffinityMask)
	}
	if l.PriorityClass != nil {
		add("with priority class of %d", *l.PriorityClass)
	}
	if l.SchedulingClass != nil {
		add("with scheduling class of %d", *l.SchedulingClass)
	}
	if l.CPURatePercent != nil {
		add("with CPU rate of %d%%", *l.CPURatePercent)
	}
	if l.CPUWeight != nil {
		add("with CPU weight of %d", *l.CPUWeight)
	}
	if l.UIRestrictions != nil {
		add("with UI restrictions of %08b", *l.UIRestrictions)
	}
	return lines
}

func printStatus(w io.Writer, l *configs.Limits) {
	for _, line := range statusLines(l) {
		fmt.Fprintln(w, line)
	}
}
