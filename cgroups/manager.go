package cgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/sirupsen/logrus"
)

// Manager is one named group created in every jobrun subsystem mounted
// under a cgroup v1 root.
type Manager struct {
	root       string
	path       string
	subsystems []Subsystem
}

// New creates the group name under root in each mounted subsystem. If any
// subsystem fails, the directories created so far are removed.
func New(root, name string) (*Manager, error) {
	path, err := securejoin.SecureJoin(string(os.PathSeparator), name)
	if err != nil {
		return nil, err
	}
	if strings.Trim(path, string(os.PathSeparator)) == "" {
		return nil, fmt.Errorf("cgroups: invalid group name %q", name)
	}
	m := &Manager{root: root, path: path}
	for _, s := range defaults(root) {
		p := s.(pather)
		// skip hierarchies that are not mounted on this host
		if _, err := os.Lstat(p.Path("/")); err != nil {
			continue
		}
		if err := initializeSubsystem(s, path); err != nil {
			m.subsystems = append(m.subsystems, s)
			if derr := m.Delete(); derr != nil {
				logrus.WithError(derr).Warn("cgroups: remove partially created group")
			}
			return nil, err
		}
		m.subsystems = append(m.subsystems, s)
	}
	if len(m.subsystems) == 0 {
		return nil, ErrNoSubsystems
	}
	logrus.WithFields(logrus.Fields{
		"path":       path,
		"subsystems": m.Subsystems(),
	}).Debug("cgroups: group created")
	return m, nil
}

// Path returns the group path relative to each subsystem root.
func (m *Manager) Path() string {
	return m.path
}

// Subsystems lists the subsystems the group exists in.
func (m *Manager) Subsystems() []Name {
	var out []Name
	for _, s := range m.subsystems {
		out = append(out, s.Name())
	}
	return out
}

func (m *Manager) has(n Name) bool {
	for _, s := range m.subsystems {
		if s.Name() == n {
			return true
		}
	}
	return false
}

func missing(n Name) error {
	return fmt.Errorf("cgroups: %s subsystem is not mounted: %w", n, syscall.ENODEV)
}

// Update writes resources to the group. A resource whose subsystem is not
// mounted is an error rather than silently dropped.
func (m *Manager) Update(resources *Resources) error {
	if resources.Memory != nil && !m.has(Memory) {
		return missing(Memory)
	}
	if resources.Pids != nil && !m.has(Pids) {
		return missing(Pids)
	}
	if cpu := resources.CPU; cpu != nil {
		if (cpu.Shares != nil || cpu.Quota != nil || cpu.Period != nil) && !m.has(Cpu) {
			return missing(Cpu)
		}
		if cpu.Cpus != "" && !m.has(Cpuset) {
			return missing(Cpuset)
		}
	}
	for _, s := range m.subsystems {
		if u, ok := s.(updater); ok {
			if err := u.Update(m.path, resources); err != nil {
				return err
			}
		}
	}
	return nil
}

// Add moves pid, with all its threads, into the group in every subsystem.
func (m *Manager) Add(pid int) error {
	for _, p := range pathers(m.subsystems) {
		if err := retryingWriteFile(
			filepath.Join(p.Path(m.path), cgroupProcs),
			[]byte(strconv.Itoa(pid)),
			defaultFilePerm,
		); err != nil {
			return err
		}
	}
	return nil
}

// Processes returns the pids currently in the group.
func (m *Manager) Processes() ([]int, error) {
	ps := pathers(m.subsystems)
	if len(ps) == 0 {
		return nil, ErrNoSubsystems
	}
	return readPids(ps[0].Path(m.path))
}

// Stat reads the accounting of every subsystem that keeps any.
func (m *Manager) Stat() (*Stats, error) {
	stats := &Stats{}
	for _, s := range m.subsystems {
		if st, ok := s.(stater); ok {
			if err := st.Stat(m.path, stats); err != nil {
				return nil, err
			}
		}
	}
	return stats, nil
}

// CPUUsage returns the CPU time consumed by the group in nanoseconds.
func (m *Manager) CPUUsage() (uint64, error) {
	if !m.has(Cpuacct) {
		return 0, missing(Cpuacct)
	}
	var stats Stats
	if err := NewCpuacct(m.root).Stat(m.path, &stats); err != nil {
		return 0, err
	}
	return stats.CPUUsage, nil
}

// Delete removes the group from every subsystem.
func (m *Manager) Delete() error {
	var errs []string
	for _, p := range pathers(m.subsystems) {
		if err := remove(p.Path(m.path)); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("cgroups: unable to remove paths %s", strings.Join(errs, ", "))
	}
	return nil
}
