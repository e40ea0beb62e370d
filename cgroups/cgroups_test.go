package cgroups

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	defaultFilePerm = 0666
}

// fakeHierarchy lays out a cgroup v1 root with the given subsystems.
func fakeHierarchy(t *testing.T, names ...Name) string {
	root := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.MkdirAll(filepath.Join(root, string(n)), 0755))
	}
	cpuset := filepath.Join(root, string(Cpuset))
	if _, err := os.Stat(cpuset); err == nil {
		require.NoError(t, ioutil.WriteFile(filepath.Join(cpuset, "cpuset.cpus"), []byte("0-3\n"), 0644))
		require.NoError(t, ioutil.WriteFile(filepath.Join(cpuset, "cpuset.mems"), []byte("0\n"), 0644))
	}
	return root
}

func readFile(t *testing.T, path ...string) string {
	data, err := ioutil.ReadFile(filepath.Join(path...))
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}

func int64p(v int64) *int64    { return &v }
func uint64p(v uint64) *uint64 { return &v }

func TestNewCreatesGroupInMountedSubsystems(t *testing.T) {
	root := fakeHierarchy(t, Memory, Cpu, Cpuset)
	m, err := New(root, "jobrun-test")
	require.NoError(t, err)
	assert.Equal(t, "/jobrun-test", m.Path())
	assert.Equal(t, []Name{Cpuset, Cpu, Memory}, m.Subsystems())

	for _, n := range []Name{Memory, Cpu, Cpuset} {
		assert.DirExists(t, filepath.Join(root, string(n), "jobrun-test"))
	}
	assert.Equal(t, "0-3", readFile(t, root, "cpuset", "jobrun-test", "cpuset.cpus"))
	assert.Equal(t, "0", readFile(t, root, "cpuset", "jobrun-test", "cpuset.mems"))
}

func TestNewRejectsEscapingName(t *testing.T) {
	root := fakeHierarchy(t, Memory)
	m, err := New(root, "../../etc")
	require.NoError(t, err)
	assert.Equal(t, "/etc", m.Path())
	assert.DirExists(t, filepath.Join(root, "memory", "etc"))

	_, err = New(root, "..")
	assert.Error(t, err)
}

func TestNewWithoutSubsystems(t *testing.T) {
	_, err := New(t.TempDir(), "jobrun-test")
	assert.Equal(t, ErrNoSubsystems, err)
}

func TestUpdateWritesControlFiles(t *testing.T) {
	root := fakeHierarchy(t, Memory, Cpu, Cpuset, Pids)
	m, err := New(root, "g")
	require.NoError(t, err)

	require.NoError(t, m.Update(&Resources{
		Memory: &MemoryResource{Limit: int64p(104857600), SoftLimit: int64p(7340032)},
		CPU:    &CpuResource{Shares: uint64p(512), Period: uint64p(100000), Quota: int64p(50000), Cpus: "0,2"},
		Pids:   &PidsResource{Limit: 4},
	}))
	assert.Equal(t, "104857600", readFile(t, root, "memory", "g", "memory.limit_in_bytes"))
	assert.Equal(t, "7340032", readFile(t, root, "memory", "g", "memory.soft_limit_in_bytes"))
	assert.Equal(t, "512", readFile(t, root, "cpu", "g", "cpu.shares"))
	assert.Equal(t, "100000", readFile(t, root, "cpu", "g", "cpu.cfs_period_us"))
	assert.Equal(t, "50000", readFile(t, root, "cpu", "g", "cpu.cfs_quota_us"))
	assert.Equal(t, "0,2", readFile(t, root, "cpuset", "g", "cpuset.cpus"))
	assert.Equal(t, "4", readFile(t, root, "pids", "g", "pids.max"))
}

func TestUpdateMissingSubsystem(t *testing.T) {
	root := fakeHierarchy(t, Memory)
	m, err := New(root, "g")
	require.NoError(t, err)

	err = m.Update(&Resources{Pids: &PidsResource{Limit: 4}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, syscall.ENODEV))
}

func TestAddAndProcesses(t *testing.T) {
	root := fakeHierarchy(t, Memory, Pids)
	m, err := New(root, "g")
	require.NoError(t, err)

	require.NoError(t, m.Add(1234))
	assert.Equal(t, "1234", readFile(t, root, "memory", "g", "cgroup.procs"))
	assert.Equal(t, "1234", readFile(t, root, "pids", "g", "cgroup.procs"))

	pids, err := m.Processes()
	require.NoError(t, err)
	assert.Equal(t, []int{1234}, pids)
}

func TestStatAndCPUUsage(t *testing.T) {
	root := fakeHierarchy(t, Cpuacct, Memory, Pids)
	m, err := New(root, "g")
	require.NoError(t, err)
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "cpuacct", "g", "cpuacct.usage"), []byte("2500000000\n"), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "memory", "g", "memory.usage_in_bytes"), []byte("4096\n"), 0644))
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "pids", "g", "pids.current"), []byte("3\n"), 0644))

	usage, err := m.CPUUsage()
	require.NoError(t, err)
	assert.Equal(t, uint64(2500000000), usage)

	stats, err := m.Stat()
	require.NoError(t, err)
	assert.Equal(t, &Stats{CPUUsage: 2500000000, MemoryUsage: 4096, Pids: 3}, stats)
}

func TestDelete(t *testing.T) {
	root := fakeHierarchy(t, Memory, Cpu)
	m, err := New(root, "g")
	require.NoError(t, err)
	require.NoError(t, m.Delete())
	assert.NoDirExists(t, filepath.Join(root, "memory", "g"))
	assert.NoDirExists(t, filepath.Join(root, "cpu", "g"))
}

func TestCpusFromMask(t *testing.T) {
	testCases := []struct {
		mask uint64
		cpus string
	}{
		{1, "0"},
		{5, "0,2"},
		{0xf0, "4,5,6,7"},
		{1 << 63, "63"},
	}
	for _, tc := range testCases {
		cpus, err := CpusFromMask(tc.mask)
		require.NoError(t, err)
		assert.Equal(t, tc.cpus, cpus)
	}
	_, err := CpusFromMask(0)
	assert.Error(t, err)
}

func TestMountPointFromReader(t *testing.T) {
	mountinfo := `22 1 8:1 / / rw,relatime shared:1 - ext4 /dev/sda1 rw
26 23 0:22 / /sys/fs/cgroup/cpuset rw,nosuid,nodev,noexec,relatime shared:13 - cgroup cgroup rw,cpuset
`
	root, err := mountPointFromReader(strings.NewReader(mountinfo))
	require.NoError(t, err)
	assert.Equal(t, "/sys/fs/cgroup", root)

	_, err = mountPointFromReader(strings.NewReader("22 1 8:1 / / rw,relatime shared:1 - ext4 /dev/sda1 rw\n"))
	assert.Equal(t, ErrMountPointNotExist, err)

	// unified hierarchy only
	_, err = mountPointFromReader(strings.NewReader("30 23 0:26 / /sys/fs/cgroup rw,nosuid,nodev,noexec,relatime shared:4 - cgroup2 cgroup2 rw\n"))
	assert.Equal(t, ErrMountPointNotExist, err)
	assert.Contains(t, err.Error(), "cgroup v1 hierarchy not found")
}
