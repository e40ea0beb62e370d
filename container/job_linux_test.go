//go:build linux
// +build linux

package container

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

const testGroup = "jobrun-test"

var controlFiles = map[string][]string{
	"memory":  {"memory.limit_in_bytes", "memory.soft_limit_in_bytes"},
	"cpu":     {"cpu.shares", "cpu.cfs_period_us", "cpu.cfs_quota_us"},
	"cpuacct": {"cpuacct.usage"},
	"cpuset":  {"cpuset.cpus", "cpuset.mems"},
	"pids":    {"pids.max"},
}

// fakeCgroupRoot lays out a cgroup v1 root whose group files already exist,
// as they do on a mounted cgroupfs.
func fakeCgroupRoot(t *testing.T) string {
	root := t.TempDir()
	for subsystem, files := range controlFiles {
		dir := filepath.Join(root, subsystem, testGroup)
		require.NoError(t, os.MkdirAll(dir, 0755))
		for _, name := range append(files, "cgroup.procs") {
			require.NoError(t, ioutil.WriteFile(filepath.Join(dir, name), nil, 0644))
		}
	}
	for _, name := range []string{"cpuset.cpus", "cpuset.mems"} {
		require.NoError(t, ioutil.WriteFile(filepath.Join(root, "cpuset", testGroup, name), []byte("0\n"), 0644))
	}
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "cpuacct", testGroup, "cpuacct.usage"), []byte("0\n"), 0644))
	return root
}

func groupFile(t *testing.T, root, subsystem, name string) string {
	data, err := ioutil.ReadFile(filepath.Join(root, subsystem, testGroup, name))
	require.NoError(t, err)
	return strings.TrimSpace(string(data))
}

func newTestJob(t *testing.T) (*cgroupJob, string) {
	root := fakeCgroupRoot(t)
	j, err := newCgroupJob(root, testGroup)
	require.NoError(t, err)
	return j, root
}

type limitedProcess struct {
	fakeProcess
	addressSpace uint64
	nice         *int
}

func (p *limitedProcess) limitAddressSpace(bytes uint64) { p.addressSpace = bytes }
func (p *limitedProcess) setNice(nice int)               { p.nice = &nice }

func TestCgroupJobLimits(t *testing.T) {
	j, root := newTestJob(t)

	require.NoError(t, j.SetJobMemoryLimit(MegabytesToBytes(50)))
	assert.Equal(t, "52428800", groupFile(t, root, "memory", "memory.limit_in_bytes"))

	require.NoError(t, j.SetWorkingSet(WorkingSetBytes(8)))
	assert.Equal(t, "8388608", groupFile(t, root, "memory", "memory.soft_limit_in_bytes"))

	require.NoError(t, j.SetActiveProcessLimit(3))
	assert.Equal(t, "3", groupFile(t, root, "pids", "pids.max"))

	require.NoError(t, j.SetAffinity(5))
	assert.Equal(t, "0,2", groupFile(t, root, "cpuset", "cpuset.cpus"))

	require.NoError(t, j.SetCPURateHardCap(CPURateUnits(50)))
	assert.Equal(t, "100000", groupFile(t, root, "cpu", "cpu.cfs_period_us"))
	assert.Equal(t, "1024", groupFile(t, root, "cpu", "cpu.shares"))
	quota := int64(50000 * logicalCPUs())
	assert.Equal(t, strconv.FormatInt(quota, 10), groupFile(t, root, "cpu", "cpu.cfs_quota_us"))

	require.NoError(t, j.SetCPUWeight(9))
	assert.Equal(t, "1843", groupFile(t, root, "cpu", "cpu.shares"))
	assert.Equal(t, "-1", groupFile(t, root, "cpu", "cpu.cfs_quota_us"))
}

func TestCgroupJobUnsupported(t *testing.T) {
	j, _ := newTestJob(t)
	for name, err := range map[string]error{
		"breakaway":        j.SetBreakawayOK(),
		"scheduling class": j.SetSchedulingClass(3),
		"ui restrictions":  j.SetUIRestrictions(1),
	} {
		assert.True(t, errors.Is(err, ErrNotSupported), name)
		assert.Equal(t, uint32(unix.ENOTSUP), osCode(err), name)
	}
}

func TestCgroupJobPerProcessLimits(t *testing.T) {
	j, root := newTestJob(t)
	require.NoError(t, j.SetProcessMemoryLimit(MegabytesToBytes(16)))
	assert.Error(t, j.SetPriorityClass(0x1234))
	require.NoError(t, j.SetPriorityClass(0x80))

	p := &limitedProcess{fakeProcess: fakeProcess{pid: 4242, log: &events{}}}
	require.NoError(t, j.Assign(p))
	assert.Equal(t, uint64(16*1048576), p.addressSpace)
	require.NotNil(t, p.nice)
	assert.Equal(t, -10, *p.nice)
	for subsystem := range controlFiles {
		assert.Equal(t, "4242", groupFile(t, root, subsystem, "cgroup.procs"), subsystem)
	}
	assert.Nil(t, j.stop, "no watcher without a CPU budget")
}

func TestCgroupJobCPUWatcher(t *testing.T) {
	j, root := newTestJob(t)
	j.pollInterval = time.Millisecond
	require.NoError(t, j.SetJobTimeLimit(SecondsToTicks(1)))
	assert.Equal(t, uint64(1e9), j.cpuBudget)

	p := &limitedProcess{fakeProcess: fakeProcess{pid: 4242, log: &events{}}}
	require.NoError(t, j.Assign(p))
	require.NotNil(t, j.stop)

	// the group is emptied before the budget is crossed so the watcher
	// never signals a real pid
	for subsystem := range controlFiles {
		require.NoError(t, ioutil.WriteFile(filepath.Join(root, subsystem, testGroup, "cgroup.procs"), nil, 0644))
	}
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "cpuacct", testGroup, "cpuacct.usage"), []byte("2000000000\n"), 0644))

	select {
	case <-j.done:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop at the CPU budget")
	}
	require.NoError(t, j.Close())
}

func TestCgroupJobClose(t *testing.T) {
	j, root := newTestJob(t)
	require.NoError(t, j.SetKillOnClose())
	require.NoError(t, j.Close())
	for subsystem := range controlFiles {
		assert.NoDirExists(t, filepath.Join(root, subsystem, testGroup))
	}
}
