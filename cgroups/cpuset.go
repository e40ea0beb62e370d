package cgroups

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

func NewCpuset(root string) *cpusetController {
	return &cpusetController{
		root: filepath.Join(root, string(Cpuset)),
	}
}

type cpusetController struct {
	root string
}

func (c *cpusetController) Name() Name {
	return Cpuset
}

func (c *cpusetController) Path(path string) string {
	return filepath.Join(c.root, path)
}

// Create makes the group and seeds cpuset.cpus and cpuset.mems from its
// parent; a v1 cpuset refuses tasks while either is empty.
func (c *cpusetController) Create(path string) error {
	dir := c.Path(path)
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return err
	}
	parent := filepath.Dir(dir)
	for _, name := range []string{"cpuset.cpus", "cpuset.mems"} {
		current, err := ioutil.ReadFile(filepath.Join(dir, name))
		if err == nil && len(bytes.TrimSpace(current)) > 0 {
			continue
		}
		value, err := ioutil.ReadFile(filepath.Join(parent, name))
		if err != nil {
			return err
		}
		if err := retryingWriteFile(filepath.Join(dir, name), bytes.TrimSpace(value), defaultFilePerm); err != nil {
			return err
		}
	}
	return nil
}

func (c *cpusetController) Update(path string, resources *Resources) error {
	if resources.CPU == nil || resources.CPU.Cpus == "" {
		return nil
	}
	return retryingWriteFile(
		filepath.Join(c.Path(path), "cpuset.cpus"),
		[]byte(resources.CPU.Cpus),
		defaultFilePerm,
	)
}

// CpusFromMask renders an affinity bitmask as a cpuset list, e.g. 5 -> "0,2".
func CpusFromMask(mask uint64) (string, error) {
	if mask == 0 {
		return "", fmt.Errorf("cgroups: empty processor mask")
	}
	var cpus []string
	for i := uint(0); i < 64; i++ {
		if mask&(1<<i) != 0 {
			cpus = append(cpus, strconv.Itoa(int(i)))
		}
	}
	return strings.Join(cpus, ","), nil
}
