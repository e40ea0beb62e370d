package cgroups

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

func NewCpu(root string) *cpuController {
	return &cpuController{
		root: filepath.Join(root, string(Cpu)),
	}
}

type cpuController struct {
	root string
}

func (c *cpuController) Name() Name {
	return Cpu
}

func (c *cpuController) Path(path string) string {
	return filepath.Join(c.root, path)
}

func (c *cpuController) Create(path string) error {
	return os.MkdirAll(c.Path(path), defaultDirPerm)
}

func (c *cpuController) Update(path string, resources *Resources) error {
	cpu := resources.CPU
	if cpu == nil {
		return nil
	}
	// the period must be in place before a quota that depends on it
	for _, t := range []struct {
		name   string
		ivalue *int64
		uvalue *uint64
	}{
		{
			name:   "shares",
			uvalue: cpu.Shares,
		},
		{
			name:   "cfs_period_us",
			uvalue: cpu.Period,
		},
		{
			name:   "cfs_quota_us",
			ivalue: cpu.Quota,
		},
	} {
		var value []byte
		if t.uvalue != nil {
			value = []byte(strconv.FormatUint(*t.uvalue, 10))
		} else if t.ivalue != nil {
			value = []byte(strconv.FormatInt(*t.ivalue, 10))
		}
		if value != nil {
			if err := retryingWriteFile(
				filepath.Join(c.Path(path), fmt.Sprintf("cpu.%s", t.name)),
				value,
				defaultFilePerm,
			); err != nil {
				return err
			}
		}
	}
	return nil
}
