package cgroups

import (
	"path/filepath"
	"strconv"
)

func NewMemory(root string) *memoryController {
	return &memoryController{
		root: filepath.Join(root, string(Memory)),
	}
}

type memoryController struct {
	root string
}

func (m *memoryController) Name() Name {
	return Memory
}

func (m *memoryController) Path(path string) string {
	return filepath.Join(m.root, path)
}

func (m *memoryController) Update(path string, resources *Resources) error {
	mem := resources.Memory
	if mem == nil {
		return nil
	}
	for _, t := range []struct {
		name  string
		value *int64
	}{
		{
			name:  "limit_in_bytes",
			value: mem.Limit,
		},
		{
			name:  "soft_limit_in_bytes",
			value: mem.SoftLimit,
		},
	} {
		if t.value == nil {
			continue
		}
		if err := retryingWriteFile(
			filepath.Join(m.Path(path), "memory."+t.name),
			[]byte(strconv.FormatInt(*t.value, 10)),
			defaultFilePerm,
		); err != nil {
			return err
		}
	}
	return nil
}

func (m *memoryController) Stat(path string, stats *Stats) error {
	usage, err := readUint(filepath.Join(m.Path(path), "memory.usage_in_bytes"))
	if err != nil {
		return err
	}
	stats.MemoryUsage = usage
	return nil
}
