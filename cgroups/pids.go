package cgroups

import (
	"path/filepath"
	"strconv"
)

func NewPids(root string) *pidsController {
	return &pidsController{
		root: filepath.Join(root, string(Pids)),
	}
}

type pidsController struct {
	root string
}

func (p *pidsController) Name() Name {
	return Pids
}

func (p *pidsController) Path(path string) string {
	return filepath.Join(p.root, path)
}

func (p *pidsController) Update(path string, resources *Resources) error {
	if resources.Pids == nil || resources.Pids.Limit <= 0 {
		return nil
	}
	return retryingWriteFile(
		filepath.Join(p.Path(path), "pids.max"),
		[]byte(strconv.FormatInt(resources.Pids.Limit, 10)),
		defaultFilePerm,
	)
}

func (p *pidsController) Stat(path string, stats *Stats) error {
	current, err := readUint(filepath.Join(p.Path(path), "pids.current"))
	if err != nil {
		return err
	}
	stats.Pids = current
	return nil
}
