//go:build linux
// +build linux

package cgroups

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// Kill sends SIGKILL to every process in the group until it is empty.
// Processes forked while the group is being emptied are caught by the
// next round.
func (m *Manager) Kill() error {
	delay := 5 * time.Millisecond
	for i := 0; i < 10; i++ {
		pids, err := m.Processes()
		if err != nil {
			return err
		}
		if len(pids) == 0 {
			return nil
		}
		for _, pid := range pids {
			if err := unix.Kill(pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
				return err
			}
		}
		time.Sleep(delay)
		delay *= 2
	}
	return fmt.Errorf("cgroups: processes left in %s after kill", m.path)
}
