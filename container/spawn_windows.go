//go:build windows
// +build windows

package container

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

type createProcessSpawner struct {
	flags uint32
}

// NewSpawner returns a spawner that starts each target suspended in a new
// console window.
func NewSpawner() Spawner {
	return &createProcessSpawner{flags: windows.CREATE_SUSPENDED | windows.CREATE_NEW_CONSOLE}
}

func (s *createProcessSpawner) SpawnSuspended(cmdline string) (SuspendedProcess, error) {
	// CreateProcess may modify the command line buffer in place.
	cmd, err := windows.UTF16FromString(cmdline)
	if err != nil {
		return nil, errors.Wrap(windows.ERROR_INVALID_PARAMETER, err.Error())
	}
	si := &windows.StartupInfo{}
	si.Cb = uint32(unsafe.Sizeof(*si))
	p := &windowsProcess{}
	if err := windows.CreateProcess(nil, &cmd[0], nil, nil, false, s.flags, nil, nil, si, &p.info); err != nil {
		return nil, errors.Wrap(err, "CreateProcess")
	}
	return p, nil
}

type windowsProcess struct {
	info     windows.ProcessInformation
	released bool
}

func (p *windowsProcess) Pid() int {
	return int(p.info.ProcessId)
}

func (p *windowsProcess) Resume() error {
	if n, err := windows.ResumeThread(p.info.Thread); n == 0xFFFFFFFF {
		return errors.Wrap(err, "ResumeThread")
	}
	return nil
}

func (p *windowsProcess) Kill() error {
	return windows.TerminateProcess(p.info.Process, 1)
}

func (p *windowsProcess) Release() error {
	if p.released {
		return nil
	}
	p.released = true
	err := windows.CloseHandle(p.info.Thread)
	if perr := windows.CloseHandle(p.info.Process); err == nil {
		err = perr
	}
	return err
}
