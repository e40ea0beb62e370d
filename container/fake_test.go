package container

import (
	"fmt"
	"syscall"
)

// events is a shared, ordered log of everything the fakes observe.
type events []string

func (e *events) add(format string, args ...interface{}) {
	*e = append(*e, fmt.Sprintf(format, args...))
}

type fakeProcess struct {
	pid       int
	log       *events
	resumeErr error
	killErr   error
	resumed   bool
	killed    bool
	released  bool
}

func (p *fakeProcess) Pid() int { return p.pid }

func (p *fakeProcess) Resume() error {
	if p.resumeErr != nil {
		return p.resumeErr
	}
	if p.killed {
		return syscall.ESRCH
	}
	p.resumed = true
	p.log.add("resume %d", p.pid)
	return nil
}

func (p *fakeProcess) Kill() error {
	p.killed = true
	p.log.add("kill %d", p.pid)
	return p.killErr
}

func (p *fakeProcess) Release() error {
	p.released = true
	return nil
}

type fakeSpawner struct {
	log       *events
	err       error
	resumeErr error
	killErr   error
	nextPid   int
	spawned   []*fakeProcess
}

func (s *fakeSpawner) SpawnSuspended(cmdline string) (SuspendedProcess, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.nextPid++
	p := &fakeProcess{pid: 100 + s.nextPid, log: s.log, resumeErr: s.resumeErr, killErr: s.killErr}
	s.spawned = append(s.spawned, p)
	s.log.add("spawn %s", cmdline)
	return p, nil
}

type fakeHandle struct {
	log         *events
	failOn      map[string]error
	values      map[string][]uint64
	assigned    []SuspendedProcess
	killOnClose bool
	closed      bool
	closeErr    error
}

func newFakeHandle(log *events) *fakeHandle {
	return &fakeHandle{log: log, failOn: map[string]error{}, values: map[string][]uint64{}}
}

func (h *fakeHandle) call(name string, values ...uint64) error {
	if err := h.failOn[name]; err != nil {
		return err
	}
	h.values[name] = values
	h.log.add("%s", name)
	return nil
}

func (h *fakeHandle) SetKillOnClose() error {
	if err := h.call("SetKillOnClose"); err != nil {
		return err
	}
	h.killOnClose = true
	return nil
}

func (h *fakeHandle) SetJobMemoryLimit(bytes uint64) error {
	return h.call("SetJobMemoryLimit", bytes)
}

func (h *fakeHandle) SetProcessMemoryLimit(bytes uint64) error {
	return h.call("SetProcessMemoryLimit", bytes)
}

func (h *fakeHandle) SetWorkingSet(min, max uint64) error {
	return h.call("SetWorkingSet", min, max)
}

func (h *fakeHandle) SetJobTimeLimit(ticks uint64) error {
	return h.call("SetJobTimeLimit", ticks)
}

func (h *fakeHandle) SetActiveProcessLimit(n uint32) error {
	return h.call("SetActiveProcessLimit", uint64(n))
}

func (h *fakeHandle) SetBreakawayOK() error {
	return h.call("SetBreakawayOK")
}

func (h *fakeHandle) SetAffinity(mask uint64) error {
	return h.call("SetAffinity", mask)
}

func (h *fakeHandle) SetPriorityClass(class uint32) error {
	return h.call("SetPriorityClass", uint64(class))
}

func (h *fakeHandle) SetSchedulingClass(class uint32) error {
	return h.call("SetSchedulingClass", uint64(class))
}

func (h *fakeHandle) SetCPURateHardCap(rate uint32) error {
	return h.call("SetCPURateHardCap", uint64(rate))
}

func (h *fakeHandle) SetCPUWeight(weight uint32) error {
	return h.call("SetCPUWeight", uint64(weight))
}

func (h *fakeHandle) SetUIRestrictions(mask uint32) error {
	return h.call("SetUIRestrictions", uint64(mask))
}

func (h *fakeHandle) Assign(p SuspendedProcess) error {
	if err := h.failOn["Assign"]; err != nil {
		return err
	}
	h.assigned = append(h.assigned, p)
	h.log.add("assign %d", p.Pid())
	return nil
}

// Close behaves like the OS: with kill-on-close every assigned process dies.
func (h *fakeHandle) Close() error {
	h.closed = true
	h.log.add("close")
	if h.closeErr != nil {
		return h.closeErr
	}
	if h.killOnClose {
		for _, p := range h.assigned {
			if fp, ok := p.(*fakeProcess); ok && fp.killed {
				continue
			}
			p.Kill()
		}
	}
	return nil
}

type fakeFactory struct {
	log     *events
	err     error
	handles []*fakeHandle
	setup   func(h *fakeHandle)
}

func (f *fakeFactory) Create() (Handle, error) {
	if f.err != nil {
		return nil, f.err
	}
	h := newFakeHandle(f.log)
	if f.setup != nil {
		f.setup(h)
	}
	f.handles = append(f.handles, h)
	f.log.add("create")
	return h, nil
}
