package container

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
)

var (
	// ErrNotBound is returned when resuming a process that was never bound
	// to a container.
	ErrNotBound = errors.New("process is not bound to a container")

	// ErrAlreadyBound is returned when binding a process twice.
	ErrAlreadyBound = errors.New("process is already bound to a container")

	// ErrClosed is returned by operations on a released container.
	ErrClosed = errors.New("container is closed")

	// ErrInvalidTransition is returned when a launch attempt is moved to a
	// state that does not follow its current one.
	ErrInvalidTransition = errors.New("invalid launch state transition")

	// ErrNotSupported is returned for a limit category the platform has no
	// equivalent for.
	ErrNotSupported error = syscall.ENOTSUP
)

// ContainerError reports a failure to create the container or to apply one
// limit category to it.
type ContainerError struct {
	Category Category
	Code     uint32
	Err      error
}

func (e *ContainerError) Error() string {
	if e.Category == CategoryCreate {
		return fmt.Sprintf("%s failed with error code: %d: %v", e.Category, e.Code, e.Err)
	}
	return fmt.Sprintf("setting %s failed with error code: %d: %v", e.Category, e.Code, e.Err)
}

func (e *ContainerError) Unwrap() error { return e.Err }

// Stage is the step of a launch a LaunchError happened in.
type Stage string

const (
	StageSpawn  Stage = "process creation"
	StageBind   Stage = "binding to container"
	StageResume Stage = "resume"
)

// LaunchError reports a failure to create, bind or resume the target.
type LaunchError struct {
	Stage Stage
	Code  uint32
	Err   error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("%s failed with error code: %d: %v", e.Stage, e.Code, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

func newContainerError(category Category, err error) error {
	return &ContainerError{Category: category, Code: osCode(err), Err: err}
}

func newLaunchError(stage Stage, err error) error {
	return &LaunchError{Stage: stage, Code: osCode(err), Err: err}
}

// osCode extracts the numeric OS status (errno or Win32 error) from err,
// or 0 when err does not carry one.
func osCode(err error) uint32 {
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return uint32(errno)
	}
	return 0
}
