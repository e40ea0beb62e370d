//go:build !linux && !windows
// +build !linux,!windows

package container

import "github.com/pkg/errors"

// NewFactory returns a factory that always fails: this platform has no
// container primitive jobrun can use.
func NewFactory() Factory {
	return FactoryFunc(func() (Handle, error) {
		return nil, errors.Wrap(ErrNotSupported, "containers")
	})
}

type unsupportedSpawner struct{}

// NewSpawner returns a spawner that always fails on this platform.
func NewSpawner() Spawner {
	return unsupportedSpawner{}
}

func (unsupportedSpawner) SpawnSuspended(string) (SuspendedProcess, error) {
	return nil, errors.Wrap(ErrNotSupported, "suspended process creation")
}

// StartInitialization is only used by the Linux launcher.
func StartInitialization() error {
	return errors.Wrap(ErrNotSupported, "init")
}
