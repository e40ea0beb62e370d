//go:build windows
// +build windows

package container

import "github.com/pkg/errors"

// StartInitialization is only used by the Linux launcher; Windows creates
// the target suspended directly.
func StartInitialization() error {
	return errors.Wrap(ErrNotSupported, "init")
}
