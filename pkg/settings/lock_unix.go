//go:build unix

package settings

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isPlatformLockError(err error) bool {
	return errors.Is(err, unix.EBUSY) ||
		errors.Is(err, unix.EAGAIN) ||
		errors.Is(err, unix.ETXTBSY)
}
