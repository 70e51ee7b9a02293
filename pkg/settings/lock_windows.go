//go:build windows

package settings

import (
	"errors"

	"golang.org/x/sys/windows"
)

func isPlatformLockError(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) ||
		errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
