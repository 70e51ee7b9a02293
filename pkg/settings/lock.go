package settings

import "errors"

// errFileLocked may be returned by a fileSystem to report that another
// process holds the file.
var errFileLocked = errors.New("file locked by another process")

// isLockError reports whether err means the file exists but another process
// currently holds it exclusively.
func isLockError(err error) bool {
	return errors.Is(err, errFileLocked) || isPlatformLockError(err)
}
