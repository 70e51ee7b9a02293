//go:build !unix && !windows

package settings

func isPlatformLockError(error) bool { return false }
