//go:build linux

package redirect

import "golang.org/x/sys/unix"

// dup2 is unavailable on some linux architectures, so use dup3 throughout.

func dupTo(oldfd, newfd int) error {
	return unix.Dup3(oldfd, newfd, 0)
}

func dupFd(fd int) (int, error) {
	return unix.Dup(fd)
}

func closeFd(fd int) {
	_ = unix.Close(fd)
}
