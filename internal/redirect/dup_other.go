//go:build unix && !linux

package redirect

import "golang.org/x/sys/unix"

func dupTo(oldfd, newfd int) error {
	return unix.Dup2(oldfd, newfd)
}

func dupFd(fd int) (int, error) {
	return unix.Dup(fd)
}

func closeFd(fd int) {
	_ = unix.Close(fd)
}
