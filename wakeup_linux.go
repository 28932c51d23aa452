//go:build linux

package mainloop

import (
	"golang.org/x/sys/unix"
)

// createWakePipe creates the wake-up pipe pair (Linux).
func createWakePipe() (readFD, writeFD int, err error) {
	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_CLOEXEC); err != nil {
		return -1, -1, err
	}
	return p[0], p[1], nil
}
