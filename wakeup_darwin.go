//go:build darwin

package mainloop

import (
	"golang.org/x/sys/unix"
)

// createWakePipe creates the wake-up pipe pair (Darwin). pipe2 is not
// available, so the close-on-exec flags are set separately.
func createWakePipe() (readFD, writeFD int, err error) {
	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		return -1, -1, err
	}
	unix.CloseOnExec(p[0])
	unix.CloseOnExec(p[1])
	return p[0], p[1], nil
}
