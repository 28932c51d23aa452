//go:build linux || darwin

package mainloop

import (
	"golang.org/x/sys/unix"
)

// SelectPoll is a select(2)-backed readiness backend with the same
// contract as the default poll(2) backend. It exists for environments
// where poll(2) is unavailable or undesirable, and can be installed
// with [Context.SetPollFunc].
//
// select(2) has no equivalent of POLLERR/POLLHUP; error and hangup
// conditions surface as readability instead.
func SelectPoll(fds []PollFD, timeoutMs int) int {
	var rset, wset, xset unix.FdSet
	maxFD := 0

	for i := range fds {
		fd := fds[i].FD
		if fd < 0 {
			continue
		}
		if fds[i].Events&EventRead != 0 {
			rset.Set(fd)
		}
		if fds[i].Events&EventWrite != 0 {
			wset.Set(fd)
		}
		if fds[i].Events&EventPriority != 0 {
			xset.Set(fd)
		}
		if fd > maxFD && fds[i].Events&(EventRead|EventWrite|EventPriority) != 0 {
			maxFD = fd
		}
	}

	var tvp *unix.Timeval
	if timeoutMs >= 0 {
		tv := unix.NsecToTimeval(int64(timeoutMs) * 1e6)
		tvp = &tv
	}

	n, err := unix.Select(maxFD+1, &rset, &wset, &xset, tvp)
	if err != nil {
		if err == unix.EINTR {
			return 0
		}
		return -1
	}

	ready := 0
	if n > 0 {
		for i := range fds {
			fds[i].REvents = 0
			fd := fds[i].FD
			if fd < 0 {
				continue
			}
			if rset.IsSet(fd) {
				fds[i].REvents |= EventRead
			}
			if wset.IsSet(fd) {
				fds[i].REvents |= EventWrite
			}
			if xset.IsSet(fd) {
				fds[i].REvents |= EventPriority
			}
			if fds[i].REvents != 0 {
				ready++
			}
		}
	}

	return ready
}
