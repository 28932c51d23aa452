//go:build linux || darwin

package mainloop

import (
	"golang.org/x/sys/unix"
)

// defaultPoll is the poll(2)-backed readiness backend.
func defaultPoll(fds []PollFD, timeoutMs int) int {
	pfds := make([]unix.PollFd, len(fds))
	for i := range fds {
		pfds[i] = unix.PollFd{
			Fd:     int32(fds[i].FD),
			Events: eventsToPoll(fds[i].Events),
		}
	}

	n, err := unix.Poll(pfds, timeoutMs)
	if err != nil {
		if err == unix.EINTR {
			return 0
		}
		return -1
	}

	for i := range fds {
		fds[i].REvents = pollToEvents(pfds[i].Revents)
	}
	return n
}

// eventsToPoll converts a requested IOEvents mask to poll(2) flags.
func eventsToPoll(events IOEvents) int16 {
	var p int16
	if events&EventRead != 0 {
		p |= unix.POLLIN
	}
	if events&EventWrite != 0 {
		p |= unix.POLLOUT
	}
	if events&EventPriority != 0 {
		p |= unix.POLLPRI
	}
	return p
}

// pollToEvents converts poll(2) revents to an IOEvents result mask.
func pollToEvents(revents int16) IOEvents {
	var events IOEvents
	if revents&unix.POLLIN != 0 {
		events |= EventRead
	}
	if revents&unix.POLLOUT != 0 {
		events |= EventWrite
	}
	if revents&unix.POLLPRI != 0 {
		events |= EventPriority
	}
	if revents&unix.POLLERR != 0 {
		events |= EventError
	}
	if revents&unix.POLLHUP != 0 {
		events |= EventHangup
	}
	return events
}
