// Package sockopt constructs the non-blocking, SO_REUSEADDR listening
// sockets the multiplexer polls, adapted from
// MiraiMindz-watt/shockwave/pkg/shockwave/socket's raw fd tuning (there done
// with the syscall package; here done with the more portable
// golang.org/x/sys/unix used across the wider example pack) and from
// original_source/src/MonitorInit.cpp::initListenFd's
// socket→setsockopt→bind→fcntl→listen sequence.
package sockopt

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DefaultBacklog matches LISTEN_BACKLOG, the backlog MonitorInit.cpp passes
// to listen(2).
const DefaultBacklog = 10

// Listen creates a non-blocking IPv4 TCP listening socket bound to
// ip (host byte order, 0 == INADDR_ANY) and port, with SO_REUSEADDR set,
// matching MonitorInit.cpp::initListenFd.
func Listen(ip uint32, port uint16) (int, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return -1, fmt.Errorf("sockopt: socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("sockopt: SO_REUSEADDR: %w", err)
	}

	addr := &unix.SockaddrInet4{Port: int(port)}
	addr.Addr = ipv4Bytes(ip)

	if err := unix.Bind(fd, addr); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("sockopt: bind: %w", err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("sockopt: set non-blocking: %w", err)
	}

	if err := unix.Listen(fd, DefaultBacklog); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("sockopt: listen: %w", err)
	}

	return fd, nil
}

func ipv4Bytes(ip uint32) [4]byte {
	return [4]byte{
		byte(ip >> 24),
		byte(ip >> 16),
		byte(ip >> 8),
		byte(ip),
	}
}

// SetNonblocking marks fd as non-blocking, used by the multiplexer on each
// connection descriptor returned by accept.
func SetNonblocking(fd int) error {
	return unix.SetNonblock(fd, true)
}

// Close closes a raw file descriptor created by Listen.
func Close(fd int) error {
	return unix.Close(fd)
}
