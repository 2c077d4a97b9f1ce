// Package socket wraps the non-blocking listen/accept/read/write/setopt
// primitives the reactor core needs, grounded on the teacher's own
// internal/socket usage (socket.TCPConnect, socket.SetNoDelay,
// socket.SetKeepAlive, socket.SetRecvBuffer, socket.SetSendBuffer in
// server_unix.go).
package socket

import (
	"net"

	"golang.org/x/sys/unix"
)

// ListenTCP opens a non-blocking, SO_REUSEADDR listening socket bound to
// addr:port with the given accept backlog. It returns the actual bound
// port, which differs from the requested port when port is 0 (OS-assigned
// ephemeral port).
func ListenTCP(addr string, port int, backlog int) (fd int, boundPort int, err error) {
	ip := net.ParseIP(addr)
	v6 := ip != nil && ip.To4() == nil

	family := unix.AF_INET
	if v6 {
		family = unix.AF_INET6
	}

	fd, err = unix.Socket(family, unix.SOCK_STREAM, unix.IPPROTO_TCP)
	if err != nil {
		return -1, 0, err
	}

	if err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		_ = unix.Close(fd)
		return -1, 0, err
	}

	var sa unix.Sockaddr
	if v6 {
		sa6 := &unix.SockaddrInet6{Port: port}
		copy(sa6.Addr[:], ip.To16())
		sa = sa6
	} else {
		sa4 := &unix.SockaddrInet4{Port: port}
		if ip != nil {
			copy(sa4.Addr[:], ip.To4())
		}
		sa = sa4
	}

	if err = unix.Bind(fd, sa); err != nil {
		_ = unix.Close(fd)
		return -1, 0, err
	}
	if err = unix.Listen(fd, backlog); err != nil {
		_ = unix.Close(fd)
		return -1, 0, err
	}
	if err = unix.SetNonblock(fd, true); err != nil {
		_ = unix.Close(fd)
		return -1, 0, err
	}

	boundPort = port
	if port == 0 {
		local, serr := unix.Getsockname(fd)
		if serr != nil {
			_ = unix.Close(fd)
			return -1, 0, serr
		}
		_, boundPort = sockaddrToHostPort(local)
	}
	return fd, boundPort, nil
}

// Accept accepts one pending connection on fd, returning the new socket
// and the peer's address/port. The new socket is not put into
// non-blocking mode here; callers use SetNonblock for that.
func Accept(fd int) (connFd int, remoteAddr string, remotePort int, err error) {
	nfd, sa, err := unix.Accept(fd)
	if err != nil {
		return -1, "", 0, err
	}
	remoteAddr, remotePort = sockaddrToHostPort(sa)
	return nfd, remoteAddr, remotePort, nil
}

func sockaddrToHostPort(sa unix.Sockaddr) (string, int) {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IP(v.Addr[:]).String(), v.Port
	case *unix.SockaddrInet6:
		return net.IP(v.Addr[:]).String(), v.Port
	default:
		return "", 0
	}
}

// SetNonblock puts fd into non-blocking mode.
func SetNonblock(fd int) error {
	return unix.SetNonblock(fd, true)
}

// SetNoDelay toggles TCP_NODELAY on fd.
func SetNoDelay(fd int, enable bool) error {
	v := 0
	if enable {
		v = 1
	}
	return unix.SetsockoptInt(fd, unix.IPPROTO_TCP, unix.TCP_NODELAY, v)
}

// Read issues one non-blocking read syscall into b.
func Read(fd int, b []byte) (int, error) {
	return unix.Read(fd, b)
}

// Write issues one non-blocking write syscall of b.
func Write(fd int, b []byte) (int, error) {
	return unix.Write(fd, b)
}

// Close closes fd.
func Close(fd int) error {
	return unix.Close(fd)
}

// IsAgain reports whether err is the non-blocking "try again" errno.
func IsAgain(err error) bool {
	return err == unix.EAGAIN || err == unix.EWOULDBLOCK
}
