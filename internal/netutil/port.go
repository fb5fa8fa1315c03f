package netutil

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
)

// loopback is the address the server binds in development and production.
const loopback = "127.0.0.1"

// FreePort asks the kernel for an unused loopback port. The listener is
// closed before returning, so another process may claim the port before the
// caller binds it.
func FreePort() (int, error) {
	l, err := net.ListenTCP("tcp", &net.TCPAddr{IP: net.ParseIP(loopback)})
	if err != nil {
		return 0, fmt.Errorf("listen on tcp address: %w", err)
	}
	tcpAddr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		_ = l.Close()
		return 0, fmt.Errorf("unexpected address type: %T", l.Addr())
	}
	if err := l.Close(); err != nil {
		return 0, fmt.Errorf("close listener: %w", err)
	}
	return tcpAddr.Port, nil
}

// PortInUse reports whether port is already bound on the loopback interface.
// Errors other than "address in use" (permission denied for privileged ports)
// report false: the server will hit the same error and report it itself.
func PortInUse(port int) bool {
	l, err := net.Listen("tcp", net.JoinHostPort(loopback, strconv.Itoa(port)))
	if err != nil {
		return errors.Is(err, syscall.EADDRINUSE)
	}
	_ = l.Close()
	return false
}
