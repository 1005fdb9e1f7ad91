// Package port hands out a free loopback TCP port for the backend to bind.
package port

import (
	"errors"
	"fmt"
	"net"
)

// MinPort is the lowest port Allocate will ever return.
const MinPort = 1024

// maxAttempts bounds how many ephemeral bindings are tried before giving up.
const maxAttempts = 8

// ErrPortExhausted is returned when the OS refuses every ephemeral binding.
var ErrPortExhausted = errors.New("no free port available")

// Allocate binds 127.0.0.1:0, reads the OS-assigned port and releases the
// listener immediately. The port is advisory: another process may take it
// before the backend binds.
func Allocate() (uint16, error) {
	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		p, err := tryBind()
		if err != nil {
			lastErr = err
			continue
		}
		if p < MinPort {
			lastErr = fmt.Errorf("os assigned privileged port %d", p)
			continue
		}
		return p, nil
	}
	return 0, fmt.Errorf("%w: %v", ErrPortExhausted, lastErr)
}

func tryBind() (uint16, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	addr, ok := l.Addr().(*net.TCPAddr)
	if !ok {
		return 0, fmt.Errorf("unexpected listener address %T", l.Addr())
	}
	return uint16(addr.Port), nil
}
