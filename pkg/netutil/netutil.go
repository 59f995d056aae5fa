package netutil

import (
	"fmt"
	"net"
)

// LocalIP resolves the LAN address a mobile client can reach this host on.
// The UDP dial never sends a packet; it only asks the kernel which source
// address would be used for an outbound route.
func LocalIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", fmt.Errorf("resolve local address: %w", err)
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address type %T", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}
