// Package netutil provides the small local-network helpers the server
// needs to print a usable join URL and, optionally, advertise itself.
package netutil

import (
	"log"
	"net"
)

// OutgoingIP finds the preferred local IP address for the host to share
// with people joining a room over LAN.
func OutgoingIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return localIPFallback()
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String(), nil
}

// localIPFallback is used on hosts without internet access.
func localIPFallback() (string, error) {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return "", err
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String(), nil
			}
		}
	}
	log.Println("[netutil] no suitable local IP found, falling back to loopback")
	return "127.0.0.1", nil
}
