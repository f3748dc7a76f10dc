// Package discovery advertises the room server on the local network via
// mDNS so LAN peers can find it without typing an IP. It is entirely
// optional — the server runs the same either way — and is gated by
// config.Config.EnableMDNSDiscovery.
package discovery

import (
	"fmt"
	"log"
	"os"

	"github.com/hashicorp/mdns"
)

const serviceType = "_canvasroom._tcp"

// Advertiser wraps the running mDNS server so it can be shut down cleanly.
type Advertiser struct {
	server *mdns.Server
}

// Advertise publishes a canvasroom service record for port on the local
// segment. Callers should defer Shutdown.
func Advertise(port int) (*Advertiser, error) {
	host, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("discovery: could not get hostname: %w", err)
	}

	service, err := mdns.NewMDNSService(
		host,
		serviceType,
		"",
		"",
		port,
		nil,
		[]string{"canvasroom collaborative whiteboard"},
	)
	if err != nil {
		return nil, fmt.Errorf("discovery: failed to build mDNS service: %w", err)
	}

	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("discovery: failed to start mDNS server: %w", err)
	}

	log.Printf("[discovery] advertising %s on port %d", serviceType, port)
	return &Advertiser{server: server}, nil
}

// Shutdown stops advertising.
func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}

// Browse looks for other canvasroom instances on the LAN, invoking found
// for each one discovered. It blocks until the lookup's internal timeout
// elapses; callers typically run it in a goroutine.
func Browse(found func(addr string)) error {
	entries := make(chan *mdns.ServiceEntry, 8)
	go func() {
		for e := range entries {
			if e.AddrV4 == nil || e.Port == 0 {
				continue
			}
			found(fmt.Sprintf("%s:%d", e.AddrV4.String(), e.Port))
		}
	}()
	return mdns.Lookup(serviceType, entries)
}
