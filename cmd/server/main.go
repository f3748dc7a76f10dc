// Command server runs the canvasroom collaboration engine: the WebSocket
// room server plus its small HTTP surface (health, stats, PDF export).
package main

import (
	"fmt"
	"log"
	"net/http"

	"canvasroom/internal/config"
	"canvasroom/internal/discovery"
	"canvasroom/internal/httpapi"
	"canvasroom/internal/netutil"
	"canvasroom/internal/roommanager"
	"canvasroom/internal/session"
)

func main() {
	cfg := config.Load()

	manager := roommanager.New(cfg)
	manager.StartReaper()
	defer manager.Stop()

	dispatcher := session.NewDispatcher(manager)
	mux := httpapi.NewMux(manager, dispatcher)

	if cfg.EnableMDNSDiscovery {
		port := portNumber(cfg.Port)
		adv, err := discovery.Advertise(port)
		if err != nil {
			log.Printf("mDNS advertise failed, continuing without LAN discovery: %v", err)
		} else {
			defer adv.Shutdown()
		}
	}

	ip, err := netutil.OutgoingIP()
	if err != nil {
		log.Printf("could not determine outgoing IP: %v", err)
		ip = "127.0.0.1"
	}
	log.Printf("canvasroom listening on :%s (share ws://%s:%s/ws)", cfg.Port, ip, cfg.Port)

	if err := http.ListenAndServe(":"+cfg.Port, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

func portNumber(port string) int {
	var n int
	if _, err := fmt.Sscanf(port, "%d", &n); err != nil {
		return 8080
	}
	return n
}
