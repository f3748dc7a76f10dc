// Package httpapi exposes the small set of plain HTTP endpoints that sit
// alongside the WebSocket upgrade path: health, operational stats, and a
// per-room PDF export.
package httpapi

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"canvasroom/internal/export"
	"canvasroom/internal/roommanager"
)

// NewMux wires the health, stats, and export endpoints together with the
// WebSocket handler the caller has already built.
func NewMux(manager *roommanager.Manager, ws http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", ws)
	mux.HandleFunc("/health", handleHealth(manager))
	mux.HandleFunc("/stats", handleStats(manager))
	mux.HandleFunc("/rooms/", handleRoomExport(manager))
	return mux
}

func handleHealth(manager *roommanager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"stats":     manager.Stats(),
			"timestamp": time.Now().UnixMilli(),
		})
	}
}

func handleStats(manager *roommanager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, manager.Stats())
	}
}

// handleRoomExport serves GET /rooms/{roomId}/export.pdf, a supplemental
// endpoint not present in the original app's own HTTP surface but exposed
// by its desktop File > Export feature; here it becomes a server-rendered
// snapshot any client can pull without holding an open canvas.
func handleRoomExport(manager *roommanager.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/rooms/")
		roomID, rest, found := strings.Cut(path, "/")
		if !found || rest != "export.pdf" {
			http.NotFound(w, r)
			return
		}
		rm, ok := manager.Room(roomID)
		if !ok {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}
		ops := rm.Log.ActiveOperations()
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="`+roomID+`.pdf"`)
		if err := export.PDF(w, ops); err != nil {
			log.Printf("[httpapi] export failed for room %s: %v", roomID, err)
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[httpapi] failed to encode response: %v", err)
	}
}
