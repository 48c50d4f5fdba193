package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"blogclient/internal/app/live"
	"blogclient/internal/pkg/logx"
)

// newUpgrader accepts any origin in development, otherwise only ALLOWED_ORIGINS.
func newUpgrader(deps *AppDeps) websocket.Upgrader {
	allowedOrigins := make(map[string]struct{}, len(deps.Config.AllowedOrigins))
	for _, origin := range deps.Config.AllowedOrigins {
		allowedOrigins[origin] = struct{}{}
	}

	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if deps.Config.IsDevelopment() {
				return true
			}

			origin := r.Header.Get("Origin")
			if _, ok := allowedOrigins[origin]; ok {
				return true
			}

			logx.Warn("WebSocket connection rejected: Origin not allowed.", "origin", origin)
			return false
		},
	}
}

// HandleSessionLive upgrades the request and streams session snapshots until
// the view disconnects or the hub stops.
func HandleSessionLive(hub *live.Hub, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logx.Error(err, "Failed to upgrade connection to WebSocket")
			return
		}

		client := live.NewClient(hub, conn)

		if !hub.Register(client) {
			_ = conn.Close()
			return
		}

		go client.WritePump()

		client.ReadPump()
	}
}
