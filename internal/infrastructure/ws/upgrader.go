package ws

import (
	"net/http"
	"net/url"
	"slices"

	"github.com/gorilla/websocket"
)

// NewUpgrader accepts browsers from allowedOrigins; "*" accepts any origin.
// Requests without an Origin header are non-browser clients and pass.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || slices.Contains(allowedOrigins, "*") {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			return slices.Contains(allowedOrigins, origin) || slices.Contains(allowedOrigins, u.Host)
		},
	}
}
