package api

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// upgrader upgrades terminal requests to websocket connections. The panel
// UI may be served from a different origin than the gateway.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// HandleTerminal upgrades the connection and hands it to the terminal
// bridge for the life of the session
func (s *RESTServer) HandleTerminal(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("remote_addr", r.RemoteAddr).Msg("Terminal upgrade failed")
		return
	}
	defer conn.Close()

	s.bridge.Serve(conn)
}
