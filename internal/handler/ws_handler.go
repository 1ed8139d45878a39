package handlers

import (
	"net/http"

	"postfeed/internal/realtime"
)

// Subscribe upgrades to a websocket and streams post events until the
// client goes away.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered the request
		h.Logger.Debug("websocket upgrade failed", "error", err)
		return
	}

	sub, err := h.Hub.Register(realtime.NewWebsocketConn(conn))
	if err != nil {
		conn.Close()
		return
	}

	h.Logger.Info("viewer connected", "subscriber", sub.ID(), "subprotocol", conn.Subprotocol())
	realtime.ReadUntilClosed(h.Hub, sub, conn)
	h.Logger.Info("viewer disconnected", "subscriber", sub.ID())
}
