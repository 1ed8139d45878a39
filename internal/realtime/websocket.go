package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/gorilla/websocket"
)

const (
	SubprotocolJSON = "json"
	SubprotocolCBOR = "cbor"

	writeWait = 10 * time.Second
	closeWait = time.Second
)

// Subprotocols lists what the subscribe endpoint negotiates, preferred first.
var Subprotocols = []string{SubprotocolJSON, SubprotocolCBOR}

// WebsocketConn adapts a websocket connection to Conn. Events go out as
// text JSON frames, or binary CBOR frames when the client negotiated cbor.
type WebsocketConn struct {
	conn *websocket.Conn
	cbor bool
}

func NewWebsocketConn(conn *websocket.Conn) *WebsocketConn {
	return &WebsocketConn{
		conn: conn,
		cbor: conn.Subprotocol() == SubprotocolCBOR,
	}
}

func (c *WebsocketConn) WriteEvent(event Event) error {
	messageType, payload, err := EncodeEvent(event, c.cbor)
	if err != nil {
		return err
	}

	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return c.conn.WriteMessage(messageType, payload)
}

// Close sends a close frame if the writer is free within closeWait, then
// closes the underlying connection.
func (c *WebsocketConn) Close() error {
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(closeWait))
	return c.conn.Close()
}

// EncodeEvent returns the websocket frame type and payload for event.
func EncodeEvent(event Event, binary bool) (int, []byte, error) {
	if binary {
		payload, err := cbor.Marshal(event)
		if err != nil {
			return 0, nil, fmt.Errorf("encode cbor event: %w", err)
		}
		return websocket.BinaryMessage, payload, nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return 0, nil, fmt.Errorf("encode json event: %w", err)
	}
	return websocket.TextMessage, payload, nil
}

// ReadUntilClosed drains client frames until the connection fails, then
// unregisters sub. Clients are not expected to send anything.
func ReadUntilClosed(hub *Hub, sub *Subscriber, conn *websocket.Conn) {
	defer hub.Unregister(sub)

	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
