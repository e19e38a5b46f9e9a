package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/nats-io/nats.go"

	"wanna/internal/service/notify"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// In production, this should be more restrictive
		return true
	},
}

// wsClient bridges one user's NATS pod-event subject to a WebSocket
// connection.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	sub  *nats.Subscription
}

// UserPodStreamHandler streams pod notifications for a user over WebSocket.
func UserPodStreamHandler(natsConn *nats.Conn) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "id")
		if userID == "" {
			http.Error(w, "Missing user ID", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade to WebSocket: %v", err)
			return
		}

		client := &wsClient{
			conn: conn,
			send: make(chan []byte, 64),
		}

		sub, err := natsConn.Subscribe(notify.UserSubject(userID), func(msg *nats.Msg) {
			select {
			case client.send <- msg.Data:
			default:
				// Slow consumer; drop rather than block the NATS callback.
			}
		})
		if err != nil {
			log.Printf("Failed to subscribe for user %s: %v", userID, err)
			conn.Close()
			return
		}
		client.sub = sub

		go client.writePump()
		go client.readPump()

		welcome, _ := json.Marshal(map[string]interface{}{
			"type":    "welcome",
			"user_id": userID,
			"time":    time.Now(),
		})
		client.send <- welcome

		log.Printf("New pod stream connection for user %s", userID)
	}
}

// readPump drains the connection and keeps the pong deadline fresh. Clients
// do not send application messages on this stream.
func (c *wsClient) readPump() {
	defer c.close()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump forwards queued events to the peer and pings on an interval.
func (c *wsClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsClient) close() {
	if c.sub != nil {
		c.sub.Unsubscribe()
	}
	c.conn.Close()
}
