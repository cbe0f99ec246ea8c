package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/medfata/inkscore-sub000/internal/eventbus"

	"github.com/gorilla/websocket"
)

// hub fans out broadcast messages to every connected /ws/feed client.
type hub struct {
	clients    map[*wsClient]bool
	broadcast  chan []byte
	register   chan *wsClient
	unregister chan *wsClient
	mutex      sync.Mutex
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub() *hub {
	return &hub{
		broadcast:  make(chan []byte),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
		clients:    make(map[*wsClient]bool),
	}
}

func (h *hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mutex.Lock()
			h.clients[client] = true
			h.mutex.Unlock()
		case client := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mutex.Unlock()
		case message := <-h.broadcast:
			h.mutex.Lock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					close(client.send)
					delete(h.clients, client)
				}
			}
			h.mutex.Unlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// feedMessage is the envelope pushed to every /ws/feed subscriber.
type feedMessage struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TxHash    interface{} `json:"txHash,omitempty"`
}

// handleWSFeed upgrades the connection and registers it with the shared hub;
// the hub's own goroutine (started by startFeedPump) is what actually
// publishes messages, sourced from tx.enriched events on the event bus.
func (s *Server) handleWSFeed(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("ws/feed upgrade error:", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 256)}
	s.wsHub.register <- client

	go func() {
		defer func() {
			s.wsHub.unregister <- client
			conn.Close()
		}()
		for {
			message, ok := <-client.send
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			wc, err := conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			wc.Write(message)
			wc.Close()
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

// startFeedPump launches the hub's dispatch loop and a subscriber that
// forwards tx.enriched events from the bus onto it. Called once from
// NewServer.
func (s *Server) startFeedPump() {
	go s.wsHub.run()

	ch := make(chan eventbus.Event, 256)
	s.bus.Subscribe("tx.enriched", ch)
	go func() {
		for evt := range ch {
			body, err := json.Marshal(feedMessage{
				Type:      evt.Type,
				Timestamp: evt.Timestamp,
				TxHash:    evt.Data,
			})
			if err != nil {
				continue
			}
			s.wsHub.broadcast <- body
		}
	}()
}
