package brackets

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TournamentRoom names the websocket room for one tournament's bracket.
func TournamentRoom(tournamentID int) string {
	return "tournament_" + strconv.Itoa(tournamentID)
}

// Event types pushed to bracket viewers.
const (
	EventBracketGenerated = "BRACKET_GENERATED"
	EventMatchUpdated     = "MATCH_UPDATED"
	EventMatchReopened    = "MATCH_REOPENED"
	EventTournamentWinner = "TOURNAMENT_WINNER"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Message is the envelope for every websocket push. RoomID is the tournament
// room the message belongs to.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

// Client is one websocket subscriber attached to a tournament room.
type Client struct {
	Hub  *Hub
	Conn *websocket.Conn
	Send chan []byte
	Room string

	mu     sync.Mutex
	closed bool
}

// Hub fans bracket events out to per-tournament rooms of websocket clients.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	mu    sync.RWMutex
	rooms map[string]map[*Client]bool
	log   *slog.Logger
}

func NewHub(log *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		log:        log,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.log.Debug("websocket client joined", slog.String("room", client.Room), slog.Int("clients", len(h.rooms[client.Room])))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, member := clients[client]; member {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastToRoom sends one event to every client in the given room. Slow
// clients are skipped rather than blocking the caller.
func (h *Hub) BroadcastToRoom(roomID string, eventType string, payload interface{}) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[roomID]
	if !ok {
		return
	}

	raw, err := json.Marshal(Message{Type: eventType, Payload: payload, RoomID: roomID})
	if err != nil {
		h.log.Error("failed to marshal websocket message", slog.String("room", roomID), slog.Any("error", err))
		return
	}

	for client := range clients {
		client.mu.Lock()
		if client.closed {
			client.mu.Unlock()
			continue
		}
		select {
		case client.Send <- raw:
		default:
			h.log.Warn("websocket client send buffer full, dropping message", slog.String("room", roomID))
		}
		client.mu.Unlock()
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// ReadPump drains (and discards) inbound frames so pongs are processed, and
// unregisters the client when the connection drops.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

// WritePump flushes the send channel to the connection and keeps it alive
// with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
