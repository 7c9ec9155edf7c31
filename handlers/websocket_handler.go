package handlers

import (
	"log/slog"
	"net/http"

	"github.com/Ljimmex/NexArenav2-sub001/brackets"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the frontend origin before exposing publicly.
		return true
	},
}

type WebSocketHandler struct {
	hub *brackets.Hub
	log *slog.Logger
}

func NewWebSocketHandler(hub *brackets.Hub, log *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, log: log}
}

// ServeWs subscribes the connection to one tournament's bracket events.
// Clients connect to /ws/tournaments/{tournamentID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("failed to upgrade websocket connection",
			slog.Int("tournament_id", tournamentID),
			slog.Any("error", err),
		)
		return
	}

	client := &brackets.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: brackets.TournamentRoom(tournamentID),
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
