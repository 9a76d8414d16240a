package handlers

import (
	"log/slog"
	"net/http"
	"slices"

	"github.com/Dosada05/tournament-engine/notify"
	"github.com/Dosada05/tournament-engine/services"
	"github.com/gorilla/websocket"
)

type WebSocketHandler struct {
	hub               *notify.Hub
	tournamentService services.TournamentService
	upgrader          websocket.Upgrader
	logger            *slog.Logger
}

// NewWebSocketHandler принимает список разрешённых Origin; "*" разрешает всё.
func NewWebSocketHandler(hub *notify.Hub, ts services.TournamentService, allowedOrigins []string, logger *slog.Logger) *WebSocketHandler {
	allowAll := len(allowedOrigins) == 0 || slices.Contains(allowedOrigins, "*")
	return &WebSocketHandler{
		hub:               hub,
		tournamentService: ts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowAll || origin == "" || slices.Contains(allowedOrigins, origin)
			},
		},
		logger: logger,
	}
}

// ServeWs подключает клиента к комнате турнира: /ws/tournaments/{tournamentID}
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if _, err := h.tournamentService.Get(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade сам отвечает клиенту.
		h.logger.WarnContext(r.Context(), "websocket upgrade failed", slog.Int("tournament_id", id), slog.Any("error", err))
		return
	}

	client := &notify.Client{
		Hub:  h.hub,
		Conn: conn,
		Send: make(chan []byte, 256),
		Room: notify.RoomFor(id),
	}
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()
}
