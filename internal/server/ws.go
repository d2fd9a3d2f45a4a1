package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// event is the wire envelope for both directions of the channel.
type event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outEvent struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// hub tracks connected director clients. All websocket writes go through it
// so broadcasts and replies never interleave on a connection.
type hub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newHub() *hub {
	return &hub{conns: map[*websocket.Conn]struct{}{}}
}

func (h *hub) add(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[conn] = struct{}{}
}

func (h *hub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, conn)
}

func (h *hub) broadcast(name string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		if err := conn.WriteJSON(outEvent{Event: name, Data: data}); err != nil {
			slog.Warn("websocket broadcast failed", "error", err.Error())
		}
	}
}

func (h *hub) send(conn *websocket.Conn, name string, data any) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := conn.WriteJSON(outEvent{Event: name, Data: data}); err != nil {
		slog.Warn("websocket send failed", "error", err.Error())
	}
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("websocket upgrade failed", "error", err.Error())
		return
	}
	s.hub.add(conn)
	defer func() {
		s.hub.remove(conn)
		conn.Close()
	}()

	s.hub.send(conn, "game_state", map[string]any{"state": s.season.State()})

	for {
		var ev event
		if err := conn.ReadJSON(&ev); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "error", err.Error())
			}
			return
		}
		s.dispatch(r.Context(), conn, ev)
	}
}

func (s *Server) dispatch(ctx context.Context, conn *websocket.Conn, ev event) {
	switch ev.Event {
	case "start_game":
		if err := s.season.Start(); err != nil {
			s.sendError(conn, err)
			return
		}
		s.hub.broadcast("game_state", map[string]any{"state": s.season.State()})

	case "start_story":
		var req struct {
			Model string `json:"model"`
		}
		decodeData(ev.Data, &req)
		segment, err := s.season.StartStory(ctx, req.Model)
		if err != nil {
			s.sendError(conn, err)
			return
		}
		s.hub.broadcast("story_update", segment)
		s.hub.broadcast("game_state", map[string]any{"state": s.season.State()})

	case "director_choice":
		var req struct {
			Choice string `json:"choice"`
			Model  string `json:"model"`
		}
		decodeData(ev.Data, &req)
		segment, err := s.season.ProgressStory(ctx, req.Choice, req.Model)
		if err != nil {
			s.sendError(conn, err)
			return
		}
		s.hub.broadcast("story_update", segment)
		if segment.GameOver {
			s.hub.broadcast("game_state", map[string]any{"state": s.season.State()})
		}

	case "interact":
		var req struct {
			CharacterID    string `json:"character_id"`
			Text           string `json:"text"`
			ConversationID string `json:"conversation_id"`
		}
		decodeData(ev.Data, &req)
		result, err := s.show.Interact(ctx, req.CharacterID, req.Text, req.ConversationID)
		if err != nil {
			s.sendError(conn, err)
			return
		}
		s.hub.send(conn, "interaction", result)
		if _, err := s.show.ManageHistory(ctx, result.ConversationID); err != nil {
			slog.Error("history management failed", "conversation_id", result.ConversationID, "error", err.Error())
		}

	case "observe_character":
		var req struct {
			CharacterID     string `json:"character_id"`
			ObservationType string `json:"observation_type"`
			Context         string `json:"context"`
		}
		decodeData(ev.Data, &req)
		observation, err := s.show.ObserveCharacter(ctx, req.CharacterID, req.ObservationType, req.Context)
		if err != nil {
			s.sendError(conn, err)
			return
		}
		s.hub.broadcast("character_observation", observation)

	case "get_story_history":
		history, err := s.season.StoryHistory(ctx)
		if err != nil {
			s.sendError(conn, err)
			return
		}
		s.hub.send(conn, "story_history", history)

	case "end_game":
		if err := s.season.EndGame(ctx); err != nil {
			s.sendError(conn, err)
			return
		}
		s.hub.broadcast("game_state", map[string]any{"state": s.season.State()})

	default:
		s.hub.send(conn, "error", map[string]string{"message": "unknown event: " + ev.Event})
	}
}

func (s *Server) sendError(conn *websocket.Conn, err error) {
	s.hub.send(conn, "error", map[string]string{"message": err.Error()})
}

func decodeData(data json.RawMessage, v any) {
	if len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Warn("malformed event payload", "error", err.Error())
	}
}
