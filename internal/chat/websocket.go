// Package chat provides the WebSocket surface for interactive rewrite
// sessions. Each connection is scoped to one agent; every client message is
// one rewrite turn, answered with the suggestion and the chat activity ID the
// client later uses to mark a verdict.
package chat

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	"github.com/hhoang/fastai-rewrite/internal/domain"
	"github.com/hhoang/fastai-rewrite/internal/identity"
	"github.com/hhoang/fastai-rewrite/internal/rewrite"
)

// WebSocketHandler handles WebSocket-based chat rewrite sessions.
type WebSocketHandler struct {
	svc           *rewrite.Service
	allowedOrigin string
	isDev         bool
}

// NewWebSocketHandler creates a new WebSocket handler.
func NewWebSocketHandler(svc *rewrite.Service, allowedOrigin string, isDev bool) *WebSocketHandler {
	return &WebSocketHandler{
		svc:           svc,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
	}
}

// turnRequest is one client message: the text to rewrite plus an optional
// guidance note.
type turnRequest struct {
	Text string `json:"text"`
	Note string `json:"note,omitempty"`
}

// turnResponse answers one turn.
type turnResponse struct {
	ChatActivityID string `json:"chatActivityId"`
	Suggestion     string `json:"suggestion"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade on
// /ws/chat?agentId=.
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	user := identity.UserFromContext(r.Context())
	if user == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	agentID := r.URL.Query().Get("agentId")
	if agentID == "" {
		http.Error(w, "agentId is required", http.StatusBadRequest)
		return
	}

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	slog.Info("Chat session starting", "user_id", user.ID, "agent_id", agentID, "ip", r.RemoteAddr)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "user_id", user.ID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "user_id", user.ID)
		}
	}()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	h.turnLoop(ctx, ws, user, agentID)
	slog.Info("Chat session ended", "user_id", user.ID, "agent_id", agentID)
}

func (h *WebSocketHandler) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" {
		return true
	}
	if origin == h.allowedOrigin {
		return true
	}
	slog.Warn("WebSocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *WebSocketHandler) turnLoop(ctx context.Context, ws *websocket.Conn, user *domain.User, agentID string) {
	for {
		_, message, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("WebSocket closed by client", "user_id", user.ID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "user_id", user.ID)
			}
			return
		}

		var turn turnRequest
		if err := json.Unmarshal(message, &turn); err != nil {
			if err := h.writeJSON(ws, map[string]string{"error": "invalid message"}); err != nil {
				slog.Debug("Failed to send invalid message error", "error", err)
			}
			continue
		}

		resp, err := h.svc.Rewrite(ctx, user, rewrite.Request{
			AgentID:  agentID,
			Original: turn.Text,
			Prompt:   turn.Note,
			IsChat:   true,
		})
		if err != nil {
			slog.Warn("Chat turn failed", "agent_id", agentID, "error", err)
			if err := h.writeJSON(ws, map[string]string{"error": "rewrite failed"}); err != nil {
				slog.Debug("Failed to send rewrite error", "error", err)
			}
			continue
		}

		if err := h.writeJSON(ws, turnResponse{
			ChatActivityID: resp.ActivityID,
			Suggestion:     resp.Suggestion,
		}); err != nil {
			slog.Debug("Failed to send turn response", "error", err)
			return
		}
	}
}

func (h *WebSocketHandler) writeJSON(ws *websocket.Conn, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return ws.Write(context.Background(), websocket.MessageText, data)
}
