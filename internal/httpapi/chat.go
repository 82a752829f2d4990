package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/antoniostano/zinger/internal/conversation"
	"github.com/antoniostano/zinger/internal/protocol"
	"github.com/antoniostano/zinger/internal/session"
)

// Chat is the conversation controller as seen by the HTTP surface.
type Chat interface {
	NewState() conversation.State
	Respond(ctx context.Context, state conversation.State, text string) (conversation.State, conversation.Turn, error)
}

type sendMessageRequest struct {
	Text string `json:"text"`
}

type sendMessageResponse struct {
	SessionID          string              `json:"session_id"`
	Reply              conversation.Turn   `json:"reply"`
	ConversationStatus conversation.Status `json:"conversation_status"`
	TurnCount          int                 `json:"turn_count"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "empty_message", "text is required")
		return
	}

	sess, reply, err := s.runTurn(r.Context(), id, req.Text)
	if err != nil {
		s.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sendMessageResponse{
		SessionID:          sess.ID,
		Reply:              reply,
		ConversationStatus: sess.Conversation.Status,
		TurnCount:          sess.TurnCount,
	})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.resetSession(chi.URLParam(r, "id"))
	if err != nil {
		s.respondSessionError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, session.NewResponse(sess, s.sessions.InactivityTimeout()))
}

// runTurn claims the session, runs one controller turn and stores the result.
// The turn is detached from request cancellation so a dropped client does not
// leave a half-finished exchange behind.
func (s *Server) runTurn(ctx context.Context, sessionID, text string) (*session.Session, conversation.Turn, error) {
	if s.chat == nil {
		return nil, conversation.Turn{}, errChatUnavailable
	}
	state, err := s.sessions.BeginTurn(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrBusy) {
			s.metrics.SessionEvent("busy")
		}
		return nil, conversation.Turn{}, err
	}

	next, reply, err := s.chat.Respond(context.WithoutCancel(ctx), state, text)
	if err != nil {
		s.sessions.AbortTurn(sessionID)
		return nil, conversation.Turn{}, err
	}
	sess, err := s.sessions.CompleteTurn(sessionID, next)
	if err != nil {
		return nil, conversation.Turn{}, err
	}
	s.logger.Debug("turn completed",
		zap.String("session_id", sessionID),
		zap.String("source", string(reply.Source)),
		zap.String("status", string(sess.Conversation.Status)),
	)
	return sess, reply, nil
}

func (s *Server) resetSession(sessionID string) (*session.Session, error) {
	if s.chat == nil {
		return nil, errChatUnavailable
	}
	sess, err := s.sessions.Reset(sessionID, s.chat.NewState())
	if err != nil {
		return nil, err
	}
	s.metrics.SessionEvent("reset")
	return sess, nil
}

var errChatUnavailable = errors.New("chat controller not configured")

func sessionErrorCode(err error) (int, string) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound, "session_not_found"
	case errors.Is(err, session.ErrEnded):
		return http.StatusGone, "session_ended"
	case errors.Is(err, session.ErrBusy):
		return http.StatusConflict, "session_busy"
	case errors.Is(err, conversation.ErrTerminated):
		return http.StatusConflict, "conversation_terminated"
	case errors.Is(err, errChatUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) respondSessionError(w http.ResponseWriter, err error) {
	status, code := sessionErrorCode(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("chat request failed", zap.Error(err))
	}
	respondError(w, status, code, err.Error())
}

func (s *Server) handleSessionWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		respondError(w, http.StatusBadRequest, "missing_session_id", "query parameter session_id is required")
		return
	}
	if s.chat == nil {
		respondError(w, http.StatusServiceUnavailable, "unavailable", "chat controller not configured")
		return
	}

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		s.respondSessionError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.SessionEvent("ws_connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	inbound := make(chan any, 32)
	outbound := make(chan any, 32)
	runDone := make(chan struct{})

	go func() {
		defer close(runDone)
		defer close(outbound)
		s.runConnection(ctx, sessionID, inbound, outbound)
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for msg := range outbound {
			_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(msg); err != nil {
				s.logger.Debug("websocket write failed", zap.String("session_id", sessionID), zap.Error(err))
				cancel()
				// Keep draining so the connection goroutine never blocks.
				continue
			}
			if t, ok := messageTypeOf(msg); ok {
				s.metrics.ObserveWSMessage("outbound", string(t))
			}
		}
	}()

	outbound <- sessionStateMessage(sess, "connected")

	conn.SetReadLimit(64 << 10)
	_ = conn.SetReadDeadline(time.Now().Add(s.sessions.InactivityTimeout()))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(s.sessions.InactivityTimeout()))
		return nil
	})

readLoop:
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(s.sessions.InactivityTimeout()))
		if msgType != websocket.TextMessage {
			continue
		}
		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			parsed = protocol.ErrorEvent{
				Type:      protocol.TypeErrorEvent,
				SessionID: sessionID,
				Code:      "invalid_client_message",
				Detail:    err.Error(),
			}
		} else if t, ok := messageTypeOf(parsed); ok {
			s.metrics.ObserveWSMessage("inbound", string(t))
		}
		select {
		case <-ctx.Done():
			break readLoop
		case inbound <- parsed:
		}
	}

	cancel()
	close(inbound)
	<-runDone
	<-writerDone
	s.metrics.SessionEvent("ws_disconnected")
}

// runConnection handles inbound websocket messages one at a time and queues
// the replies. Parse failures arrive already converted to error events.
func (s *Server) runConnection(ctx context.Context, sessionID string, inbound <-chan any, outbound chan<- any) {
	for msg := range inbound {
		switch m := msg.(type) {
		case protocol.ErrorEvent:
			outbound <- m
		case protocol.ClientMessage:
			if m.SessionID != sessionID {
				outbound <- errorEvent(sessionID, "session_mismatch", "message session_id does not match connection")
				continue
			}
			sess, reply, err := s.runTurn(ctx, sessionID, m.Text)
			if err != nil {
				_, code := sessionErrorCode(err)
				outbound <- errorEvent(sessionID, code, err.Error())
				continue
			}
			outbound <- protocol.AssistantMessage{
				Type:      protocol.TypeAssistantMessage,
				SessionID: sessionID,
				Text:      reply.Text,
				Source:    string(reply.Source),
				TSMs:      reply.At.UnixMilli(),
			}
			outbound <- sessionStateMessage(sess, "turn")
		case protocol.ClientControl:
			if m.SessionID != sessionID {
				outbound <- errorEvent(sessionID, "session_mismatch", "control session_id does not match connection")
				continue
			}
			var (
				sess *session.Session
				err  error
			)
			switch m.Action {
			case protocol.ActionReset:
				sess, err = s.resetSession(sessionID)
			case protocol.ActionEnd:
				sess, err = s.sessions.End(sessionID)
				if err == nil {
					s.metrics.SetActiveSessions(s.sessions.ActiveCount())
					s.metrics.SessionEvent("ended")
				}
			}
			if err != nil {
				_, code := sessionErrorCode(err)
				outbound <- errorEvent(sessionID, code, err.Error())
				continue
			}
			outbound <- sessionStateMessage(sess, m.Action)
		}
		if ctx.Err() != nil {
			return
		}
	}
}

func sessionStateMessage(sess *session.Session, reason string) protocol.SessionState {
	status := string(sess.Conversation.Status)
	if sess.Status == session.StatusEnded {
		status = string(session.StatusEnded)
	}
	return protocol.SessionState{
		Type:      protocol.TypeSessionState,
		SessionID: sess.ID,
		Status:    status,
		TurnCount: sess.TurnCount,
		Reason:    reason,
	}
}

func errorEvent(sessionID, code, detail string) protocol.ErrorEvent {
	return protocol.ErrorEvent{
		Type:      protocol.TypeErrorEvent,
		SessionID: sessionID,
		Code:      code,
		Retryable: code == "session_busy",
		Detail:    detail,
	}
}

func messageTypeOf(v any) (protocol.MessageType, bool) {
	switch m := v.(type) {
	case protocol.ClientMessage:
		return m.Type, true
	case protocol.ClientControl:
		return m.Type, true
	case protocol.AssistantMessage:
		return m.Type, true
	case protocol.SessionState:
		return m.Type, true
	case protocol.ErrorEvent:
		return m.Type, true
	default:
		return "", false
	}
}
