package call

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kirayalabs/kiraya/backend/internal/service/ai"
)

const socketReadTimeout = 60 * time.Second

// WebSocketHandler drives the streaming voice loop: the client starts an
// utterance, pushes binary audio frames, and stops; the server answers
// with transcript and reply events plus one audio frame.
type WebSocketHandler struct {
	calls    CallService
	speech   SpeechService
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(calls CallService, speech SpeechService) *WebSocketHandler {
	return &WebSocketHandler{
		calls:  calls,
		speech: speech,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes mounts the socket under the websocket router.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/call", h.handleCall)
}

type callControl struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Format    string `json:"format"`
}

type callEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text,omitempty"`
	Reply     string `json:"reply,omitempty"`
	Source    string `json:"source,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Completed bool   `json:"completed,omitempty"`
	Reason    string `json:"reason,omitempty"`
	Message   string `json:"message,omitempty"`
}

// utteranceStream feeds one utterance worth of audio to the transcriber
// running in its own goroutine.
type utteranceStream struct {
	audio chan []byte
	done  chan struct{}
	text  string
	err   error
}

// callSocket is the per-connection state. The session id survives across
// utterances so a caller keeps one conversation for the whole socket.
// Writes are serialized; the ping loop and the reply path share the
// connection.
type callSocket struct {
	conn      *websocket.Conn
	sessionID string
	stream    *utteranceStream
	writeMu   sync.Mutex
}

func (s *callSocket) writeJSON(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *callSocket) write(messageType int, data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteMessage(messageType, data)
}

func (h *WebSocketHandler) handleCall(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(socketReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(socketReadTimeout))
		return nil
	})

	sock := &callSocket{conn: conn}
	defer h.abandonStream(sock)

	go h.pingLoop(ctx, sock)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(socketReadTimeout))

		switch msgType {
		case websocket.BinaryMessage:
			if sock.stream == nil {
				// Audio outside an utterance is dropped.
				continue
			}
			select {
			case sock.stream.audio <- data:
			case <-sock.stream.done:
			}
		case websocket.TextMessage:
			var ctl callControl
			if err := json.Unmarshal(data, &ctl); err != nil {
				h.sendEvent(sock, callEvent{Type: "error", Reason: "bad_request", Message: "invalid control message"})
				continue
			}
			switch ctl.Type {
			case "start":
				h.startUtterance(ctx, sock, ctl)
			case "stop":
				h.finishUtterance(ctx, sock)
			default:
				h.sendEvent(sock, callEvent{Type: "error", Reason: "bad_request", Message: "unsupported control type: " + ctl.Type})
			}
		}
	}
}

func (h *WebSocketHandler) startUtterance(ctx context.Context, sock *callSocket, ctl callControl) {
	if sock.stream != nil {
		h.sendEvent(sock, callEvent{Type: "error", SessionID: sock.sessionID, Reason: "bad_request", Message: "utterance already in progress"})
		return
	}

	if sid := strings.TrimSpace(ctl.SessionID); sid != "" {
		sock.sessionID = sid
	} else if sock.sessionID == "" {
		sock.sessionID = uuid.NewString()
	}

	format := strings.TrimSpace(ctl.Format)
	if format == "" {
		format = "audio/wav"
	}

	stream := &utteranceStream{
		audio: make(chan []byte, 16),
		done:  make(chan struct{}),
	}
	sock.stream = stream

	go func() {
		stream.text, stream.err = h.speech.TranscribeStream(ctx, stream.audio, format)
		close(stream.done)
	}()

	h.sendEvent(sock, callEvent{Type: "ready", SessionID: sock.sessionID})
}

func (h *WebSocketHandler) finishUtterance(ctx context.Context, sock *callSocket) {
	if sock.stream == nil {
		h.sendEvent(sock, callEvent{Type: "error", SessionID: sock.sessionID, Reason: "bad_request", Message: "no utterance in progress"})
		return
	}

	stream := sock.stream
	sock.stream = nil
	close(stream.audio)
	<-stream.done

	if stream.err != nil {
		log.Printf("[websocket] transcription failed: %v", stream.err)
		h.sendSpokenError(ctx, sock, "", stream.err)
		return
	}

	h.sendEvent(sock, callEvent{Type: "transcript", SessionID: sock.sessionID, Text: stream.text})

	outcome, err := h.calls.Turn(ctx, sock.sessionID, stream.text)
	if err != nil {
		log.Printf("[websocket] turn failed: %v", err)
		h.sendSpokenError(ctx, sock, stream.text, err)
		return
	}

	h.sendEvent(sock, callEvent{
		Type:      "reply",
		SessionID: outcome.SessionID,
		Reply:     outcome.Reply,
		Source:    outcome.Source,
		Stage:     outcome.Stage.String(),
		Completed: outcome.Completed,
	})
	h.sendAudio(ctx, sock, outcome.Reply)
}

// sendSpokenError mirrors the HTTP error taxonomy over the socket and
// still ships apology audio so the caller hears something.
func (h *WebSocketHandler) sendSpokenError(ctx context.Context, sock *callSocket, transcript string, err error) {
	reply := replyProcessingError
	reason := "unknown"
	if errors.Is(err, ai.ErrUnavailable) {
		reply = replyUnavailable
		reason = "llm_unavailable"
	}
	h.sendEvent(sock, callEvent{
		Type:      "error",
		SessionID: sock.sessionID,
		Text:      transcript,
		Reply:     reply,
		Reason:    reason,
	})
	h.sendAudio(ctx, sock, reply)
}

func (h *WebSocketHandler) sendAudio(ctx context.Context, sock *callSocket, phrase string) {
	audio, _, err := h.speech.Synthesize(ctx, phrase)
	if err != nil {
		log.Printf("[websocket] synthesis failed: %v", err)
		return
	}
	if err := sock.write(websocket.BinaryMessage, audio); err != nil {
		log.Printf("[websocket] write audio failed: %v", err)
	}
}

func (h *WebSocketHandler) sendEvent(sock *callSocket, event callEvent) {
	if err := sock.writeJSON(event); err != nil {
		log.Printf("[websocket] write event failed: %v", err)
	}
}

// abandonStream unblocks the transcriber goroutine when the socket dies
// mid-utterance.
func (h *WebSocketHandler) abandonStream(sock *callSocket) {
	if sock.stream == nil {
		return
	}
	close(sock.stream.audio)
	<-sock.stream.done
	sock.stream = nil
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, sock *callSocket) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := sock.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
