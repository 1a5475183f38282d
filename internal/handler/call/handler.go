package call

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kirayalabs/kiraya/backend/internal/model/conversation"
	"github.com/kirayalabs/kiraya/backend/internal/service/ai"
	callservice "github.com/kirayalabs/kiraya/backend/internal/service/call"
)

// Spoken error replies. The voice loop never returns a silent failure;
// callers always get an apology they can play.
const (
	replyProcessingError = "Sorry, I could not process that."
	replyUnavailable     = "Our language service is temporarily unavailable. Please try again shortly."
)

// CallService runs one conversation turn per visitor utterance.
type CallService interface {
	Turn(ctx context.Context, sessionID, transcript string) (*callservice.Outcome, error)
	End(sessionID string)
}

// SpeechService abstracts transcription and synthesis so handlers can be
// tested without network providers.
type SpeechService interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
	TranscribeStream(ctx context.Context, audio <-chan []byte, format string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, string, error)
}

// ChatPolisher serves the text-only probe endpoint.
type ChatPolisher interface {
	Polish(ctx context.Context, userText string, turn *conversation.TurnResult, state *conversation.SessionState) (string, string, error)
}

// Handler exposes the voice loop over HTTP.
type Handler struct {
	calls    CallService
	speech   SpeechService
	polisher ChatPolisher
}

func New(calls CallService, speech SpeechService, polisher ChatPolisher) *Handler {
	return &Handler{
		calls:    calls,
		speech:   speech,
		polisher: polisher,
	}
}

// RegisterRoutes mounts the call endpoints under the API router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/utterance", h.handleUtterance)
	r.Post("/chat", h.handleChat)
	r.Post("/session/{sessionID}/end", h.handleEndSession)
}

// handleUtterance runs the full voice pipeline for one uploaded clip:
// transcribe, advance the conversation, speak the reply. Reply metadata
// rides on X- headers next to the audio body so browser clients can show
// text without a second request.
func (h *Handler) handleUtterance(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.respondError(w, http.StatusBadRequest, "failed to parse multipart form: "+err.Error())
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	sessionID := resolveSessionID(r)

	audio, err := io.ReadAll(file)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "failed to read audio upload")
		return
	}

	format := header.Header.Get("Content-Type")
	if format == "" || format == "application/octet-stream" {
		format = inferAudioFormat(header.Filename)
	}

	transcript, err := h.speech.Transcribe(r.Context(), audio, format)
	if err != nil {
		log.Printf("[call] transcription failed: %v", err)
		h.respondSpokenError(r.Context(), w, sessionID, "", err)
		return
	}

	outcome, err := h.calls.Turn(r.Context(), sessionID, transcript)
	if err != nil {
		log.Printf("[call] turn failed: %v", err)
		h.respondSpokenError(r.Context(), w, sessionID, transcript, err)
		return
	}

	h.respondSpokenReply(r.Context(), w, outcome)
}

// handleChat answers a typed message with the catalog receptionist
// prompt. It is the plain-text probe for the language stack; no session
// state is involved.
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      string `json:"text"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		h.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	if h.polisher == nil {
		h.respondChatUnavailable(w)
		return
	}

	reply, source, err := h.polisher.Polish(r.Context(), text, nil, nil)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) {
			log.Printf("[call] chat unavailable: %v", err)
			h.respondChatUnavailable(w)
			return
		}
		log.Printf("[call] chat failed: %v", err)
		h.respondError(w, http.StatusInternalServerError, "chat failed")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{"reply": reply, "source": source})
}

func (h *Handler) handleEndSession(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(chi.URLParam(r, "sessionID"))
	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "session id is required")
		return
	}
	h.calls.End(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondChatUnavailable(w http.ResponseWriter) {
	h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
		"error":        replyUnavailable,
		"error_reason": "llm_unavailable",
	})
}

func (h *Handler) respondSpokenReply(ctx context.Context, w http.ResponseWriter, outcome *callservice.Outcome) {
	w.Header().Set("X-Session-Id", headerValue(outcome.SessionID))
	w.Header().Set("X-Transcript", headerValue(outcome.Transcript))
	w.Header().Set("X-Model-Reply", headerValue(outcome.Reply))
	w.Header().Set("X-LLM-Source", headerValue(outcome.Source))
	w.Header().Set("X-Agent-Stage", headerValue(outcome.Stage.String()))
	if outcome.Completed {
		w.Header().Set("X-Agent-Completed", "true")
	}
	h.writeAudio(ctx, w, http.StatusOK, outcome.Reply)
}

// respondSpokenError maps pipeline failures onto the spoken error
// taxonomy: an unavailable language service is a 503 the caller may
// retry, anything else is a 500. Both still carry apology audio.
func (h *Handler) respondSpokenError(ctx context.Context, w http.ResponseWriter, sessionID, transcript string, err error) {
	status := http.StatusInternalServerError
	reply := replyProcessingError
	source := "error"
	reason := "unknown"
	if errors.Is(err, ai.ErrUnavailable) {
		status = http.StatusServiceUnavailable
		reply = replyUnavailable
		source = "unavailable"
		reason = "llm_unavailable"
	}

	w.Header().Set("X-Session-Id", headerValue(sessionID))
	w.Header().Set("X-Error", "true")
	w.Header().Set("X-Model-Reply", headerValue(reply))
	w.Header().Set("X-LLM-Source", source)
	w.Header().Set("X-Error-Reason", reason)
	if transcript != "" {
		w.Header().Set("X-Transcript", headerValue(transcript))
	}

	h.writeAudio(ctx, w, status, reply)
}

func (h *Handler) writeAudio(ctx context.Context, w http.ResponseWriter, status int, phrase string) {
	audio, mime, err := h.speech.Synthesize(ctx, phrase)
	if err != nil {
		log.Printf("[call] synthesis failed: %v", err)
		w.WriteHeader(status)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Length", strconv.Itoa(len(audio)))
	w.WriteHeader(status)
	if _, err := w.Write(audio); err != nil {
		log.Printf("[call] failed to write audio response: %v", err)
	}
}

// resolveSessionID picks the session before any pipeline work so even
// error responses can name the session they belong to.
func resolveSessionID(r *http.Request) string {
	if sid := strings.TrimSpace(r.FormValue("session_id")); sid != "" {
		return sid
	}
	if sid := strings.TrimSpace(r.Header.Get("X-Session-Id")); sid != "" {
		return sid
	}
	return uuid.NewString()
}

// headerValue folds a reply onto one line; HTTP header values cannot
// carry newlines.
func headerValue(s string) string {
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}

// inferAudioFormat maps an upload filename to a MIME type for the
// transcriber when the part itself does not declare one.
func inferAudioFormat(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".mp3":
		return "audio/mpeg"
	case ".webm":
		return "audio/webm"
	case ".ogg":
		return "audio/ogg"
	case ".m4a":
		return "audio/mp4"
	default:
		return "audio/wav"
	}
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
