package speech

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/kirayalabs/kiraya/backend/internal/config"
	"github.com/kirayalabs/kiraya/backend/internal/model/speech"
)

type stubTranscriber struct {
	text   string
	err    error
	calls  int
	last   []byte
	format string
}

func (s *stubTranscriber) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	s.calls++
	s.last = audio
	s.format = format
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

type stubVoice struct {
	name     string
	audio    []byte
	mime     string
	err      error
	calls    int
	lastText string
}

func (s *stubVoice) Name() string { return s.name }

func (s *stubVoice) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	s.calls++
	s.lastText = text
	if s.err != nil {
		return nil, "", s.err
	}
	return s.audio, s.mime, nil
}

type stubLive struct {
	chunks []speech.TranscriptChunk
	err    error
}

func (s *stubLive) TranscribeStream(ctx context.Context, audio <-chan []byte, results chan<- speech.TranscriptChunk) error {
	defer close(results)
	for range audio {
	}
	for _, chunk := range s.chunks {
		results <- chunk
	}
	return s.err
}

func TestSynthesizeFallsBackWhenPrimaryFails(t *testing.T) {
	primary := &stubVoice{name: "edge", err: errors.New("handshake refused")}
	backup := &stubVoice{name: "gtts", audio: []byte("mp3"), mime: "audio/mpeg"}
	svc := &Service{voices: []Synthesizer{primary, backup}}

	audio, mime, err := svc.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if string(audio) != "mp3" || mime != "audio/mpeg" {
		t.Fatalf("expected backup audio, got %q (%s)", audio, mime)
	}
	if primary.calls != 1 || backup.calls != 1 {
		t.Fatalf("expected both voices tried, got %d and %d", primary.calls, backup.calls)
	}
}

func TestSynthesizeFallsBackOnEmptyAudio(t *testing.T) {
	primary := &stubVoice{name: "edge", audio: nil, mime: "audio/mpeg"}
	backup := &stubVoice{name: "gtts", audio: []byte("mp3"), mime: "audio/mpeg"}
	svc := &Service{voices: []Synthesizer{primary, backup}}

	audio, _, err := svc.Synthesize(context.Background(), "hello")
	if err != nil {
		t.Fatalf("expected fallback to succeed, got %v", err)
	}
	if string(audio) != "mp3" {
		t.Fatalf("expected backup audio, got %q", audio)
	}
}

func TestSynthesizeSpeaksStockPhraseForEmptyText(t *testing.T) {
	voice := &stubVoice{name: "gtts", audio: []byte("mp3"), mime: "audio/mpeg"}
	svc := &Service{voices: []Synthesizer{voice}}

	if _, _, err := svc.Synthesize(context.Background(), "   "); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if voice.lastText != FallbackPhrase {
		t.Fatalf("expected stock phrase, got %q", voice.lastText)
	}
}

func TestSynthesizeErrorsWhenAllVoicesFail(t *testing.T) {
	primary := &stubVoice{name: "edge", err: errors.New("handshake refused")}
	backup := &stubVoice{name: "gtts", err: errors.New("status 429")}
	svc := &Service{voices: []Synthesizer{primary, backup}}

	_, _, err := svc.Synthesize(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected an error when every voice fails")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("expected the last voice error, got %v", err)
	}
}

func TestSynthesizeWithoutVoices(t *testing.T) {
	svc := &Service{}
	if _, _, err := svc.Synthesize(context.Background(), "hello"); !errors.Is(err, ErrNoSynthesizer) {
		t.Fatalf("expected ErrNoSynthesizer, got %v", err)
	}
}

func TestTranscribeTrimsWhitespace(t *testing.T) {
	svc := &Service{transcriber: &stubTranscriber{text: "  two bedrooms  "}}

	text, err := svc.Transcribe(context.Background(), []byte{1, 2}, "audio/wav")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if text != "two bedrooms" {
		t.Fatalf("expected trimmed transcript, got %q", text)
	}
}

func TestTranscribeWithoutTranscriber(t *testing.T) {
	svc := &Service{}
	if _, err := svc.Transcribe(context.Background(), []byte{1}, "audio/wav"); !errors.Is(err, ErrNoTranscriber) {
		t.Fatalf("expected ErrNoTranscriber, got %v", err)
	}
}

func TestTranscribeStreamBuffersWithoutLiveClient(t *testing.T) {
	transcriber := &stubTranscriber{text: "hello there"}
	svc := &Service{transcriber: transcriber}

	audio := make(chan []byte, 2)
	audio <- []byte("ab")
	audio <- []byte("cd")
	close(audio)

	text, err := svc.TranscribeStream(context.Background(), audio, "audio/wav")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if text != "hello there" {
		t.Fatalf("expected transcript, got %q", text)
	}
	if string(transcriber.last) != "abcd" {
		t.Fatalf("expected chunks buffered in order, got %q", transcriber.last)
	}
	if transcriber.format != "audio/wav" {
		t.Fatalf("expected format passed through, got %q", transcriber.format)
	}
}

func TestTranscribeStreamEmptyBufferSkipsRecognition(t *testing.T) {
	transcriber := &stubTranscriber{text: "should not run"}
	svc := &Service{transcriber: transcriber}

	audio := make(chan []byte)
	close(audio)

	text, err := svc.TranscribeStream(context.Background(), audio, "audio/wav")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty transcript, got %q", text)
	}
	if transcriber.calls != 0 {
		t.Fatalf("expected transcriber untouched, got %d calls", transcriber.calls)
	}
}

func TestTranscribeStreamJoinsFinalChunks(t *testing.T) {
	live := &stubLive{chunks: []speech.TranscriptChunk{
		{Text: "two bedrooms", IsFinal: true},
		{Text: "interim guess", IsFinal: false},
		{Text: "in clifton", IsFinal: true},
	}}
	svc := &Service{live: live}

	audio := make(chan []byte)
	close(audio)

	text, err := svc.TranscribeStream(context.Background(), audio, "audio/wav")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if text != "two bedrooms in clifton" {
		t.Fatalf("expected joined final chunks, got %q", text)
	}
}

func TestTranscribeStreamPropagatesLiveErrors(t *testing.T) {
	live := &stubLive{err: errors.New("dial refused")}
	svc := &Service{live: live}

	audio := make(chan []byte)
	close(audio)

	if _, err := svc.TranscribeStream(context.Background(), audio, "audio/wav"); err == nil {
		t.Fatal("expected the live error to surface")
	}
}

func TestNewServiceBuildsVoiceChain(t *testing.T) {
	svc := NewService(config.SpeechConfig{TTSProvider: "edge", TTSVoice: "en-US-AriaNeural"})
	if len(svc.voices) != 2 {
		t.Fatalf("expected edge then gtts, got %d voices", len(svc.voices))
	}
	if svc.voices[0].Name() != "edge" || svc.voices[1].Name() != "gtts" {
		t.Fatalf("unexpected voice order: %s, %s", svc.voices[0].Name(), svc.voices[1].Name())
	}
	if svc.transcriber != nil || svc.live != nil {
		t.Fatal("expected no transcriber without a deepgram key")
	}

	svc = NewService(config.SpeechConfig{DeepgramAPIKey: "key", TTSProvider: "gtts"})
	if len(svc.voices) != 1 || svc.voices[0].Name() != "gtts" {
		t.Fatalf("expected gtts only, got %d voices", len(svc.voices))
	}
	if svc.transcriber == nil || svc.live == nil {
		t.Fatal("expected deepgram transcribers with a key")
	}
}

func TestDeepgramTranscribeParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		q := r.URL.Query()
		if q.Get("model") != "nova-2" || q.Get("language") != "en" {
			t.Errorf("unexpected query params: %s", r.URL.RawQuery)
		}
		if q.Get("smart_format") != "true" || q.Get("punctuate") != "true" {
			t.Errorf("expected formatting params, got %s", r.URL.RawQuery)
		}
		if got := r.Header.Get("Authorization"); got != "Token test-key" {
			t.Errorf("expected token auth, got %q", got)
		}
		if got := r.Header.Get("Content-Type"); got != "audio/wav" {
			t.Errorf("expected audio content type, got %q", got)
		}
		body, _ := io.ReadAll(r.Body)
		if len(body) != 4 {
			t.Errorf("expected 4 audio bytes, got %d", len(body))
		}
		fmt.Fprint(w, `{"results":{"channels":[{"alternatives":[{"transcript":"hello there","confidence":0.99}]}]}}`)
	}))
	defer srv.Close()

	client := NewDeepgramClient(config.SpeechConfig{DeepgramAPIKey: "test-key", ASRModel: "nova-2", Language: "en"})
	client.baseURL = srv.URL

	text, err := client.Transcribe(context.Background(), []byte{1, 2, 3, 4}, "audio/wav")
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if text != "hello there" {
		t.Fatalf("expected transcript, got %q", text)
	}
}

func TestDeepgramTranscribeSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer srv.Close()

	client := NewDeepgramClient(config.SpeechConfig{DeepgramAPIKey: "bad-key", ASRModel: "nova-2"})
	client.baseURL = srv.URL

	_, err := client.Transcribe(context.Background(), []byte{1}, "audio/wav")
	if err == nil {
		t.Fatal("expected an error for a 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Fatalf("expected the status in the error, got %v", err)
	}
}

func TestDeepgramTranscribeRejectsEmptyAudio(t *testing.T) {
	client := NewDeepgramClient(config.SpeechConfig{DeepgramAPIKey: "key"})
	if _, err := client.Transcribe(context.Background(), nil, "audio/wav"); err == nil {
		t.Fatal("expected an error for empty audio")
	}
}

func TestDeepgramLiveStreamsTranscript(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Token test-key" {
			t.Errorf("expected token auth, got %q", got)
		}
		q := r.URL.Query()
		if q.Get("encoding") != "linear16" || q.Get("sample_rate") != "16000" {
			t.Errorf("unexpected stream params: %s", r.URL.RawQuery)
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		defer conn.Close()

		var audioBytes int
		for {
			msgType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if msgType == websocket.BinaryMessage {
				audioBytes += len(data)
				continue
			}
			if strings.Contains(string(data), "CloseStream") {
				break
			}
		}
		if audioBytes != 3 {
			t.Errorf("expected 3 audio bytes before the flush, got %d", audioBytes)
		}

		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Results","is_final":true,"channel":{"alternatives":[{"transcript":"two bedrooms in clifton","confidence":0.97}]}}`))
		conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"Metadata"}`))
	}))
	defer srv.Close()

	client := NewDeepgramLiveClient(config.SpeechConfig{DeepgramAPIKey: "test-key", ASRModel: "nova-2", Language: "en"})
	client.url = "ws" + strings.TrimPrefix(srv.URL, "http")

	audio := make(chan []byte, 2)
	audio <- []byte{1, 2}
	audio <- []byte{3}
	close(audio)

	results := make(chan speech.TranscriptChunk, 4)
	errCh := make(chan error, 1)
	go func() {
		errCh <- client.TranscribeStream(context.Background(), audio, results)
	}()

	var got []speech.TranscriptChunk
	for chunk := range results {
		got = append(got, chunk)
	}
	if err := <-errCh; err != nil {
		t.Fatalf("expected a clean stream, got %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one chunk, got %d", len(got))
	}
	if got[0].Text != "two bedrooms in clifton" || !got[0].IsFinal {
		t.Fatalf("unexpected chunk: %+v", got[0])
	}
}

func TestEdgeAudioPayloadExtractsAudio(t *testing.T) {
	header := []byte("X-RequestId:abc\r\nContent-Type:audio/mpeg\r\nPath:audio\r\n")
	frame := append([]byte{byte(len(header) >> 8), byte(len(header))}, header...)
	frame = append(frame, 0xAA, 0xBB, 0xCC)

	payload, ok := edgeAudioPayload(frame)
	if !ok {
		t.Fatal("expected an audio payload")
	}
	if !bytes.Equal(payload, []byte{0xAA, 0xBB, 0xCC}) {
		t.Fatalf("unexpected payload: %v", payload)
	}

	other := []byte("Path:turn.start\r\n")
	frame = append([]byte{byte(len(other) >> 8), byte(len(other))}, other...)
	if _, ok := edgeAudioPayload(frame); ok {
		t.Fatal("expected non-audio frames to be skipped")
	}

	if _, ok := edgeAudioPayload([]byte{0x00}); ok {
		t.Fatal("expected short frames to be skipped")
	}
	if _, ok := edgeAudioPayload([]byte{0xFF, 0xFF, 'x'}); ok {
		t.Fatal("expected truncated headers to be skipped")
	}
}

func TestVoiceLocale(t *testing.T) {
	if got := voiceLocale("en-US-AriaNeural"); got != "en-US" {
		t.Fatalf("expected en-US, got %q", got)
	}
	if got := voiceLocale("en-GB-SoniaNeural"); got != "en-GB" {
		t.Fatalf("expected en-GB, got %q", got)
	}
	if got := voiceLocale("weird"); got != "en-US" {
		t.Fatalf("expected default locale, got %q", got)
	}
}
