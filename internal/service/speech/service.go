package speech

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/kirayalabs/kiraya/backend/internal/config"
	"github.com/kirayalabs/kiraya/backend/internal/model/speech"
)

// FallbackPhrase is spoken when a reply arrives empty, so the caller
// always hears something.
const FallbackPhrase = "I am here if you need anything."

var (
	ErrNoTranscriber = errors.New("transcription is not configured")
	ErrNoSynthesizer = errors.New("speech synthesis is not configured")
)

// Transcriber converts a complete audio clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, format string) (string, error)
}

// LiveTranscriber consumes a chunked audio stream and emits incremental
// recognition results. Implementations close results before returning.
type LiveTranscriber interface {
	TranscribeStream(ctx context.Context, audio <-chan []byte, results chan<- speech.TranscriptChunk) error
}

// Synthesizer renders text into spoken audio, returning the encoded bytes
// and their MIME type.
type Synthesizer interface {
	Name() string
	Synthesize(ctx context.Context, text string) ([]byte, string, error)
}

// Service bundles one transcriber with an ordered chain of voices. When a
// voice errors or produces no audio the next one in the chain is tried, so
// a flaky primary provider never silences the agent.
type Service struct {
	transcriber Transcriber
	live        LiveTranscriber
	voices      []Synthesizer
}

// NewService wires providers from config: Deepgram for recognition when a
// key is present, and a voice chain ordered by TTS_PROVIDER.
func NewService(cfg config.SpeechConfig) *Service {
	svc := &Service{}
	if cfg.ASREnabled() {
		svc.transcriber = NewDeepgramClient(cfg)
		svc.live = NewDeepgramLiveClient(cfg)
	}
	if cfg.TTSProvider == "edge" {
		svc.voices = append(svc.voices, NewEdgeTTSClient(cfg))
	}
	svc.voices = append(svc.voices, NewGoogleTranslateTTSClient(cfg))
	return svc
}

// Transcribe runs recognition over a complete utterance clip.
func (s *Service) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if s.transcriber == nil {
		return "", ErrNoTranscriber
	}
	text, err := s.transcriber.Transcribe(ctx, audio, format)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// TranscribeStream recognizes speech from a chunked audio stream. With a
// live transcriber configured the audio is forwarded as it arrives and the
// final chunks are joined into one transcript; otherwise the chunks are
// buffered and recognized in one shot once the stream closes.
func (s *Service) TranscribeStream(ctx context.Context, audio <-chan []byte, format string) (string, error) {
	if s.live == nil {
		return s.transcribeBuffered(ctx, audio, format)
	}

	results := make(chan speech.TranscriptChunk, 8)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.live.TranscribeStream(ctx, audio, results)
	}()

	var parts []string
	for chunk := range results {
		if chunk.IsFinal && strings.TrimSpace(chunk.Text) != "" {
			parts = append(parts, strings.TrimSpace(chunk.Text))
		}
	}
	if err := <-errCh; err != nil {
		return "", err
	}
	return strings.Join(parts, " "), nil
}

func (s *Service) transcribeBuffered(ctx context.Context, audio <-chan []byte, format string) (string, error) {
	var buf []byte
	for chunk := range audio {
		buf = append(buf, chunk...)
	}
	if len(buf) == 0 {
		return "", nil
	}
	return s.Transcribe(ctx, buf, format)
}

// Synthesize renders the phrase through the voice chain. Empty text is
// replaced with a stock phrase so callers always get audio to play.
func (s *Service) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	phrase := strings.TrimSpace(text)
	if phrase == "" {
		phrase = FallbackPhrase
	}
	if len(s.voices) == 0 {
		return nil, "", ErrNoSynthesizer
	}

	var lastErr error
	for _, voice := range s.voices {
		audio, mime, err := voice.Synthesize(ctx, phrase)
		if err != nil {
			log.Printf("[speech] voice %s failed: %v", voice.Name(), err)
			lastErr = err
			continue
		}
		if len(audio) == 0 {
			log.Printf("[speech] voice %s produced no audio", voice.Name())
			lastErr = fmt.Errorf("voice %s produced no audio", voice.Name())
			continue
		}
		return audio, mime, nil
	}
	return nil, "", fmt.Errorf("synthesis failed on every voice: %w", lastErr)
}
