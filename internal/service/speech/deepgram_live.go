package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/kirayalabs/kiraya/backend/internal/config"
	"github.com/kirayalabs/kiraya/backend/internal/model/speech"
)

const deepgramLiveURL = "wss://api.deepgram.com/v1/listen"

// DeepgramLiveClient streams raw PCM to Deepgram's realtime endpoint and
// emits transcript chunks as they are recognized.
type DeepgramLiveClient struct {
	apiKey   string
	model    string
	language string
	url      string
	dialer   *websocket.Dialer
}

func NewDeepgramLiveClient(cfg config.SpeechConfig) *DeepgramLiveClient {
	return &DeepgramLiveClient{
		apiKey:   cfg.DeepgramAPIKey,
		model:    cfg.ASRModel,
		language: cfg.Language,
		url:      deepgramLiveURL,
		dialer:   &websocket.Dialer{HandshakeTimeout: clientTimeout(cfg)},
	}
}

type deepgramLiveMessage struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// TranscribeStream forwards audio chunks to Deepgram as they arrive and
// publishes recognition results until the stream is flushed. The audio
// channel must be closed by the caller to finish the utterance; results
// is closed before returning.
func (c *DeepgramLiveClient) TranscribeStream(ctx context.Context, audio <-chan []byte, results chan<- speech.TranscriptChunk) error {
	defer close(results)

	params := url.Values{}
	params.Set("model", c.model)
	if c.language != "" {
		params.Set("language", c.language)
	}
	params.Set("encoding", "linear16")
	params.Set("sample_rate", "16000")

	header := http.Header{}
	header.Set("Authorization", "Token "+c.apiKey)

	conn, _, err := c.dialer.DialContext(ctx, fmt.Sprintf("%s?%s", c.url, params.Encode()), header)
	if err != nil {
		return fmt.Errorf("dial deepgram live: %w", err)
	}
	defer conn.Close()

	sendErr := make(chan error, 1)
	go func() {
		sendErr <- sendAudioChunks(ctx, conn, audio)
	}()

	if err := c.receiveResults(ctx, conn, results); err != nil {
		return err
	}
	return <-sendErr
}

func sendAudioChunks(ctx context.Context, conn *websocket.Conn, audio <-chan []byte) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case chunk, ok := <-audio:
			if !ok {
				// End of utterance: ask Deepgram to flush pending results.
				return conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"CloseStream"}`))
			}
			if len(chunk) == 0 {
				continue
			}
			if err := conn.WriteMessage(websocket.BinaryMessage, chunk); err != nil {
				return fmt.Errorf("send audio chunk: %w", err)
			}
		}
	}
}

func (c *DeepgramLiveClient) receiveResults(ctx context.Context, conn *websocket.Conn, results chan<- speech.TranscriptChunk) error {
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("read deepgram message: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg deepgramLiveMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[speech] skipping malformed deepgram message: %v", err)
			continue
		}

		switch msg.Type {
		case "Results":
			if len(msg.Channel.Alternatives) == 0 {
				continue
			}
			alt := msg.Channel.Alternatives[0]
			if strings.TrimSpace(alt.Transcript) == "" {
				continue
			}
			chunk := speech.TranscriptChunk{
				Text:       alt.Transcript,
				IsFinal:    msg.IsFinal,
				Confidence: alt.Confidence,
			}
			select {
			case results <- chunk:
			case <-ctx.Done():
				return ctx.Err()
			}
		case "Metadata":
			// Sent once the flush completes; the utterance is done.
			return nil
		}
	}
}
