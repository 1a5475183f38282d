package speech

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kirayalabs/kiraya/backend/internal/config"
)

const (
	edgeTTSEndpoint   = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	edgeTrustedToken  = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	edgeOutputFormat  = "audio-24khz-48kbitrate-mono-mp3"
	edgeSpeechConfig  = `{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"%s"}}}}`
	edgeTimestampForm = "Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)"
)

// EdgeTTSClient synthesizes speech through the Microsoft Edge read-aloud
// endpoint. The endpoint is free but undocumented, so failures are routine
// and callers are expected to fall back to the next voice in the chain.
type EdgeTTSClient struct {
	voice   string
	url     string
	timeout time.Duration
	dialer  *websocket.Dialer
}

func NewEdgeTTSClient(cfg config.SpeechConfig) *EdgeTTSClient {
	voice := strings.TrimSpace(cfg.TTSVoice)
	if voice == "" {
		voice = "en-US-AriaNeural"
	}
	timeout := clientTimeout(cfg)
	return &EdgeTTSClient{
		voice:   voice,
		url:     edgeTTSEndpoint,
		timeout: timeout,
		dialer:  &websocket.Dialer{HandshakeTimeout: timeout},
	}
}

func (c *EdgeTTSClient) Name() string { return "edge" }

// Synthesize sends a speech.config and an SSML request over one socket,
// then collects binary audio frames until the service signals turn.end.
func (c *EdgeTTSClient) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	connectionID := strings.ReplaceAll(uuid.NewString(), "-", "")
	endpoint := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s", c.url, edgeTrustedToken, connectionID)

	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, "", fmt.Errorf("dial edge tts: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	conn.SetReadDeadline(deadline)
	conn.SetWriteDeadline(deadline)

	timestamp := time.Now().UTC().Format(edgeTimestampForm)
	configMsg := fmt.Sprintf("X-Timestamp:%s\r\nContent-Type:application/json; charset=utf-8\r\nPath:speech.config\r\n\r\n"+edgeSpeechConfig,
		timestamp, edgeOutputFormat)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(configMsg)); err != nil {
		return nil, "", fmt.Errorf("send speech config: %w", err)
	}

	ssml := fmt.Sprintf("<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='%s'><voice name='%s'>%s</voice></speak>",
		voiceLocale(c.voice), c.voice, escapeSSML(text))
	ssmlMsg := fmt.Sprintf("X-RequestId:%s\r\nContent-Type:application/ssml+xml\r\nX-Timestamp:%s\r\nPath:ssml\r\n\r\n%s",
		connectionID, timestamp, ssml)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMsg)); err != nil {
		return nil, "", fmt.Errorf("send ssml: %w", err)
	}

	var audio []byte
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return nil, "", fmt.Errorf("read edge tts message: %w", err)
		}

		switch msgType {
		case websocket.TextMessage:
			if strings.Contains(string(data), "Path:turn.end") {
				if len(audio) == 0 {
					return nil, "", fmt.Errorf("edge tts produced no audio")
				}
				return audio, "audio/mpeg", nil
			}
		case websocket.BinaryMessage:
			if payload, ok := edgeAudioPayload(data); ok {
				audio = append(audio, payload...)
			}
		}
	}
}

// edgeAudioPayload strips the frame header from a binary message. Frames
// start with a big-endian header length, then the header text, then the
// payload; only Path:audio frames carry synthesized bytes.
func edgeAudioPayload(frame []byte) ([]byte, bool) {
	if len(frame) < 2 {
		return nil, false
	}
	headerLen := int(binary.BigEndian.Uint16(frame[:2]))
	if len(frame) < 2+headerLen {
		return nil, false
	}
	if !bytes.Contains(frame[2:2+headerLen], []byte("Path:audio")) {
		return nil, false
	}
	return frame[2+headerLen:], true
}

func voiceLocale(voice string) string {
	parts := strings.SplitN(voice, "-", 3)
	if len(parts) < 2 {
		return "en-US"
	}
	return parts[0] + "-" + parts[1]
}

func escapeSSML(text string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(text)
}
