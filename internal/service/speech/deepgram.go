package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kirayalabs/kiraya/backend/internal/config"
)

const deepgramBaseURL = "https://api.deepgram.com"

// DeepgramClient transcribes complete audio clips through Deepgram's
// prerecorded endpoint.
type DeepgramClient struct {
	apiKey   string
	model    string
	language string
	baseURL  string
	client   *http.Client
}

func NewDeepgramClient(cfg config.SpeechConfig) *DeepgramClient {
	return &DeepgramClient{
		apiKey:   cfg.DeepgramAPIKey,
		model:    cfg.ASRModel,
		language: cfg.Language,
		baseURL:  deepgramBaseURL,
		client:   &http.Client{Timeout: clientTimeout(cfg)},
	}
}

type deepgramResponse struct {
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe posts the clip to /v1/listen and returns the top alternative.
func (c *DeepgramClient) Transcribe(ctx context.Context, audio []byte, format string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("no audio data to transcribe")
	}

	params := url.Values{}
	params.Set("model", c.model)
	params.Set("smart_format", "true")
	params.Set("punctuate", "true")
	if c.language != "" {
		params.Set("language", c.language)
	}

	endpoint := fmt.Sprintf("%s/v1/listen?%s", strings.TrimRight(c.baseURL, "/"), params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("create deepgram request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+c.apiKey)
	if format == "" {
		format = "audio/wav"
	}
	req.Header.Set("Content-Type", format)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("deepgram request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("deepgram returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed deepgramResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode deepgram response: %w", err)
	}

	if len(parsed.Results.Channels) == 0 || len(parsed.Results.Channels[0].Alternatives) == 0 {
		return "", nil
	}
	return parsed.Results.Channels[0].Alternatives[0].Transcript, nil
}

func clientTimeout(cfg config.SpeechConfig) time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return 30 * time.Second
}
