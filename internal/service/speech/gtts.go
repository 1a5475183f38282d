package speech

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kirayalabs/kiraya/backend/internal/config"
)

const translateTTSEndpoint = "https://translate.google.com/translate_tts"

// GoogleTranslateTTSClient fetches synthesized speech from the Google
// Translate endpoint. It only handles short phrases, which is all the
// agent ever speaks in one turn.
type GoogleTranslateTTSClient struct {
	language string
	baseURL  string
	client   *http.Client
}

func NewGoogleTranslateTTSClient(cfg config.SpeechConfig) *GoogleTranslateTTSClient {
	language := cfg.Language
	if language == "" {
		language = "en"
	}
	return &GoogleTranslateTTSClient{
		language: language,
		baseURL:  translateTTSEndpoint,
		client:   &http.Client{Timeout: clientTimeout(cfg)},
	}
}

func (c *GoogleTranslateTTSClient) Name() string { return "gtts" }

func (c *GoogleTranslateTTSClient) Synthesize(ctx context.Context, text string) ([]byte, string, error) {
	params := url.Values{}
	params.Set("ie", "UTF-8")
	params.Set("q", text)
	params.Set("tl", c.language)
	params.Set("client", "tw-ob")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s?%s", c.baseURL, params.Encode()), nil)
	if err != nil {
		return nil, "", fmt.Errorf("create translate tts request: %w", err)
	}
	// The endpoint rejects requests without a browser user agent.
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("translate tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("translate tts returned status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read translate tts audio: %w", err)
	}
	return audio, "audio/mpeg", nil
}
