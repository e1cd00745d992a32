package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HTTPTranslator talks to the external machine-translation service.
// The service is unreliable by contract: network failures, 5xx and
// timeouts are all expected outcomes and are returned to the caller,
// which owns the fallback policy.
type HTTPTranslator struct {
	baseURL string
	client  *http.Client
	log     *slog.Logger
}

func NewHTTPTranslator(baseURL string, timeout time.Duration, log *slog.Logger) *HTTPTranslator {
	return &HTTPTranslator{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		log:     log,
	}
}

type translateRequest struct {
	Text     string `json:"text"`
	FromLang string `json:"from_lang"`
	To       string `json:"to"`
}

type translateResponse struct {
	Translated string `json:"translated"`
}

func (t *HTTPTranslator) Translate(ctx context.Context, text, fromLang, toLang string) (string, error) {
	body, err := json.Marshal(translateRequest{Text: text, FromLang: fromLang, To: toLang})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("translator unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("translator returned %d for %s->%s", resp.StatusCode, fromLang, toLang)
	}

	var out translateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding translator response: %w", err)
	}
	return out.Translated, nil
}
