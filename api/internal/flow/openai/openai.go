package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"rock-id/api/internal/flow"
	"rock-id/api/internal/util"
)

const DefaultBaseURL = "https://api.openai.com/v1"

type Engine struct {
	APIKey  string
	Model   string
	BaseURL string
	httpc   *http.Client
}

func New(key, model string) *Engine {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second, // TCP connect
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		// первые заголовки у vision-моделей приходят долго
		ResponseHeaderTimeout: 120 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
	}
	return &Engine{
		APIKey:  strings.TrimSpace(key),
		Model:   strings.TrimSpace(model),
		BaseURL: DefaultBaseURL,
		httpc:   &http.Client{Transport: tr},
	}
}

// WithHTTPClient overrides the internal HTTP client (e.g., for custom timeouts or tracing).
func (e *Engine) WithHTTPClient(c *http.Client) *Engine {
	if c != nil {
		e.httpc = c
	}
	return e
}

func (e *Engine) Name() string     { return "gpt" }
func (e *Engine) GetModel() string { return e.Model }

func (e *Engine) Generate(ctx context.Context, req flow.Request) (string, error) {
	if e.APIKey == "" {
		return "", errors.New("OPENAI_API_KEY is empty")
	}

	user := []any{map[string]any{"type": "text", "text": req.Prompt}}
	if req.Media != nil {
		if !isOpenAIImageMIME(req.Media.MIME) {
			return "", fmt.Errorf("openai %s: %w: unsupported MIME %s (need image/jpeg|png|webp|gif)", req.Name, flow.ErrValidation, req.Media.MIME)
		}
		user = append(user, map[string]any{
			"type":      "image_url",
			"image_url": map[string]any{"url": req.Media.String(), "detail": "high"},
		})
	}

	messages := []any{}
	if s := strings.TrimSpace(req.System); s != "" {
		messages = append(messages, map[string]any{"role": "system", "content": s})
	}
	messages = append(messages, map[string]any{"role": "user", "content": user})

	body := map[string]any{
		"model":       e.Model,
		"messages":    messages,
		"temperature": 0,
	}
	if req.Schema != nil {
		body["response_format"] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   req.Name,
				"strict": true,
				"schema": req.Schema,
			},
		}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	url := strings.TrimRight(e.BaseURL, "/") + "/chat/completions"
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(hreq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("openai %s %d: %s", req.Name, resp.StatusCode, strings.TrimSpace(string(x)))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
				Refusal string `json:"refusal"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", fmt.Errorf("openai %s: bad envelope: %w", req.Name, err)
	}
	if len(raw.Choices) == 0 {
		return "", nil
	}
	msg := raw.Choices[0].Message
	if r := strings.TrimSpace(msg.Refusal); r != "" {
		return "", fmt.Errorf("openai %s: %w: model refused: %s", req.Name, flow.ErrEmptyResult, util.Truncate(r, 200))
	}
	return strings.TrimSpace(msg.Content), nil
}

func isOpenAIImageMIME(m string) bool {
	m = strings.ToLower(strings.TrimSpace(m))
	switch m {
	case "image/jpeg", "image/jpg", "image/png", "image/webp", "image/gif":
		return true
	}
	return false
}
