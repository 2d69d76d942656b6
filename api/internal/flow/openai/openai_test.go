package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rock-id/api/internal/flow"
	"rock-id/api/internal/util"
)

func newTestEngine(t *testing.T, h http.HandlerFunc) *Engine {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	e := New("sk-test", "gpt-4o-mini").WithHTTPClient(srv.Client())
	e.BaseURL = srv.URL + "/v1/"
	return e
}

func TestGenerateSendsImageAndSchema(t *testing.T) {
	var got map[string]any
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":" {\"matchPercentage\":12} "}}]}`))
	})

	media := &util.DataURI{MIME: "image/png", Data: []byte{1, 2, 3}}
	out, err := e.Generate(context.Background(), flow.Request{
		Name:   "identify_rock",
		System: "be a geologist",
		Prompt: "what is it",
		Media:  media,
		Schema: map[string]any{"type": "object"},
	})
	require.NoError(t, err)
	assert.Equal(t, `{"matchPercentage":12}`, out)

	assert.Equal(t, "gpt-4o-mini", got["model"])
	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	parts := msgs[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	img := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.Equal(t, "data:image/png;base64,AQID", img["url"])

	rf := got["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", rf["type"])
	js := rf["json_schema"].(map[string]any)
	assert.Equal(t, "identify_rock", js["name"])
	assert.Equal(t, true, js["strict"])
}

func TestGenerateStatusError(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	})
	_, err := e.Generate(context.Background(), flow.Request{Name: "match_percentage", Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai match_percentage 429")
	assert.Contains(t, err.Error(), "Rate limit reached")
}

func TestGenerateEmptyChoices(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	out, err := e.Generate(context.Background(), flow.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestGenerateRefusal(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":null,"refusal":"I can't help with that."}}]}`))
	})
	_, err := e.Generate(context.Background(), flow.Request{Name: "identify_rock", Prompt: "x"})
	assert.ErrorIs(t, err, flow.ErrEmptyResult)
}

func TestGenerateRejectsUnsupportedMIME(t *testing.T) {
	e := newTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request must not be sent")
	})
	_, err := e.Generate(context.Background(), flow.Request{
		Prompt: "x",
		Media:  &util.DataURI{MIME: "application/pdf", Data: []byte("%PDF-")},
	})
	assert.ErrorIs(t, err, flow.ErrValidation)
}

func TestGenerateWithoutKey(t *testing.T) {
	_, err := New("", "gpt-4o-mini").Generate(context.Background(), flow.Request{})
	assert.EqualError(t, err, "OPENAI_API_KEY is empty")
}
