package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"rock-id/api/internal/util"
)

// Request: один вызов внешней модели: инструкция, промпт, картинка и схема ответа.
type Request struct {
	Name   string
	System string
	Prompt string
	Media  *util.DataURI
	// Schema: JSON-схема ожидаемого ответа; nil означает свободный текст.
	Schema map[string]any
}

// Model is the hosted generative model. Generate returns the raw reply text.
type Model interface {
	Name() string
	GetModel() string
	Generate(ctx context.Context, req Request) (string, error)
}

type Engines struct {
	Gemini  Model
	OpenAI  Model
	Default string
}

func (e *Engines) GetEngine(llmName string) (Model, error) {
	name := strings.ToLower(strings.TrimSpace(llmName))
	if name == "" {
		name = e.Default
	}
	var m Model
	switch name {
	case "gemini":
		m = e.Gemini
	case "gpt", "openai":
		m = e.OpenAI
	case "":
		if e.Gemini != nil {
			return e.Gemini, nil
		}
		if e.OpenAI != nil {
			return e.OpenAI, nil
		}
		return nil, errors.New("no llm configured")
	default:
		return nil, errors.New("unknown llm_name; use 'gemini' or 'gpt'")
	}
	if m == nil {
		return nil, fmt.Errorf("llm %q is not configured", name)
	}
	return m, nil
}

// Available возвращает имена настроенных движков.
func (e *Engines) Available() []string {
	var out []string
	if e.Gemini != nil {
		out = append(out, "gemini")
	}
	if e.OpenAI != nil {
		out = append(out, "gpt")
	}
	return out
}
