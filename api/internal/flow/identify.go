package flow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"rock-id/api/internal/prompt"
	"rock-id/api/internal/util"
)

// IdentifyRock sends the photo to the model and returns the validated identification.
func (f *Flow) IdentifyRock(ctx context.Context, in IdentifyInput) (*IdentifyOutput, error) {
	const op = "identify"
	if strings.TrimSpace(in.PhotoDataURI) == "" {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrValidation, ErrMissingInput)
	}
	media, err := util.ParseDataURI(in.PhotoDataURI)
	if err != nil {
		return nil, validationf(op, "photoDataUri: %v", err)
	}

	user, err := prompt.RenderIdentify(prompt.IdentifyData{MediaType: media.MIME})
	if err != nil {
		return nil, err
	}

	raw, err := f.model.Generate(ctx, Request{
		Name:   prompt.IdentifyName,
		System: prompt.IdentifySystem,
		Prompt: user,
		Media:  &media,
		Schema: f.identifySchema,
	})
	if err != nil {
		return nil, Transport(f.model.Name(), err)
	}
	return ParseIdentification(raw)
}

// ParseIdentification разбирает ответ модели и проверяет контракт.
// Принимает {"identification":{...}} и, как запасной вариант, плоскую запись.
func ParseIdentification(raw string) (*IdentifyOutput, error) {
	const op = "identify"
	txt := util.StripCodeFences(raw)
	if txt == "" {
		return nil, emptyResultf(op, "model returned no output")
	}
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(txt), &top); err != nil {
		return nil, emptyResultf(op, "model returned no JSON object: %v", err)
	}

	body := top
	if nested, ok := top["identification"]; ok {
		if isNull(nested) {
			return nil, validationf(op, "identification is null")
		}
		var inner map[string]json.RawMessage
		if err := json.Unmarshal(nested, &inner); err != nil {
			return nil, validationf(op, "identification must be an object")
		}
		body = inner
	}

	var id Identification
	var err error
	if id.ClosestMatch, err = stringField(op, body, "closestMatch"); err != nil {
		return nil, err
	}
	if id.SimilarityPercentage, err = numberField(op, body, "similarityPercentage"); err != nil {
		return nil, err
	}
	if id.Information, err = stringField(op, body, "information"); err != nil {
		return nil, err
	}
	id.ClosestMatch = strings.TrimSpace(id.ClosestMatch)
	if err := id.Validate(); err != nil {
		return nil, err
	}
	return &IdentifyOutput{Identification: &id}, nil
}

func stringField(op string, m map[string]json.RawMessage, key string) (string, error) {
	v, ok := m[key]
	if !ok || isNull(v) {
		return "", validationf(op, "%s is required", key)
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", validationf(op, "%s must be a string", key)
	}
	return s, nil
}

func numberField(op string, m map[string]json.RawMessage, key string) (float64, error) {
	v, ok := m[key]
	if !ok || isNull(v) {
		return 0, validationf(op, "%s is required", key)
	}
	var n float64
	if err := json.Unmarshal(v, &n); err != nil {
		return 0, validationf(op, "%s must be a number", key)
	}
	return n, nil
}

func isNull(v json.RawMessage) bool {
	return strings.TrimSpace(string(v)) == "null"
}
