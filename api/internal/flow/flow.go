package flow

import (
	"errors"

	"rock-id/api/internal/prompt"
	"rock-id/api/internal/util"
)

// Flow binds the schema-checked invocations to one model.
type Flow struct {
	model          Model
	identifySchema map[string]any
	matchSchema    map[string]any
}

func New(model Model) (*Flow, error) {
	if model == nil {
		return nil, errors.New("flow: model is nil")
	}
	is, err := util.ParseSchema(prompt.IdentifyName, prompt.IdentifySchema)
	if err != nil {
		return nil, err
	}
	ms, err := util.ParseSchema(prompt.MatchName, prompt.MatchSchema)
	if err != nil {
		return nil, err
	}
	return &Flow{model: model, identifySchema: is, matchSchema: ms}, nil
}

func (f *Flow) Model() Model { return f.model }
