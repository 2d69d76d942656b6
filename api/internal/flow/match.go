package flow

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"rock-id/api/internal/prompt"
	"rock-id/api/internal/util"
)

// ScoreMatch asks the model how well the identified rock fits the reference database.
func (f *Flow) ScoreMatch(ctx context.Context, in MatchInput) (*MatchOutput, error) {
	const op = "match"
	if strings.TrimSpace(in.IdentifiedRock) == "" {
		return nil, validationf(op, "identifiedRock is required")
	}
	if strings.TrimSpace(in.RockDatabase) == "" {
		return nil, validationf(op, "rockDatabase is required")
	}

	user, err := prompt.RenderMatch(prompt.MatchData{
		ImageAnalysis:  in.ImageAnalysis,
		RockDatabase:   in.RockDatabase,
		IdentifiedRock: in.IdentifiedRock,
	})
	if err != nil {
		return nil, err
	}

	raw, err := f.model.Generate(ctx, Request{
		Name:   prompt.MatchName,
		System: prompt.MatchSystem,
		Prompt: user,
		Schema: f.matchSchema,
	})
	if err != nil {
		return nil, Transport(f.model.Name(), err)
	}
	return ParseMatch(raw)
}

// ParseMatch принимает голое число или {"matchPercentage": n}.
func ParseMatch(raw string) (*MatchOutput, error) {
	const op = "match"
	txt := util.StripCodeFences(raw)
	if txt == "" {
		return nil, emptyResultf(op, "model returned no output")
	}

	var out MatchOutput
	if strings.HasPrefix(txt, "{") {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(txt), &obj); err != nil {
			return nil, emptyResultf(op, "model returned malformed JSON: %v", err)
		}
		n, err := numberField(op, obj, "matchPercentage")
		if err != nil {
			return nil, err
		}
		out.MatchPercentage = n
	} else {
		n, err := strconv.ParseFloat(txt, 64)
		if err != nil {
			return nil, validationf(op, "reply %q is not a number", util.Truncate(txt, 64))
		}
		out.MatchPercentage = n
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return &out, nil
}
