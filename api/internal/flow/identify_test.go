package flow

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rock-id/api/internal/prompt"
)

func TestIdentifyRockNested(t *testing.T) {
	m := &fakeModel{reply: "```json\n" + `{"identification":{"closestMatch":"Quartz","similarityPercentage":87,"information":"SiO2"}}` + "\n```"}
	out, err := newFlow(m).IdentifyRock(context.Background(), IdentifyInput{PhotoDataURI: pngURI})
	require.NoError(t, err)
	require.NotNil(t, out.Identification)
	assert.Equal(t, Identification{ClosestMatch: "Quartz", SimilarityPercentage: 87, Information: "SiO2"}, *out.Identification)

	require.Len(t, m.calls, 1)
	req := m.calls[0]
	assert.Equal(t, prompt.IdentifyName, req.Name)
	require.NotNil(t, req.Media)
	assert.Equal(t, "image/png", req.Media.MIME)
	assert.Equal(t, tinyPNG, req.Media.Data)
	assert.Contains(t, req.Prompt, "image/png")
	assert.Equal(t, "object", req.Schema["type"])
}

func TestIdentifyRockFlatReply(t *testing.T) {
	m := &fakeModel{reply: `{"closestMatch":"Quartz","similarityPercentage":87,"information":"..."}`}
	out, err := newFlow(m).IdentifyRock(context.Background(), IdentifyInput{PhotoDataURI: pngURI})
	require.NoError(t, err)
	assert.Equal(t, "Quartz", out.Identification.ClosestMatch)
	assert.Equal(t, 87.0, out.Identification.SimilarityPercentage)
	assert.Equal(t, "...", out.Identification.Information)
}

func TestIdentifyRockRejectsInput(t *testing.T) {
	for name, in := range map[string]string{
		"empty":       "",
		"blank":       "   ",
		"bare base64": "iVBORw0KGgo=",
		"url":         "https://example.com/a.png",
		"no base64":   "data:image/png,abc",
	} {
		t.Run(name, func(t *testing.T) {
			m := &fakeModel{}
			_, err := newFlow(m).IdentifyRock(context.Background(), IdentifyInput{PhotoDataURI: in})
			assert.ErrorIs(t, err, ErrValidation)
			assert.Empty(t, m.calls)
		})
	}

	_, err := newFlow(&fakeModel{}).IdentifyRock(context.Background(), IdentifyInput{})
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestIdentifyRockTransportError(t *testing.T) {
	m := &fakeModel{err: errors.New("429 rate limited")}
	_, err := newFlow(m).IdentifyRock(context.Background(), IdentifyInput{PhotoDataURI: pngURI})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrValidation)
	assert.Equal(t, "fake: 429 rate limited", err.Error())
}

func TestParseIdentificationEmpty(t *testing.T) {
	for name, raw := range map[string]string{
		"empty":  "",
		"fences": "```json\n```",
		"prose":  "It looks like quartz to me.",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseIdentification(raw)
			assert.ErrorIs(t, err, ErrEmptyResult)
			assert.NotErrorIs(t, err, ErrValidation)
		})
	}
}

func TestParseIdentificationValidation(t *testing.T) {
	cases := map[string]string{
		"above range":         `{"identification":{"closestMatch":"Quartz","similarityPercentage":101,"information":""}}`,
		"below range":         `{"identification":{"closestMatch":"Quartz","similarityPercentage":-0.5,"information":""}}`,
		"string percentage":   `{"identification":{"closestMatch":"Quartz","similarityPercentage":"87","information":""}}`,
		"null percentage":     `{"identification":{"closestMatch":"Quartz","similarityPercentage":null,"information":""}}`,
		"missing information": `{"identification":{"closestMatch":"Quartz","similarityPercentage":50}}`,
		"blank match":         `{"identification":{"closestMatch":"  ","similarityPercentage":50,"information":"x"}}`,
		"numeric match":       `{"identification":{"closestMatch":7,"similarityPercentage":50,"information":"x"}}`,
		"null identification": `{"identification":null}`,
		"array identification": `{"identification":[1,2]}`,
		"empty object":        `{}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseIdentification(raw)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestParseIdentificationBounds(t *testing.T) {
	for _, raw := range []string{
		`{"identification":{"closestMatch":"Obsidian","similarityPercentage":0,"information":""}}`,
		`{"identification":{"closestMatch":"Obsidian","similarityPercentage":100,"information":""}}`,
	} {
		out, err := ParseIdentification(raw)
		require.NoError(t, err)
		assert.Equal(t, "Obsidian", out.Identification.ClosestMatch)
	}
}
