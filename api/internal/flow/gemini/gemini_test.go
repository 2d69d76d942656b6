package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rock-id/api/internal/flow"
	"rock-id/api/internal/prompt"
	"rock-id/api/internal/util"
)

func TestGenerateWithoutKey(t *testing.T) {
	_, err := New("  ", "gemini-2.5-flash").Generate(context.Background(), flow.Request{Prompt: "hi"})
	assert.EqualError(t, err, "GEMINI_API_KEY is empty")
}

func TestToSchema(t *testing.T) {
	m, err := util.ParseSchema(prompt.IdentifyName, prompt.IdentifySchema)
	require.NoError(t, err)

	s := toSchema(m)
	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.Equal(t, []string{"identification"}, s.Required)

	id := s.Properties["identification"]
	require.NotNil(t, id)
	assert.Equal(t, genai.TypeObject, id.Type)
	assert.ElementsMatch(t, []string{"closestMatch", "similarityPercentage", "information"}, id.Required)
	assert.Equal(t, genai.TypeNumber, id.Properties["similarityPercentage"].Type)
	assert.Equal(t, genai.TypeString, id.Properties["closestMatch"].Type)
	assert.NotEmpty(t, id.Properties["information"].Description)
}

func TestFirstText(t *testing.T) {
	assert.Equal(t, "", firstText(nil))
	assert.Equal(t, "", firstText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{
		{Content: nil},
		{Content: &genai.Content{Parts: []genai.Part{genai.Blob{MIMEType: "image/png"}, genai.Text(`{"matchPercentage":40}`)}}},
	}}
	assert.Equal(t, `{"matchPercentage":40}`, firstText(resp))
}
