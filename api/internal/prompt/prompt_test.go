package prompt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderIdentify(t *testing.T) {
	s, err := RenderIdentify(IdentifyData{MediaType: "image/png"})
	require.NoError(t, err)
	assert.Contains(t, s, "Image: attached (image/png).")
	assert.Contains(t, s, "closest matching rock or gem")
}

func TestRenderMatch(t *testing.T) {
	s, err := RenderMatch(MatchData{
		ImageAnalysis:  "glassy, hexagonal prisms",
		RockDatabase:   `[{"name":"Quartz"}]`,
		IdentifiedRock: "Quartz",
	})
	require.NoError(t, err)
	assert.Contains(t, s, `"""glassy, hexagonal prisms"""`)
	assert.Contains(t, s, `"""Quartz"""`)
	assert.Contains(t, s, `"""[{"name":"Quartz"}]"""`)
}

func TestSchemasAreJSON(t *testing.T) {
	for name, raw := range map[string]string{"identify": IdentifySchema, "match": MatchSchema} {
		var m map[string]any
		assert.NoError(t, json.Unmarshal([]byte(raw), &m), name)
	}
}
