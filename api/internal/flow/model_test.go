package flow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetEngine(t *testing.T) {
	g, o := &fakeModel{}, &fakeModel{}
	e := &Engines{Gemini: g, OpenAI: o, Default: "gpt"}

	m, err := e.GetEngine("")
	require.NoError(t, err)
	assert.Same(t, o, m)

	m, err = e.GetEngine(" Gemini ")
	require.NoError(t, err)
	assert.Same(t, g, m)

	m, err = e.GetEngine("openai")
	require.NoError(t, err)
	assert.Same(t, o, m)

	_, err = e.GetEngine("deepseek")
	assert.Error(t, err)

	assert.Equal(t, []string{"gemini", "gpt"}, e.Available())
}

func TestGetEngineNotConfigured(t *testing.T) {
	e := &Engines{OpenAI: &fakeModel{}}
	_, err := e.GetEngine("gemini")
	assert.ErrorContains(t, err, "not configured")

	m, err := e.GetEngine("")
	require.NoError(t, err)
	assert.NotNil(t, m)

	_, err = (&Engines{}).GetEngine("")
	assert.Error(t, err)
}

func TestTransportKeepsFlowKinds(t *testing.T) {
	v := fmt.Errorf("x: %w", ErrValidation)
	assert.Same(t, v, Transport("gemini", v))

	te := Transport("gemini", errors.New("boom"))
	assert.Same(t, te, Transport("openai", te))
	assert.Nil(t, Transport("gemini", nil))
}
