package app

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rock-id/api/internal/config"
	"rock-id/api/internal/store"
)

func TestBuildEngines(t *testing.T) {
	e := BuildEngines(config.LLMConfig{GeminiAPIKey: "g", GeminiModel: "gemini-2.5-flash", Default: "gpt"})
	assert.NotNil(t, e.Gemini)
	assert.Nil(t, e.OpenAI)
	assert.Equal(t, "", e.Default)
	m, err := e.GetEngine("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", m.Name())

	e = BuildEngines(config.LLMConfig{OpenAIAPIKey: "o", OpenAIModel: "gpt-4o-mini", OpenAIBaseURL: "http://local/v1/", Default: "GPT"})
	assert.Nil(t, e.Gemini)
	assert.Equal(t, "gpt", e.Default)
	assert.Equal(t, []string{"gpt"}, e.Available())
}

func TestResolveDSN(t *testing.T) {
	t.Setenv("PGHOST", "")
	assert.Equal(t, "", resolveDSN(""))
	assert.Equal(t, "postgres://x", resolveDSN(" postgres://x "))

	t.Setenv("PGHOST", "db")
	t.Setenv("PGPORT", "")
	t.Setenv("POSTGRES_USER", "u")
	t.Setenv("POSTGRES_PASSWORD", "p")
	t.Setenv("POSTGRES_DB", "rocks")
	assert.Equal(t, "postgres://u:p@db:5432/rocks?sslmode=disable", resolveDSN(""))
}

func TestSafeDSNSummary(t *testing.T) {
	assert.Equal(t, "host=db port=5432 db=rocks user=u", safeDSNSummary("postgres://u:secret@db:5432/rocks"))
	assert.Equal(t, "host=db db=rocks user=u", safeDSNSummary("postgres://u:secret@db/rocks"))
}

func TestBuildWithoutDatabase(t *testing.T) {
	t.Setenv("PGHOST", "")
	mr := miniredis.RunT(t)
	cfg := &config.Config{
		LLM:   config.LLMConfig{GeminiAPIKey: "k", GeminiModel: "m", Default: "gemini"},
		Redis: config.RedisConfig{Addr: mr.Addr(), TTL: time.Hour},
	}
	a, err := Build(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.NoError(t, a.Health(context.Background()))
	act, err := a.Actions.Get("")
	require.NoError(t, err)
	assert.Equal(t, "gemini", act.Engine())

	rec := &store.Record{Engine: "gemini", Success: true, ClosestMatch: "Quartz"}
	require.NoError(t, a.History.Record(context.Background(), rec))
	got, err := a.History.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "Quartz", got.ClosestMatch)

	// без БД ретеншн сразу выходит
	a.RunRetention(context.Background())
}

func TestBuildRequiresEngine(t *testing.T) {
	_, err := Build(context.Background(), &config.Config{}, zap.NewNop())
	assert.Error(t, err)
}
