package action

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"

	"rock-id/api/internal/events"
	"rock-id/api/internal/flow"
	"rock-id/api/internal/store"
)

// 1x1 PNG
var tinyPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

var pngURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG)

type fakeModel struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
}

func (m *fakeModel) Name() string     { return "gemini" }
func (m *fakeModel) GetModel() string { return "gemini-test" }

func (m *fakeModel) Generate(_ context.Context, _ flow.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	if len(m.replies) == 0 {
		return "", nil
	}
	r := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	return r, nil
}

// fakeIdentifier подменяет flow целиком.
type fakeIdentifier struct {
	out     *flow.IdentifyOutput
	match   *flow.MatchOutput
	err     error
	calls   int
	lastIn  flow.IdentifyInput
	lastMIn flow.MatchInput
	model   *fakeModel
}

func (f *fakeIdentifier) IdentifyRock(_ context.Context, in flow.IdentifyInput) (*flow.IdentifyOutput, error) {
	f.calls++
	f.lastIn = in
	return f.out, f.err
}

func (f *fakeIdentifier) ScoreMatch(_ context.Context, in flow.MatchInput) (*flow.MatchOutput, error) {
	f.calls++
	f.lastMIn = in
	return f.match, f.err
}

func (f *fakeIdentifier) Model() flow.Model {
	if f.model == nil {
		f.model = &fakeModel{}
	}
	return f.model
}

type memRecorder struct {
	recs []*store.Record
	err  error
}

func (r *memRecorder) Record(_ context.Context, rec *store.Record) error {
	if r.err != nil {
		return r.err
	}
	r.recs = append(r.recs, rec)
	return nil
}

type memPublisher struct{ evs []events.Event }

func (p *memPublisher) Publish(_ context.Context, ev events.Event) error {
	p.evs = append(p.evs, ev)
	return nil
}
func (p *memPublisher) Close() {}

var errBoom = errors.New("boom")
