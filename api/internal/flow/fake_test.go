package flow

import (
	"context"
	"encoding/base64"
)

var tinyPNG = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}

var pngURI = "data:image/png;base64," + base64.StdEncoding.EncodeToString(tinyPNG)

type fakeModel struct {
	reply string
	err   error
	calls []Request
}

func (m *fakeModel) Name() string     { return "fake" }
func (m *fakeModel) GetModel() string { return "fake-1" }

func (m *fakeModel) Generate(_ context.Context, req Request) (string, error) {
	m.calls = append(m.calls, req)
	return m.reply, m.err
}

func newFlow(m *fakeModel) *Flow {
	f, err := New(m)
	if err != nil {
		panic(err)
	}
	return f
}
