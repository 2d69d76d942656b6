package action

import (
	"rock-id/api/internal/flow"
)

// Set держит по одному Action на каждый настроенный движок.
type Set struct {
	engines *flow.Engines
	byName  map[string]*Action
}

func NewSet(engines *flow.Engines, deps Deps) (*Set, error) {
	s := &Set{engines: engines, byName: map[string]*Action{}}
	for _, m := range []flow.Model{engines.Gemini, engines.OpenAI} {
		if m == nil {
			continue
		}
		f, err := flow.New(m)
		if err != nil {
			return nil, err
		}
		s.byName[m.Name()] = New(f, deps)
	}
	return s, nil
}

// Get resolves llm_name the same way flow.Engines does.
func (s *Set) Get(llmName string) (*Action, error) {
	m, err := s.engines.GetEngine(llmName)
	if err != nil {
		return nil, err
	}
	return s.byName[m.Name()], nil
}

func (s *Set) Available() []string { return s.engines.Available() }
