package catalog

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Specimen: эталонный образец с характерными признаками.
type Specimen struct {
	Name     string   `yaml:"name" json:"name"`
	Category string   `yaml:"category" json:"category"`
	Hardness float64  `yaml:"hardness" json:"hardness"`
	Luster   string   `yaml:"luster" json:"luster"`
	Colors   []string `yaml:"colors" json:"colors"`
	Traits   []string `yaml:"traits" json:"traits"`
}

type Catalog struct {
	specimens []Specimen
	byName    map[string]int
	text      string
}

// Default returns the embedded catalog.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("catalog: embedded catalog is broken: %v", err))
	}
	return c
}

// Load reads a catalog file. An empty path means the embedded catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var specimens []Specimen
	if err := yaml.Unmarshal(data, &specimens); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if len(specimens) == 0 {
		return nil, errors.New("catalog: no specimens")
	}
	c := &Catalog{byName: make(map[string]int, len(specimens))}
	for _, s := range specimens {
		s.Name = strings.TrimSpace(s.Name)
		if s.Name == "" {
			return nil, errors.New("catalog: specimen without name")
		}
		key := strings.ToLower(s.Name)
		if _, dup := c.byName[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate specimen %q", s.Name)
		}
		c.byName[key] = len(c.specimens)
		c.specimens = append(c.specimens, s)
	}
	sort.SliceStable(c.specimens, func(i, j int) bool { return c.specimens[i].Name < c.specimens[j].Name })
	for i, s := range c.specimens {
		c.byName[strings.ToLower(s.Name)] = i
	}

	text, err := json.Marshal(c.specimens)
	if err != nil {
		return nil, err
	}
	c.text = string(text)
	return c, nil
}

func (c *Catalog) Specimens() []Specimen {
	out := make([]Specimen, len(c.specimens))
	copy(out, c.specimens)
	return out
}

// Find ищет образец по имени без учёта регистра.
func (c *Catalog) Find(name string) (Specimen, bool) {
	i, ok := c.byName[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Specimen{}, false
	}
	return c.specimens[i], true
}

// JSON: каталог как JSON-массив строкой, в таком виде он уходит в промпт.
func (c *Catalog) JSON() string { return c.text }

func (c *Catalog) Len() int { return len(c.specimens) }
