package flow

import (
	"math"
	"strings"
)

type IdentifyInput struct {
	PhotoDataURI string `json:"photoDataUri"`
}

// Identification: результат одного анализа образца.
type Identification struct {
	ClosestMatch         string  `json:"closestMatch"`
	SimilarityPercentage float64 `json:"similarityPercentage"`
	Information          string  `json:"information"`
}

type IdentifyOutput struct {
	Identification *Identification `json:"identification"`
}

type MatchInput struct {
	ImageAnalysis  string `json:"imageAnalysis"`
	RockDatabase   string `json:"rockDatabase"`
	IdentifiedRock string `json:"identifiedRock"`
}

type MatchOutput struct {
	MatchPercentage float64 `json:"matchPercentage"`
}

// Validate checks the output contract. Nothing is clamped.
func (i *Identification) Validate() error {
	const op = "identify"
	if i == nil {
		return validationf(op, "identification is missing")
	}
	if strings.TrimSpace(i.ClosestMatch) == "" {
		return validationf(op, "closestMatch is empty")
	}
	if err := checkPercentage(op, "similarityPercentage", i.SimilarityPercentage); err != nil {
		return err
	}
	return nil
}

func (m *MatchOutput) Validate() error {
	if m == nil {
		return validationf("match", "result is missing")
	}
	return checkPercentage("match", "matchPercentage", m.MatchPercentage)
}

func checkPercentage(op, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return validationf(op, "%s is not a finite number", field)
	}
	if v < 0 || v > 100 {
		return validationf(op, "%s %v is outside [0, 100]", field, v)
	}
	return nil
}
