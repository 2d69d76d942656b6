package ui

import (
	"github.com/shopspring/decimal"

	"rock-id/api/internal/flow"
)

// View: снимок состояния для отрисовки; изменения контроллера на него не влияют.
type View struct {
	State           State                `json:"state"`
	FileName        string               `json:"fileName,omitempty"`
	Preview         string               `json:"preview,omitempty"`
	Loading         bool                 `json:"loading"`
	CanSubmit       bool                 `json:"canSubmit"`
	Result          *flow.Identification `json:"result,omitempty"`
	SimilarityLabel string               `json:"similarityLabel,omitempty"`
	Error           string               `json:"error,omitempty"`
}

// SimilarityLabel округляет процент до целого: 86.5 -> "87%".
func SimilarityLabel(p float64) string {
	return decimal.NewFromFloat(p).Round(0).String() + "%"
}
