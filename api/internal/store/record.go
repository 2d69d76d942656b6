package store

import (
	"time"

	"github.com/google/uuid"
)

// Record: одна попытка распознавания (успешная или нет).
type Record struct {
	ID                   uuid.UUID `json:"id"`
	CreatedAt            time.Time `json:"createdAt"`
	ImageHash            string    `json:"imageHash"`
	MediaType            string    `json:"mediaType"`
	Engine               string    `json:"engine"`
	Model                string    `json:"model"`
	Success              bool      `json:"success"`
	ClosestMatch         string    `json:"closestMatch,omitempty"`
	SimilarityPercentage float64   `json:"similarityPercentage,omitempty"`
	Information          string    `json:"information,omitempty"`
	Error                string    `json:"error,omitempty"`
}
