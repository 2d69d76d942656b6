package action

import "rock-id/api/internal/flow"

const (
	MsgMissingImage = "Image data is missing."
	MsgNoResult     = "Failed to identify the rock. The analysis returned no result."
	MsgMissingRock  = "Identified rock is missing."
	MsgNoScore      = "Failed to score the match. The analysis returned no result."
)

// Outcome: единственный канал между действием и UI: либо data, либо error.
type Outcome struct {
	Success bool                 `json:"success"`
	Data    *flow.IdentifyOutput `json:"data,omitempty"`
	Error   string               `json:"error,omitempty"`
	// RecordID: id записи в истории, если она велась.
	RecordID string `json:"-"`
}

func Succeeded(out *flow.IdentifyOutput) Outcome { return Outcome{Success: true, Data: out} }
func Failed(msg string) Outcome               { return Outcome{Success: false, Error: msg} }

type MatchOutcome struct {
	Success bool              `json:"success"`
	Data    *flow.MatchOutput `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
}
