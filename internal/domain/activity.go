package domain

import "time"

// Activity is what gets reported to the directory when an operator keys up.
type Activity struct {
	Callsign         string    `json:"callsign"`
	Network          string    `json:"network"`
	Talkgroup        string    `json:"talkgroup"`
	NumericID        *uint32   `json:"numeric_id,omitempty"`
	OperatorName     string    `json:"operator_name,omitempty"`
	OperatorLocation string    `json:"operator_location,omitempty"`
	At               time.Time `json:"at"`
}
