// Package domain contains connection and identity types without transport logic.
package domain

import (
	"errors"
	"strings"
)

const MaxCallsignLen = 16

var (
	ErrCallsignEmpty   = errors.New("callsign empty")
	ErrCallsignTooLong = errors.New("callsign too long")
)

// Profile is the operator identity used to fill transmit activity reports.
type Profile struct {
	Callsign         string `mapstructure:"callsign" json:"callsign"`
	NumericID        uint32 `mapstructure:"numeric_id" json:"numeric_id,omitempty"`
	SecondaryID      string `mapstructure:"secondary_id" json:"secondary_id,omitempty"`
	OperatorName     string `mapstructure:"operator_name" json:"operator_name,omitempty"`
	OperatorLocation string `mapstructure:"operator_location" json:"operator_location,omitempty"`
}

func (p *Profile) SetCallsign(callsign string) error {
	callsign = strings.ToUpper(strings.TrimSpace(callsign))
	if len(callsign) == 0 {
		return ErrCallsignEmpty
	}
	if len(callsign) > MaxCallsignLen {
		return ErrCallsignTooLong
	}
	p.Callsign = callsign
	return nil
}
