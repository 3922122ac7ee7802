package model

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// Direction records the sign of a pool-side token delta before it is discarded.
// Positive means the pool received the token.
type Direction uint8

const (
	DirectionUnknown Direction = iota
	DirectionPositive
	DirectionNegative
)

// DirectionOf maps a signed delta to a Direction. Zero counts as negative.
func DirectionOf(delta *big.Int) Direction {
	if delta != nil && delta.Sign() > 0 {
		return DirectionPositive
	}
	return DirectionNegative
}

func (d Direction) String() string {
	switch d {
	case DirectionPositive:
		return "positive"
	case DirectionNegative:
		return "negative"
	default:
		return "unknown"
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	switch string(text) {
	case "positive":
		*d = DirectionPositive
	case "negative":
		*d = DirectionNegative
	case "", "unknown":
		*d = DirectionUnknown
	default:
		return fmt.Errorf("invalid direction: %q", text)
	}
	return nil
}

// Side is a display magnitude together with the sign it was derived from.
type Side struct {
	Magnitude decimal.Decimal
	Direction Direction
}
