package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
)

// DisplayPlaces is the number of fractional digits kept for amounts and price.
const DisplayPlaces = 2

// SwapRecord is the decoded, human-readable representation of one Swap event.
// It is the unit appended to the record log and fed to the notifier.
type SwapRecord struct {
	Pool         string          `json:"pool"`
	Sender       string          `json:"sender"`
	Recipient    string          `json:"recipient"`
	T0           decimal.Decimal `json:"t0"`
	T1           decimal.Decimal `json:"t1"`
	Price        decimal.Decimal `json:"price"`
	SqrtPriceX96 string          `json:"sqrtPriceX96"`
	Liquidity    string          `json:"liquidity"`
	Tick         int32           `json:"tick"`
	TxHash       string          `json:"txHash"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	Dir0         Direction       `json:"dir0,omitempty"`
	Dir1         Direction       `json:"dir1,omitempty"`
}

// Token0In reports whether the pool received token0 in this swap.
// Records written without a direction fall back to the magnitude test.
func (r SwapRecord) Token0In() bool {
	switch r.Dir0 {
	case DirectionPositive:
		return true
	case DirectionNegative:
		return false
	default:
		return r.T0.IsPositive()
	}
}

// WithPrice returns a copy of the record carrying a different price.
func (r SwapRecord) WithPrice(price decimal.Decimal) SwapRecord {
	r.Price = price.Round(DisplayPlaces)
	return r
}

// MarshalJSON writes decimal fields as fixed two-digit strings and the tick
// as a decimal string.
func (r SwapRecord) MarshalJSON() ([]byte, error) {
	type Alias SwapRecord
	return json.Marshal(struct {
		Alias
		T0    string `json:"t0"`
		T1    string `json:"t1"`
		Price string `json:"price"`
		Tick  string `json:"tick"`
	}{
		Alias: Alias(r),
		T0:    r.T0.StringFixed(DisplayPlaces),
		T1:    r.T1.StringFixed(DisplayPlaces),
		Price: r.Price.StringFixed(DisplayPlaces),
		Tick:  strconv.FormatInt(int64(r.Tick), 10),
	})
}

// UnmarshalJSON decodes a SwapRecord line, including lines written before
// direction fields existed.
func (r *SwapRecord) UnmarshalJSON(data []byte) error {
	type Alias SwapRecord
	aux := struct {
		*Alias
		T0    string          `json:"t0"`
		T1    string          `json:"t1"`
		Price string          `json:"price"`
		Tick  json.RawMessage `json:"tick"`
	}{Alias: (*Alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	if r.T0, err = parseDecimal("t0", aux.T0); err != nil {
		return err
	}
	if r.T1, err = parseDecimal("t1", aux.T1); err != nil {
		return err
	}
	if r.Price, err = parseDecimal("price", aux.Price); err != nil {
		return err
	}
	if r.Tick, err = parseTick(aux.Tick); err != nil {
		return err
	}
	return nil
}

// parseTick accepts the tick as a decimal string or a JSON number.
func parseTick(raw json.RawMessage) (int32, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, nil
	}
	text := string(raw)
	if raw[0] == '"' {
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("invalid tick: %w", err)
		}
	}
	tick, err := strconv.ParseInt(text, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid tick: %w", err)
	}
	return int32(tick), nil
}

func parseDecimal(field, value string) (decimal.Decimal, error) {
	if value == "" {
		return decimal.Zero, fmt.Errorf("missing %s", field)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s: %w", field, err)
	}
	return d, nil
}
