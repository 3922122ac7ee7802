package dex

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"

	"swapwatch/internal/model"
)

// TokenDecimals is the fixed-point scale applied to both pool amounts.
const TokenDecimals = 18

var q192 = decimal.NewFromBigInt(new(big.Int).Lsh(big.NewInt(1), 192), 0)

// SwapAmounts holds the display values derived from a Swap event.
type SwapAmounts struct {
	T0    model.Side
	T1    model.Side
	Price decimal.Decimal
}

// DeriveAmounts scales both deltas and computes the spot price from sqrtPriceX96.
func DeriveAmounts(event RawSwapEvent) (SwapAmounts, error) {
	t0, err := ScaleAmount(event.Amount0)
	if err != nil {
		return SwapAmounts{}, fmt.Errorf("amount0: %w", err)
	}
	t1, err := ScaleAmount(event.Amount1)
	if err != nil {
		return SwapAmounts{}, fmt.Errorf("amount1: %w", err)
	}
	price, err := PriceFromSqrtX96(event.SqrtPriceX96)
	if err != nil {
		return SwapAmounts{}, err
	}
	return SwapAmounts{T0: t0, T1: t1, Price: price}, nil
}

// ScaleAmount returns |amount| / 10^18 rounded half-up to two places, keeping
// the sign of the raw delta as a Direction.
func ScaleAmount(amount *big.Int) (model.Side, error) {
	if err := checkInt256("amount", amount); err != nil {
		return model.Side{}, err
	}
	abs := new(big.Int).Abs(amount)
	return model.Side{
		Magnitude: decimal.NewFromBigInt(abs, -TokenDecimals).Round(model.DisplayPlaces),
		Direction: model.DirectionOf(amount),
	}, nil
}

// PriceFromSqrtX96 computes (sqrtPriceX96 / 2^96)^2 as sqrtPriceX96^2 / 2^192,
// rounded half-up to two places. Token decimals are not applied.
func PriceFromSqrtX96(sqrtPriceX96 *big.Int) (decimal.Decimal, error) {
	if err := checkUint("sqrtPriceX96", sqrtPriceX96, 160); err != nil {
		return decimal.Zero, err
	}
	squared := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	return decimal.NewFromBigInt(squared, 0).DivRound(q192, model.DisplayPlaces), nil
}
