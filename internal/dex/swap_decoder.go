package dex

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrUnsupportedTopic is returned for logs that are not V3 Swap events.
var ErrUnsupportedTopic = errors.New("unsupported topic0")

// RawSwapEvent is the as-received Swap payload plus the log metadata needed
// to look up the originating transaction.
type RawSwapEvent struct {
	Pool         common.Address
	Sender       common.Address
	Recipient    common.Address
	Amount0      *big.Int
	Amount1      *big.Int
	SqrtPriceX96 *big.Int
	Liquidity    *big.Int
	Tick         int32

	TxHash      common.Hash
	BlockHash   common.Hash
	BlockNumber uint64
	TxIndex     uint
	LogIndex    uint
}

// SwapDecoder decodes Uniswap V3 style pool Swap logs.
type SwapDecoder struct {
	event abi.Event
}

// NewSwapDecoder builds a decoder for the V3 Swap event.
func NewSwapDecoder() (*SwapDecoder, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	event, ok := poolABI.Events["Swap"]
	if !ok {
		return nil, fmt.Errorf("swap event missing from abi")
	}
	return &SwapDecoder{event: event}, nil
}

// Topic0 returns the Swap event signature hash used for subscriptions.
func (d *SwapDecoder) Topic0() common.Hash {
	return d.event.ID
}

// CanDecode checks if the topic0 is the Swap signature.
func (d *SwapDecoder) CanDecode(topic0 common.Hash) bool {
	return topic0 == d.event.ID
}

// Decode converts a chain log into a RawSwapEvent.
func (d *SwapDecoder) Decode(log types.Log) (RawSwapEvent, error) {
	if len(log.Topics) == 0 {
		return RawSwapEvent{}, fmt.Errorf("missing topics")
	}
	if !d.CanDecode(log.Topics[0]) {
		return RawSwapEvent{}, fmt.Errorf("%w: %s", ErrUnsupportedTopic, log.Topics[0].Hex())
	}

	indexed := indexedArguments(d.event.Inputs)
	if len(log.Topics) != len(indexed)+1 {
		return RawSwapEvent{}, fmt.Errorf("expected %d topics, got %d", len(indexed)+1, len(log.Topics))
	}

	var parties struct {
		Sender    common.Address
		Recipient common.Address
	}
	if err := abi.ParseTopics(&parties, indexed, log.Topics[1:]); err != nil {
		return RawSwapEvent{}, fmt.Errorf("parse topics: %w", err)
	}

	values, err := d.event.Inputs.NonIndexed().Unpack(log.Data)
	if err != nil {
		return RawSwapEvent{}, fmt.Errorf("unpack %s: %w", d.event.Name, err)
	}
	if len(values) != 5 {
		return RawSwapEvent{}, fmt.Errorf("unexpected swap values: %d", len(values))
	}

	ints := make([]*big.Int, len(values))
	for i, value := range values {
		ints[i], err = asBigInt(value)
		if err != nil {
			return RawSwapEvent{}, fmt.Errorf("swap value %d: %w", i, err)
		}
	}
	tick, err := int24FromBig(ints[4])
	if err != nil {
		return RawSwapEvent{}, err
	}

	return RawSwapEvent{
		Pool:         log.Address,
		Sender:       parties.Sender,
		Recipient:    parties.Recipient,
		Amount0:      ints[0],
		Amount1:      ints[1],
		SqrtPriceX96: ints[2],
		Liquidity:    ints[3],
		Tick:         tick,
		TxHash:       log.TxHash,
		BlockHash:    log.BlockHash,
		BlockNumber:  log.BlockNumber,
		TxIndex:      log.TxIndex,
		LogIndex:     log.Index,
	}, nil
}

func indexedArguments(args abi.Arguments) abi.Arguments {
	indexed := make(abi.Arguments, 0, len(args))
	for _, arg := range args {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	return indexed
}
